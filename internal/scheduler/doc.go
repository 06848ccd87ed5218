// Package scheduler периодически ставит задачи в очередь по cron-расписанию.
//
// Каждая запись (Entry) — имя, cron-выражение, имя задачи и payload.
// На срабатывании Scheduler вызывает AddTask у любого task.Enqueuer:
// локального пула или broker-движка.
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Entries:  cfg.Entries(),
//	    Enqueuer: engine,
//	    Logger:   logger,
//	})
//	if err != nil {
//	    return err
//	}
//	sched.Start()
//	defer sched.Stop(ctx)
//
// Leader Election:
//
// Scheduler не реализует leader election самостоятельно.
// Это делается в main.go через pg_try_advisory_lock: задачи ставит
// только процесс, держащий блокировку.
package scheduler
