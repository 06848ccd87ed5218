// Package worker — локальный движок задач на пуле воркеров.
//
// # Обзор
//
// Pool владеет потокобезопасной FIFO очередью payload'ов (Queue) и
// фиксированным набором горутин-воркеров, которые разбирают очередь через
// dispatch.Dispatcher.
//
//	pool, err := worker.New(worker.Config{
//	    Factories:      factories,
//	    FailureHandler: sink.Handler(),
//	    Workers:        4,
//	    StopWhenIdle:   true,
//	    Logger:         logger,
//	})
//	if err != nil {
//	    log.Fatal(err) // например, фабрика с пустым именем
//	}
//
//	pool.AddTask(ctx, task.New("Fetch", `{"url":"https://example.com"}`))
//	err = pool.Start(ctx) // блокируется до остановки
//
// # Цикл воркера
//
//  1. Очередь пуста → (StopWhenIdle и никто не занят → остановка пула)
//     иначе пауза IdleInterval
//  2. Иначе воркер помечает себя занятым, извлекает payload и вызывает
//     Dispatcher.Handle до завершения
//  3. Сбой уровня цикла логируется, payload уходит в failure sink,
//     воркер продолжает работу
//
// # Остановка
//
// Stop кооперативный: снимает run-флаг и ждёт, пока все воркеры доработают
// текущий payload и выйдут. Если это не произошло за ShutdownWait —
// ErrShutdownTimeout. Задачи не прерываются.
//
// # Порядок
//
// FIFO гарантирован для очереди, но не для пула в целом: несколько воркеров
// извлекают payload'ы конкурентно.
package worker
