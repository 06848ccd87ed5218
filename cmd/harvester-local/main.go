// Harvester Local — локальный движок: пул воркеров над очередью в памяти.
//
// Начальные задачи передаются аргументами вида Task=payload
// (или Task без payload) и ставятся в очередь до запуска пула.
// Ошибки задач пишутся в dead-letter хранилище (по умолчанию SQLite).
//
// С local.stop_when_idle=true процесс завершается, когда очередь пуста
// и ни один воркер не занят.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shaiso/Harvester/internal/api"
	"github.com/shaiso/Harvester/internal/config"
	"github.com/shaiso/Harvester/internal/deadletter"
	"github.com/shaiso/Harvester/internal/repo"
	"github.com/shaiso/Harvester/internal/scheduler"
	"github.com/shaiso/Harvester/internal/task"
	"github.com/shaiso/Harvester/internal/tasks"
	"github.com/shaiso/Harvester/internal/telemetry"
	"github.com/shaiso/Harvester/internal/worker"
)

func main() {
	cfg, err := config.Load(os.Getenv("HARVESTER_CONFIG"))
	if err != nil {
		telemetry.NewLogger("info", "json").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting harvester-local")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Tracing.Enabled {
		shutdown, err := telemetry.InitTracer(cfg.Tracing.ServiceName, os.Stdout)
		if err != nil {
			logger.Error("failed to init tracer", "error", err)
			os.Exit(1)
		}
		defer shutdown(context.Background())
	}

	store, err := repo.OpenStore(ctx, cfg.DeadLetter.Driver, cfg.DeadLetter.DSN)
	if err != nil {
		logger.Error("failed to open dead letter store", "driver", cfg.DeadLetter.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	sink := deadletter.NewSink(store, cfg.DeadLetter.Bucket, logger)

	pool, err := worker.New(worker.Config{
		Factories:      tasks.Builtin(&http.Client{Timeout: 60 * time.Second}, logger),
		FailureHandler: sink.Handler(),
		Workers:        cfg.Local.Workers,
		IdleInterval:   cfg.Local.IdleInterval,
		ShutdownWait:   cfg.Local.ShutdownWait,
		StopWhenIdle:   cfg.Local.StopWhenIdle,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("failed to create worker pool", "error", err)
		os.Exit(1)
	}

	// Начальные задачи из аргументов
	for _, arg := range os.Args[1:] {
		if err := pool.AddTask(ctx, parseSeed(arg)); err != nil {
			logger.Error("failed to enqueue seed task", "arg", arg, "error", err)
			os.Exit(1)
		}
	}

	// Периодические задачи
	if len(cfg.Schedules) > 0 && !cfg.Local.StopWhenIdle {
		sched, err := scheduler.New(scheduler.Config{
			Entries:  cfg.Entries(),
			Enqueuer: pool,
			Logger:   logger,
		})
		if err != nil {
			logger.Error("failed to create scheduler", "error", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop(context.Background())
	}

	handler := api.NewHandler(api.Config{
		Enqueuer: pool,
		Registry: pool.Registry(),
		Store:    store,
		Bucket:   cfg.DeadLetter.Bucket,
		Checks:   map[string]api.HealthCheck{"dead_letter": store.Ping},
		Stats:    func() any { return pool.Stats() },
		Logger:   logger,
	})

	httpCtx, httpCancel := context.WithCancel(ctx)
	defer httpCancel()
	go func() {
		err := api.Serve(httpCtx, api.ServerConfig{
			Addr:            cfg.HTTP.Addr,
			ReadTimeout:     cfg.HTTP.ReadTimeout,
			WriteTimeout:    cfg.HTTP.WriteTimeout,
			ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		}, handler.Router(), logger)
		if err != nil {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start блокируется до остановки пула: по сигналу или по простою.
	if err := pool.Start(ctx); err != nil {
		logger.Error("worker pool failed", "error", err)
		os.Exit(1)
	}

	if err := pool.Stop(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("failed to stop worker pool", "error", err)
		os.Exit(1)
	}
	logger.Info("harvester-local stopped")
}

// parseSeed разбирает аргумент вида Task=payload.
func parseSeed(arg string) task.Payload {
	name, payload, ok := strings.Cut(arg, "=")
	if !ok {
		return task.Payload{Task: name}
	}
	return task.New(name, payload)
}
