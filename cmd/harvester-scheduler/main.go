// Harvester Scheduler — периодически ставит задачи в RabbitMQ.
//
// Расписания задаются в секции schedules конфигурации.
// Задачи ставит только лидер: процесс, взявший advisory-блокировку
// PostgreSQL (scheduler.lock_key). Остальные экземпляры ждут и
// периодически пытаются взять блокировку.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Harvester/internal/api"
	"github.com/shaiso/Harvester/internal/broker"
	"github.com/shaiso/Harvester/internal/config"
	"github.com/shaiso/Harvester/internal/mq"
	"github.com/shaiso/Harvester/internal/repo"
	"github.com/shaiso/Harvester/internal/scheduler"
	"github.com/shaiso/Harvester/internal/task"
	"github.com/shaiso/Harvester/internal/telemetry"
)

func main() {
	cfg, err := config.Load(os.Getenv("HARVESTER_CONFIG"))
	if err != nil {
		telemetry.NewLogger("info", "json").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting harvester-scheduler", "schedules", len(cfg.Schedules))

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool — только для leader election
	if cfg.DeadLetter.Driver != repo.DriverPostgres {
		logger.Error("scheduler requires postgres for leader election", "driver", cfg.DeadLetter.Driver)
		os.Exit(1)
	}
	pool, err := repo.NewPool(ctx, cfg.DeadLetter.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	conn, err := mq.NewConnection(cfg.Broker.URL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := mq.SetupTopology(conn, cfg.Broker.Queue, cfg.Broker.VisibilityTimeout); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	enqueuer := &queueEnqueuer{
		publisher: mq.NewPublisher(conn, logger),
		queue:     cfg.Broker.Queue,
	}

	// HTTP: /healthz + /metrics
	handler := api.NewHandler(api.Config{
		Enqueuer: enqueuer,
		Checks: map[string]api.HealthCheck{
			"broker":   conn.Ping,
			"database": pool.Ping,
		},
		Logger: logger,
	})
	go func() {
		err := api.Serve(ctx, api.ServerConfig{
			Addr:            cfg.HTTP.Addr,
			ReadTimeout:     cfg.HTTP.ReadTimeout,
			WriteTimeout:    cfg.HTTP.WriteTimeout,
			ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		}, handler.Router(), logger)
		if err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	for ctx.Err() == nil {
		if err := lead(ctx, pool, cfg, enqueuer, logger); err != nil {
			logger.Error("scheduler leadership failed", "error", err)
		}

		select {
		case <-ctx.Done():
		case <-time.After(cfg.Scheduler.RetryInterval):
		}
	}

	logger.Info("harvester-scheduler stopped")
}

// lead пытается стать лидером и, если удалось, запускает планировщик
// до потери соединения с блокировкой или отмены ctx.
func lead(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config, enqueuer task.Enqueuer, logger *slog.Logger) error {
	lock, err := repo.TryAdvisoryLock(ctx, pool, cfg.Scheduler.LockKey)
	if err != nil {
		return err
	}
	if lock == nil {
		// не лидер — ждём следующей попытки
		return nil
	}
	defer lock.Release(context.Background())

	sched, err := scheduler.New(scheduler.Config{
		Entries:  cfg.Entries(),
		Enqueuer: enqueuer,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	logger.Info("acquired scheduler leadership", "lock_key", cfg.Scheduler.LockKey)
	sched.Start()
	defer sched.Stop(context.Background())

	tk := time.NewTicker(cfg.Scheduler.RetryInterval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tk.C:
			if !lock.Alive(ctx) {
				logger.Warn("lost scheduler leadership")
				return nil
			}
		}
	}
}

// queueEnqueuer публикует конверты задач в рабочую очередь.
type queueEnqueuer struct {
	publisher *mq.Publisher
	queue     string
}

func (e *queueEnqueuer) AddTask(ctx context.Context, p task.Payload) error {
	body, err := broker.Encode(p)
	if err != nil {
		return err
	}
	return e.publisher.Publish(ctx, e.queue, p.Task, body)
}
