package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Harvester/internal/task"
	"github.com/shaiso/Harvester/internal/telemetry"
)

// Entry — периодическая постановка задачи.
type Entry struct {
	// Name — имя записи (для логов).
	Name string

	// Spec — cron-выражение.
	Spec string

	// Task — имя задачи.
	Task string

	// Payload — payload задачи. Может быть шаблоном text/template
	// с данными PayloadData.
	Payload string
}

// scheduled — запись с разобранным payload.
type scheduled struct {
	Entry
	payload *payloadTemplate
}

// Scheduler ставит задачи в очередь по расписанию.
type Scheduler struct {
	cron     *cron.Cron
	enqueuer task.Enqueuer
	entries  map[string]*scheduled
	ids      map[string]cron.EntryID
	logger   *slog.Logger

	// now подменяется в тестах.
	now func() time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	Entries  []Entry
	Enqueuer task.Enqueuer
	Logger   *slog.Logger

	// Location — часовой пояс расписаний (default: UTC).
	Location *time.Location
}

// New создаёт Scheduler. Некорректное cron-выражение, шаблон payload
// или повторное имя — ошибка.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Enqueuer == nil {
		return nil, fmt.Errorf("scheduler: enqueuer is required")
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	logger := telemetry.OrDefault(cfg.Logger)
	cl := cronLogger{logger: logger}

	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		enqueuer: cfg.Enqueuer,
		entries:  make(map[string]*scheduled, len(cfg.Entries)),
		ids:      make(map[string]cron.EntryID, len(cfg.Entries)),
		logger:   logger,
		now:      time.Now,
	}

	for _, e := range cfg.Entries {
		if _, ok := s.entries[e.Name]; ok {
			return nil, fmt.Errorf("duplicate schedule %q", e.Name)
		}
		if _, err := ParseSpec(e.Spec); err != nil {
			return nil, fmt.Errorf("schedule %q: %w", e.Name, err)
		}

		payload, err := parsePayload(e.Name, e.Payload)
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", e.Name, err)
		}

		entry := &scheduled{Entry: e, payload: payload}
		id, err := s.cron.AddFunc(entry.Spec, func() {
			if err := s.fire(context.Background(), entry); err != nil {
				s.logger.Error("failed to enqueue scheduled task", "schedule", entry.Name, "task", entry.Task, "error", err)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", e.Name, err)
		}

		s.entries[entry.Name] = entry
		s.ids[entry.Name] = id
	}

	return s, nil
}

// Start запускает планировщик в фоне.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started", "entries", len(s.entries))
	s.cron.Start()
}

// Stop останавливает планировщик и ждёт завершения запущенных постановок
// или отмены ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trigger немедленно ставит задачу записи name в очередь.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	entry, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("schedule %q not found", name)
	}
	return s.fire(ctx, entry)
}

// Next возвращает время следующего срабатывания записи name.
// Нулевое время — планировщик не запущен или записи нет.
func (s *Scheduler) Next(name string) time.Time {
	id, ok := s.ids[name]
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// fire ставит задачу записи в очередь.
func (s *Scheduler) fire(ctx context.Context, e *scheduled) error {
	payload, err := e.payload.render(PayloadData{
		Name: e.Name,
		Task: e.Task,
		Time: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", e.Name, err)
	}

	if err := s.enqueuer.AddTask(ctx, task.New(e.Task, payload)); err != nil {
		return fmt.Errorf("enqueue %s: %w", e.Task, err)
	}

	s.logger.Info("scheduled task enqueued", "schedule", e.Name, "task", e.Task)
	return nil
}
