package api

import (
	"context"
	"log/slog"

	"github.com/shaiso/Harvester/internal/deadletter"
	"github.com/shaiso/Harvester/internal/dispatch"
	"github.com/shaiso/Harvester/internal/task"
	"github.com/shaiso/Harvester/internal/telemetry"
)

// HealthCheck проверяет одну зависимость (брокер, БД).
type HealthCheck func(ctx context.Context) error

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	enqueuer task.Enqueuer
	registry *dispatch.Registry
	store    deadletter.Store
	bucket   string
	checks   map[string]HealthCheck
	stats    func() any
	logger   *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	// Enqueuer — движок, принимающий задачи.
	Enqueuer task.Enqueuer

	// Registry — реестр задач движка (опционально: без него имя задачи не проверяется).
	Registry *dispatch.Registry

	// Store и Bucket — хранилище dead-letter записей.
	Store  deadletter.Store
	Bucket string

	// Checks — проверки для /healthz.
	Checks map[string]HealthCheck

	// Stats — снимок состояния движка для /api/v1/stats (опционально).
	Stats func() any

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		enqueuer: cfg.Enqueuer,
		registry: cfg.Registry,
		store:    cfg.Store,
		bucket:   cfg.Bucket,
		checks:   cfg.Checks,
		stats:    cfg.Stats,
		logger:   telemetry.OrDefault(cfg.Logger),
	}
}
