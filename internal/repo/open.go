package repo

import (
	"context"
	"fmt"

	"github.com/shaiso/Harvester/internal/deadletter"
)

// Драйверы dead-letter хранилища.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store — открытое dead-letter хранилище.
type Store interface {
	deadletter.Store

	// Ping проверяет доступность хранилища (для /healthz).
	Ping(ctx context.Context) error

	// Close освобождает ресурсы.
	Close() error
}

// OpenStore открывает хранилище по имени драйвера и создаёт схему.
func OpenStore(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverPostgres:
		pool, err := NewPool(ctx, dsn)
		if err != nil {
			return nil, err
		}
		r := NewDeadLetterRepo(pool)
		if err := r.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return r, nil

	case DriverSQLite:
		return NewSQLiteStore(dsn)

	default:
		return nil, fmt.Errorf("unknown dead letter driver %q", driver)
	}
}
