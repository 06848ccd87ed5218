package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AdvisoryLock — сессионная advisory-блокировка PostgreSQL.
//
// Блокировка держится, пока открыто соединение conn.
type AdvisoryLock struct {
	conn *pgxpool.Conn
	key  int64
}

// TryAdvisoryLock пытается взять блокировку key без ожидания.
// Если блокировку держит другая сессия, возвращает nil, nil.
func TryAdvisoryLock(ctx context.Context, pool *pgxpool.Pool, key int64) (*AdvisoryLock, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&ok); err != nil {
		conn.Release()
		return nil, fmt.Errorf("try advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return nil, nil
	}

	return &AdvisoryLock{conn: conn, key: key}, nil
}

// Alive проверяет, что соединение с блокировкой живо.
func (l *AdvisoryLock) Alive(ctx context.Context) bool {
	return l.conn.Ping(ctx) == nil
}

// Release снимает блокировку и возвращает соединение в пул.
func (l *AdvisoryLock) Release(ctx context.Context) error {
	defer l.conn.Release()

	if _, err := l.conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, l.key); err != nil {
		return fmt.Errorf("advisory unlock: %w", err)
	}
	return nil
}
