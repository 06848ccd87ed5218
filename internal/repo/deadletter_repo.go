package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Harvester/internal/deadletter"
)

const createDeadLettersTable = `
	CREATE TABLE IF NOT EXISTS dead_letters (
		bucket     TEXT        NOT NULL,
		key        TEXT        NOT NULL,
		task_type  TEXT        NOT NULL,
		body       JSON        NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (bucket, key)
	)
`

var _ Store = (*DeadLetterRepo)(nil)

// DeadLetterRepo — blob-хранилище dead-letter записей в PostgreSQL.
type DeadLetterRepo struct {
	pool *pgxpool.Pool
}

// NewDeadLetterRepo создаёт новый DeadLetterRepo.
func NewDeadLetterRepo(pool *pgxpool.Pool) *DeadLetterRepo {
	return &DeadLetterRepo{pool: pool}
}

// Pool возвращает пул соединений (для advisory-блокировок).
func (r *DeadLetterRepo) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping проверяет соединение с БД.
func (r *DeadLetterRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close закрывает пул соединений.
func (r *DeadLetterRepo) Close() error {
	r.pool.Close()
	return nil
}

// EnsureSchema создаёт таблицу dead_letters, если её нет.
func (r *DeadLetterRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createDeadLettersTable); err != nil {
		return fmt.Errorf("create dead_letters table: %w", err)
	}
	return nil
}

// Put сохраняет запись. Записи не перезаписываются.
func (r *DeadLetterRepo) Put(ctx context.Context, bucket, key string, body []byte) error {
	query := `
		INSERT INTO dead_letters (bucket, key, task_type, body)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (bucket, key) DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, query, bucket, key, deadletter.TaskTypeFromKey(key), string(body))
	if err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// Get возвращает тело записи.
func (r *DeadLetterRepo) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	query := `
		SELECT body::text
		FROM dead_letters
		WHERE bucket = $1 AND key = $2
	`
	var body string
	err := r.pool.QueryRow(ctx, query, bucket, key).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dead letter: %w", err)
	}
	return []byte(body), nil
}

// List возвращает последние записи bucket, новые первыми.
func (r *DeadLetterRepo) List(ctx context.Context, bucket string, limit int) ([]deadletter.Object, error) {
	query := `
		SELECT bucket, key, task_type, octet_length(body::text), created_at
		FROM dead_letters
		WHERE bucket = $1
		ORDER BY key DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, bucket, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var objects []deadletter.Object
	for rows.Next() {
		var o deadletter.Object
		if err := rows.Scan(&o.Bucket, &o.Key, &o.TaskType, &o.Size, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		objects = append(objects, o)
	}
	return objects, rows.Err()
}
