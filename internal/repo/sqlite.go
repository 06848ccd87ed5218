package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shaiso/Harvester/internal/deadletter"

	_ "modernc.org/sqlite"
)

const createSQLiteDeadLettersTable = `
CREATE TABLE IF NOT EXISTS dead_letters (
    bucket     TEXT     NOT NULL,
    key        TEXT     NOT NULL,
    task_type  TEXT     NOT NULL,
    body       BLOB     NOT NULL,
    created_at DATETIME NOT NULL,
    PRIMARY KEY (bucket, key)
)`

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore — dead-letter хранилище в локальном файле SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// sqlitePragmas применяются драйвером к каждому соединению пула.
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
}

// sqliteDSN добавляет pragma-параметры modernc.org/sqlite к пути базы.
func sqliteDSN(dbPath string) string {
	params := make([]string, 0, len(sqlitePragmas))
	for _, p := range sqlitePragmas {
		params = append(params, "_pragma="+p)
	}

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + strings.Join(params, "&")
}

// NewSQLiteStore открывает базу по пути dbPath и создаёт таблицу.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(createSQLiteDeadLettersTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create dead_letters table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Ping проверяет доступность базы.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close закрывает базу.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put сохраняет запись. Повторный ключ — ErrAlreadyExists.
func (s *SQLiteStore) Put(ctx context.Context, bucket, key string, body []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dead_letters (bucket, key, task_type, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		bucket, key, deadletter.TaskTypeFromKey(key), body, time.Now().UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert dead letter: %w", err)
	}
	return nil
}

// Get возвращает тело записи.
func (s *SQLiteStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM dead_letters WHERE bucket = ? AND key = ?`, bucket, key,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dead letter: %w", err)
	}
	return body, nil
}

// List возвращает последние записи bucket, новые первыми.
func (s *SQLiteStore) List(ctx context.Context, bucket string, limit int) ([]deadletter.Object, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT bucket, key, task_type, length(body), created_at
		FROM dead_letters WHERE bucket = ?
		ORDER BY key DESC LIMIT ?`, bucket, listLimit(limit),
	)
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
