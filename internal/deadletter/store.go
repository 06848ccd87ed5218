package deadletter

import (
	"context"
	"errors"
	"time"
)

// Ошибки хранилища.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("dead letter not found")

	// ErrExists — запись с таким ключом уже есть (записи write-once).
	ErrExists = errors.New("dead letter already exists")
)

// Object — метаданные сохранённой записи.
type Object struct {
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	TaskType  string    `json:"task_type"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Store — blob-хранилище dead-letter записей.
type Store interface {
	// Put сохраняет запись. Повторная запись по тому же ключу — ErrExists.
	Put(ctx context.Context, bucket, key string, body []byte) error

	// Get возвращает тело записи или ErrNotFound.
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// List возвращает последние записи (новые первыми).
	List(ctx context.Context, bucket string, limit int) ([]Object, error)
}

// TaskTypeFromKey извлекает тип задачи из ключа записи.
func TaskTypeFromKey(key string) string {
	// yyyy-MM-dd-HH-mm-ss-ffff = 24 символа + "."
	const prefix = 25
	const suffix = len(".json")

	if len(key) <= prefix+suffix {
		return ""
	}
	return key[prefix : len(key)-suffix]
}
