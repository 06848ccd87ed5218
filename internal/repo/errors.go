package repo

import "github.com/shaiso/Harvester/internal/deadletter"

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = deadletter.ErrNotFound

	// ErrAlreadyExists — запись уже существует (конфликт уникальности).
	ErrAlreadyExists = deadletter.ErrExists
)

// defaultListLimit — лимит выборки, если вызывающий не указал свой.
const defaultListLimit = 100

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
