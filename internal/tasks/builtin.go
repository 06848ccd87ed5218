package tasks

import (
	"log/slog"
	"net/http"

	"github.com/shaiso/Harvester/internal/task"
)

// Builtin возвращает фабрики всех встроенных задач.
func Builtin(client *http.Client, logger *slog.Logger) []task.Factory {
	return []task.Factory{
		&FetchFactory{Client: client},
		Delay(),
		Log(logger),
	}
}
