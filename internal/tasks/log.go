package tasks

import (
	"context"
	"log/slog"

	"github.com/shaiso/Harvester/internal/task"
	"github.com/shaiso/Harvester/internal/telemetry"
)

// LogName — имя задачи Log.
const LogName = "Log"

// Log — задача, которая пишет payload в лог.
func Log(logger *slog.Logger) task.Factory {
	logger = telemetry.OrDefault(logger)
	return task.Static(LogName, func(_ context.Context, _ task.Engine, payload string) error {
		logger.Info("log task", "payload", payload)
		return nil
	})
}
