package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronParser — парсер cron-выражений: пять полей или дескриптор (@hourly, @every 1m).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSpec разбирает cron-выражение.
func ParseSpec(spec string) (cron.Schedule, error) {
	schedule, err := cronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return schedule, nil
}

// cronLogger адаптирует slog к cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
