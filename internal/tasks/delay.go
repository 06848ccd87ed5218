package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shaiso/Harvester/internal/task"
)

// DelayName — имя задачи Delay.
const DelayName = "Delay"

// Delay — задача, ожидающая указанное количество секунд.
//
// Payload: {"duration_sec": 1.5} (default: 1). Поддерживает отмену через context.
// Полезна для проверки остановки пула и нагрузочных прогонов.
func Delay() task.Factory {
	return task.Static(DelayName, func(ctx context.Context, _ task.Engine, payload string) error {
		durationSec := 1.0

		var cfg struct {
			DurationSec float64 `json:"duration_sec"`
		}
		if payload != "" && json.Unmarshal([]byte(payload), &cfg) == nil && cfg.DurationSec > 0 {
			durationSec = cfg.DurationSec
		}

		// Context-aware ожидание
		select {
		case <-time.After(time.Duration(durationSec * float64(time.Second))):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
