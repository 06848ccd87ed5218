package deadletter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Harvester/internal/task"
	"github.com/shaiso/Harvester/internal/telemetry"
)

// Sink сериализует ошибки задач и пишет их в Store.
type Sink struct {
	store  Store
	bucket string
	logger *slog.Logger

	// now подменяется в тестах.
	now func() time.Time
}

// NewSink создаёт Sink для bucket.
func NewSink(store Store, bucket string, logger *slog.Logger) *Sink {
	return &Sink{
		store:  store,
		bucket: bucket,
		logger: telemetry.OrDefault(logger),
		now:    time.Now,
	}
}

// keyAttempts — сколько соседних тиков ключа пробует Write при коллизии.
const keyAttempts = 16

// keyTick — разрешение времени в ключе (ffff).
const keyTick = 100 * time.Microsecond

// Write сохраняет запись и возвращает её ключ.
//
// Если ключ уже занят (две ошибки одного типа в один тик), берётся
// следующий тик, не более keyAttempts раз.
// Ошибка хранилища возвращается вызывающему: запасного sink нет.
func (s *Sink) Write(ctx context.Context, p task.Payload, err error) (string, error) {
	body, mErr := Marshal(p, err)
	if mErr != nil {
		return "", mErr
	}

	t := s.now()
	var key string
	var pErr error
	for attempt := 0; attempt < keyAttempts; attempt++ {
		key = Key(t, p.Task)
		pErr = s.store.Put(ctx, s.bucket, key, body)
		if !errors.Is(pErr, ErrExists) {
			break
		}
		s.logger.Debug("dead letter key taken, trying next tick", "bucket", s.bucket, "key", key)
		t = t.Add(keyTick)
	}
	if pErr != nil {
		telemetry.DeadLetters.WithLabelValues(p.Task, telemetry.ResultFailure).Inc()
		return "", fmt.Errorf("put dead letter %s/%s: %w", s.bucket, key, pErr)
	}

	telemetry.DeadLetters.WithLabelValues(p.Task, telemetry.ResultSuccess).Inc()
	s.logger.Info("dead letter written", "bucket", s.bucket, "key", key, "task", p.Task)

	return key, nil
}

// Handler возвращает функцию для worker.Config.FailureHandler.
func (s *Sink) Handler() func(ctx context.Context, p task.Payload, err error) error {
	return func(ctx context.Context, p task.Payload, err error) error {
		_, wErr := s.Write(ctx, p, err)
		return wErr
	}
}
