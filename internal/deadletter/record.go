package deadletter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shaiso/Harvester/internal/task"
)

// ErrorRecord — сериализуемое представление ошибки.
type ErrorRecord struct {
	// Type — Go-тип ошибки.
	Type string `json:"type"`

	// Message — текст ошибки.
	Message string `json:"message"`

	// StackTrace — стек, если ошибка его несёт.
	StackTrace string `json:"stackTrace,omitempty"`

	// InnerException — причина (errors.Unwrap).
	InnerException *ErrorRecord `json:"innerException,omitempty"`

	// InnerExceptions — причины объединённой ошибки (errors.Join).
	InnerExceptions []*ErrorRecord `json:"innerExceptions,omitempty"`
}

// Record — dead-letter запись.
type Record struct {
	TaskType  string       `json:"taskType"`
	Exception *ErrorRecord `json:"exception"`
	Payload   *string      `json:"payload"`
}

type stackTracer interface {
	StackTrace() string
}

// maxDepth ограничивает глубину цепочки причин.
const maxDepth = 32

// FromError строит ErrorRecord из цепочки ошибок.
func FromError(err error) *ErrorRecord {
	return fromError(err, 0)
}

func fromError(err error, depth int) *ErrorRecord {
	if err == nil || depth >= maxDepth {
		return nil
	}

	rec := &ErrorRecord{
		Type:    fmt.Sprintf("%T", err),
		Message: err.Error(),
	}

	if st, ok := err.(stackTracer); ok {
		rec.StackTrace = st.StackTrace()
	}

	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if r := fromError(inner, depth+1); r != nil {
				rec.InnerExceptions = append(rec.InnerExceptions, r)
			}
		}
	case interface{ Unwrap() error }:
		rec.InnerException = fromError(u.Unwrap(), depth+1)
	}

	return rec
}

// NewRecord создаёт запись для payload и ошибки.
func NewRecord(p task.Payload, err error) Record {
	return Record{
		TaskType:  p.Task,
		Exception: FromError(err),
		Payload:   p.Payload,
	}
}

// Marshal сериализует запись в JSON с отступами.
func Marshal(p task.Payload, err error) ([]byte, error) {
	body, mErr := json.MarshalIndent(NewRecord(p, err), "", "  ")
	if mErr != nil {
		return nil, fmt.Errorf("marshal dead letter: %w", mErr)
	}
	return body, nil
}

// Key возвращает ключ записи: yyyy-MM-dd-HH-mm-ss-ffff.{taskType}.json в UTC.
func Key(t time.Time, taskType string) string {
	t = t.UTC()
	return fmt.Sprintf("%s-%04d.%s.json",
		t.Format("2006-01-02-15-04-05"),
		t.Nanosecond()/int(100*time.Microsecond),
		taskType,
	)
}
