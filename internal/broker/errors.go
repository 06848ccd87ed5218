package broker

import (
	"errors"
	"fmt"
)

// ErrEmptyBody — сообщение без тела.
var ErrEmptyBody = errors.New("message body is empty")

// EnvelopeError — тело сообщения не является корректным конвертом задачи.
type EnvelopeError struct {
	Reason string
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("invalid task envelope: %s", e.Reason)
}
