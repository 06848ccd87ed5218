package task

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Stage — этап, на котором задача завершилась ошибкой.
type Stage string

// Этапы обработки.
const (
	StageInstantiate Stage = "instantiate"
	StageExecute     Stage = "execute"
)

// Error — ошибка конкретной фабрики при обработке payload.
//
// Попадает в failure sink движка вместе с payload.
type Error struct {
	// Task — имя задачи из payload.
	Task string

	// Factory — Go-тип фабрики.
	Factory string

	// Stage — этап (instantiate или execute).
	Stage Stage

	// Err — исходная ошибка.
	Err error

	// Stack — стек на момент перехвата ошибки (или паники).
	Stack []byte
}

// NewError создаёт Error и фиксирует текущий стек.
// Для паники сохраняется стек горутины в момент паники.
func NewError(name string, factory Factory, stage Stage, err error) *Error {
	stack := debug.Stack()
	var pe *PanicError
	if errors.As(err, &pe) && len(pe.Stack) > 0 {
		stack = pe.Stack
	}

	return &Error{
		Task:    name,
		Factory: fmt.Sprintf("%T", factory),
		Stage:   stage,
		Err:     err,
		Stack:   stack,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("task %s: %s %s: %v", e.Task, e.Factory, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StackTrace возвращает стек в виде строки.
func (e *Error) StackTrace() string {
	return string(e.Stack)
}

// PanicError — паника, перехваченная при выполнении задачи.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// StackTrace возвращает стек паники.
func (e *PanicError) StackTrace() string {
	return string(e.Stack)
}
