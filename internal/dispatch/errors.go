package dispatch

import "errors"

// Ошибки диспетчера.
var (
	// ErrEmptyTaskName — фабрика зарегистрирована с пустым именем задачи.
	ErrEmptyTaskName = errors.New("task factory name is empty")

	// ErrNilFactory — в списке фабрик есть nil.
	ErrNilFactory = errors.New("task factory is nil")

	// ErrNilTask — фабрика вернула nil вместо задачи.
	ErrNilTask = errors.New("task factory returned nil task")
)
