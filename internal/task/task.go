package task

import "context"

// Task — экземпляр задачи.
//
// Execute выполняется синхронно в горутине воркера и возвращает ошибку,
// если задача завершилась неуспешно. Паника внутри Execute перехватывается
// диспетчером и считается ошибкой задачи.
type Task interface {
	Execute(ctx context.Context, engine Engine, payload string) error
}

// Factory — именованный производитель экземпляров Task.
//
// Несколько фабрик могут быть зарегистрированы под одним именем (fan-out).
type Factory interface {
	// Name возвращает имя задачи, под которым регистрируется фабрика.
	Name() string

	// NewTask создаёт новый экземпляр задачи.
	// Может вернуть ошибку, например при некорректной конфигурации.
	NewTask() (Task, error)
}

// Enqueuer — всё, что умеет принимать новые задачи.
type Enqueuer interface {
	AddTask(ctx context.Context, p Payload) error
}

// Engine — дескриптор движка, передаваемый задаче.
type Engine interface {
	Enqueuer

	// AddFailedTask фиксирует неуспешную задачу (failure sink движка).
	AddFailedTask(ctx context.Context, p Payload, err error) error
}

// Func — адаптер обычной функции к интерфейсу Task.
type Func func(ctx context.Context, engine Engine, payload string) error

// Execute вызывает f.
func (f Func) Execute(ctx context.Context, engine Engine, payload string) error {
	return f(ctx, engine, payload)
}

// FactoryFunc — фабрика из имени и функции-конструктора.
type FactoryFunc struct {
	TaskName string
	New      func() (Task, error)
}

// Name возвращает имя задачи.
func (f FactoryFunc) Name() string {
	return f.TaskName
}

// NewTask вызывает конструктор.
func (f FactoryFunc) NewTask() (Task, error) {
	return f.New()
}

// Static возвращает фабрику, которая на каждый вызов отдаёт Func.
func Static(name string, fn Func) Factory {
	return FactoryFunc{
		TaskName: name,
		New:      func() (Task, error) { return fn, nil },
	}
}
