package dispatch

import (
	"fmt"
	"sort"

	"github.com/shaiso/Harvester/internal/task"
)

// Registry — реестр фабрик задач по нормализованному имени.
//
// Неизменяем после создания, поэтому безопасен для конкурентного чтения
// без блокировок.
type Registry struct {
	factories map[string][]task.Factory
}

// NewRegistry строит реестр из списка фабрик.
//
// Порядок фабрик с одинаковым именем сохраняется. Пустое (после нормализации)
// имя — фатальная ошибка построения: движок не должен стартовать.
func NewRegistry(factories []task.Factory) (*Registry, error) {
	r := &Registry{factories: make(map[string][]task.Factory)}

	for i, f := range factories {
		if f == nil {
			return nil, fmt.Errorf("%w: position %d", ErrNilFactory, i)
		}

		raw, err := factoryName(f)
		if err != nil {
			return nil, fmt.Errorf("%w: position %d: %v", ErrNilFactory, i, err)
		}

		name := task.NormalizeName(raw)
		if name == "" {
			return nil, fmt.Errorf("%w: factory %T", ErrEmptyTaskName, f)
		}

		r.factories[name] = append(r.factories[name], f)
	}

	return r, nil
}

// factoryName вызывает Name с перехватом паники. Так ловится nil-указатель,
// упакованный в интерфейс (f != nil, но метод разыменовывает nil).
func factoryName(f task.Factory) (name string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("factory %T: Name panicked: %v", f, rec)
		}
	}()
	return f.Name(), nil
}

// Lookup возвращает фабрики для имени задачи (любой регистр и пробелы).
// Отсутствие фабрик — не ошибка: возвращается nil.
func (r *Registry) Lookup(name string) []task.Factory {
	return r.factories[task.NormalizeName(name)]
}

// Names возвращает отсортированный список зарегистрированных имён.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len возвращает количество зарегистрированных имён.
func (r *Registry) Len() int {
	return len(r.factories)
}
