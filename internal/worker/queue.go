package worker

import (
	"sync"

	"github.com/shaiso/Harvester/internal/task"
)

// Queue — потокобезопасная FIFO очередь payload'ов.
//
// Использует собственный мьютекс, независимый от блокировки координации пула.
type Queue struct {
	mu    sync.Mutex
	items []task.Payload
	head  int
}

// NewQueue создаёт пустую очередь.
func NewQueue() *Queue {
	return &Queue{}
}

// Push добавляет payload в конец очереди.
func (q *Queue) Push(p task.Payload) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, p)
}

// Pop извлекает payload из начала очереди.
func (q *Queue) Pop() (task.Payload, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.items) {
		return task.Payload{}, false
	}

	p := q.items[q.head]
	q.items[q.head] = task.Payload{}
	q.head++

	// Уплотняем, когда прочитанная часть занимает больше половины
	if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}

	return p, true
}

// Len возвращает количество payload'ов в очереди.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
