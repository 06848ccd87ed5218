package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shaiso/Harvester/internal/dispatch"
	"github.com/shaiso/Harvester/internal/task"
	"github.com/shaiso/Harvester/internal/telemetry"
)

// Default configuration values.
const (
	defaultWorkers      = 1
	defaultIdleInterval = 250 * time.Millisecond
	defaultShutdownWait = time.Second
)

// FailureHandler получает payload и ошибку неуспешной задачи.
type FailureHandler func(ctx context.Context, p task.Payload, err error) error

// Pool — локальный движок: фиксированный пул воркеров, разбирающих общую FIFO очередь.
//
// Жизненный цикл: Stopped → Starting → Running → Stopping → Stopped.
// Start блокирует вызывающего до полной остановки пула.
type Pool struct {
	dispatcher *dispatch.Dispatcher
	queue      *Queue
	onFailure  FailureHandler

	// Configuration
	workers      int
	idleInterval time.Duration
	shutdownWait time.Duration
	stopWhenIdle bool

	// mu сериализует изменение run-флага и запуск/остановку воркеров.
	mu      sync.Mutex
	running atomic.Bool
	current *run

	logger *slog.Logger
}

// Config — конфигурация Pool.
type Config struct {
	// Factories — фабрики задач; реестр строится один раз в New.
	Factories []task.Factory

	// FailureHandler — failure sink (опционально; nil — только лог).
	FailureHandler FailureHandler

	// Workers — количество воркеров (default: 1).
	Workers int

	// IdleInterval — пауза воркера при пустой очереди (default: 250ms).
	IdleInterval time.Duration

	// ShutdownWait — сколько Stop ждёт остановки воркеров (default: 1s).
	ShutdownWait time.Duration

	// StopWhenIdle — остановить пул, когда очередь пуста и никто не работает.
	StopWhenIdle bool

	// Logger
	Logger *slog.Logger
}

// slot — статус одного воркера. Пишет только сам воркер.
type slot struct {
	alive atomic.Bool
	busy  atomic.Bool
}

// run — состояние одного запуска пула.
type run struct {
	slots    []*slot
	stop     chan struct{}
	stopOnce sync.Once
	exited   chan struct{}
}

// requestStop закрывает канал остановки. Идемпотентен.
func (r *run) requestStop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *run) anyAlive() bool {
	for _, s := range r.slots {
		if s.alive.Load() {
			return true
		}
	}
	return false
}

func (r *run) anyBusy() bool {
	for _, s := range r.slots {
		if s.busy.Load() {
			return true
		}
	}
	return false
}

// New создаёт Pool.
//
// Возвращает ошибку, если реестр задач не удалось построить
// (например, фабрика с пустым именем).
func New(cfg Config) (*Pool, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	idleInterval := cfg.IdleInterval
	if idleInterval <= 0 {
		idleInterval = defaultIdleInterval
	}

	shutdownWait := cfg.ShutdownWait
	if shutdownWait <= 0 {
		shutdownWait = defaultShutdownWait
	}

	logger := telemetry.OrDefault(cfg.Logger)

	registry, err := dispatch.NewRegistry(cfg.Factories)
	if err != nil {
		return nil, fmt.Errorf("build task registry: %w", err)
	}

	p := &Pool{
		queue:        NewQueue(),
		onFailure:    cfg.FailureHandler,
		workers:      workers,
		idleInterval: idleInterval,
		shutdownWait: shutdownWait,
		stopWhenIdle: cfg.StopWhenIdle,
		logger:       logger,
	}
	p.dispatcher = dispatch.New(registry, p, logger)

	logger.Info("created local worker pool",
		"workers", workers,
		"tasks", registry.Names(),
		"stop_when_idle", cfg.StopWhenIdle,
	)

	return p, nil
}

// Registry возвращает реестр задач пула.
func (p *Pool) Registry() *dispatch.Registry {
	return p.dispatcher.Registry()
}

// AddTask добавляет payload в очередь. Не блокируется.
func (p *Pool) AddTask(_ context.Context, payload task.Payload) error {
	p.queue.Push(payload)
	depth := p.queue.Len()
	telemetry.QueueDepth.Set(float64(depth))

	p.logger.Debug("task added to queue", "task", payload.Task, "queue_size", depth)
	return nil
}

// AddFailedTask логирует ошибку и передаёт её в FailureHandler.
func (p *Pool) AddFailedTask(ctx context.Context, payload task.Payload, err error) error {
	p.logger.Error("task failed",
		"task", payload.Task,
		"payload", payload.Body(),
		"error", err,
	)

	if p.onFailure == nil {
		return nil
	}
	return p.onFailure(ctx, payload, err)
}

// Start запускает воркеры и блокируется, пока пул не остановится.
//
// Отмена ctx инициирует остановку (без ожидания), как и Stop.
// Задачи выполняются с контекстом без отмены: прерывания задачи посередине нет.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running.Load() || (p.current != nil && p.current.anyAlive()) {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}

	p.logger.Info("starting worker pool", "workers", p.workers)

	r := &run{
		slots:  make([]*slot, p.workers),
		stop:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	p.current = r
	p.running.Store(true)

	taskCtx := context.WithoutCancel(ctx)

	// Вектор статусов заполняется целиком до запуска воркеров:
	// работающий воркер читает все слоты в anyBusy.
	for i := range r.slots {
		s := &slot{}
		s.alive.Store(true)
		r.slots[i] = s
	}

	var wg sync.WaitGroup
	for i := range r.slots {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			p.work(taskCtx, r, index)
		}(i)
	}

	go func() {
		wg.Wait()
		close(r.exited)
	}()
	p.mu.Unlock()

	select {
	case <-r.exited:
	case <-ctx.Done():
		p.logger.Info("context cancelled, stopping worker pool")
		p.requestStop(r)
		<-r.exited
	}

	p.logger.Info("worker pool stopped")
	return nil
}

// Stop снимает run-флаг и ждёт остановки воркеров не дольше ShutdownWait.
//
// Если воркеры не остановились вовремя — ErrShutdownTimeout.
// Повторный вызов безопасен.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	r := p.current
	if r != nil {
		p.requestStop(r)
	}
	p.mu.Unlock()

	if r == nil {
		return nil
	}

	start := time.Now()
	timer := time.NewTimer(p.shutdownWait)
	defer timer.Stop()

	select {
	case <-r.exited:
		return nil
	case <-timer.C:
		elapsed := time.Since(start)
		p.logger.Error("failed to shutdown worker pool", "elapsed", elapsed)
		return fmt.Errorf("%w: after %s", ErrShutdownTimeout, elapsed)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats — снимок состояния пула.
type Stats struct {
	Running bool `json:"running"`
	Alive   int  `json:"alive"`
	Busy    int  `json:"busy"`
	Queued  int  `json:"queued"`
}

// Stats возвращает текущее состояние пула.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	r := p.current
	p.mu.Unlock()

	st := Stats{
		Running: p.running.Load(),
		Queued:  p.queue.Len(),
	}
	if r != nil {
		for _, s := range r.slots {
			if s.alive.Load() {
				st.Alive++
			}
			if s.busy.Load() {
				st.Busy++
			}
		}
	}
	return st
}

// requestStop снимает run-флаг и будит спящих воркеров. Не ждёт.
func (p *Pool) requestStop(r *run) {
	p.running.Store(false)
	r.requestStop()
}

// work — основной цикл воркера.
func (p *Pool) work(ctx context.Context, r *run, index int) {
	s := r.slots[index]
	logger := telemetry.WithWorker(p.logger, index)

	defer func() {
		s.busy.Store(false)
		s.alive.Store(false)
		logger.Info("task worker is stopped")
	}()

	for p.running.Load() {
		if !p.step(ctx, r, s, logger) {
			break
		}
	}
	logger.Info("task worker is stopping")
}

// step выполняет одну итерацию цикла. Возвращает false, если воркер должен выйти.
//
// Сбой внутри итерации (паника вне задачи, отказ failure sink) логируется,
// захваченный payload уходит в failure sink, воркер продолжает работу.
func (p *Pool) step(ctx context.Context, r *run, s *slot, logger *slog.Logger) (cont bool) {
	var (
		payload task.Payload
		claimed bool
	)

	defer func() {
		if rec := recover(); rec != nil {
			if s.busy.Swap(false) {
				telemetry.WorkersBusy.Dec()
			}
			err := &task.PanicError{Value: rec, Stack: debug.Stack()}
			p.loopFailure(ctx, logger, payload, claimed, err)
			cont = true
		}
	}()

	if p.queue.Len() == 0 {
		if p.stopWhenIdle && !r.anyBusy() && p.queue.Len() == 0 {
			logger.Info("queue is empty and no worker is busy, shutting down")
			p.requestStop(r)
			return false
		}

		logger.Debug("no messages to be processed")
		select {
		case <-time.After(p.idleInterval):
		case <-r.stop:
		}
		return true
	}

	// busy выставляется до извлечения: иначе другой воркер может увидеть
	// пустую очередь и ни одного занятого воркера.
	s.busy.Store(true)
	telemetry.WorkersBusy.Inc()
	defer func() {
		if s.busy.Swap(false) {
			telemetry.WorkersBusy.Dec()
		}
	}()

	payload, claimed = p.queue.Pop()
	telemetry.QueueDepth.Set(float64(p.queue.Len()))
	if !claimed {
		logger.Debug("unable to get message from the queue")
		return true
	}

	logger.Debug("worker has started working", "task", payload.Task)
	if err := p.dispatcher.Handle(ctx, payload); err != nil {
		p.loopFailure(ctx, logger, payload, claimed, err)
	}
	logger.Debug("worker is done working", "task", payload.Task)

	return true
}

// loopFailure обрабатывает сбой на уровне цикла воркера.
func (p *Pool) loopFailure(ctx context.Context, logger *slog.Logger, payload task.Payload, claimed bool, err error) {
	logger.Error("exception while executing job", "error", err)
	if !claimed {
		return
	}

	if sinkErr := p.AddFailedTask(ctx, payload, err); sinkErr != nil {
		logger.Error("failure handler failed", "task", payload.Task, "error", sinkErr)
	}
}
