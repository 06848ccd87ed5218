package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaiso/Harvester/internal/task"
	"github.com/shaiso/Harvester/internal/telemetry"
)

const tracerName = "github.com/shaiso/Harvester/internal/dispatch"

// Dispatcher прогоняет payload через все фабрики, зарегистрированные под его именем.
type Dispatcher struct {
	registry *Registry
	engine   task.Engine
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New создаёт Dispatcher.
//
// engine передаётся задачам как дескриптор и используется как failure sink.
func New(registry *Registry, engine task.Engine, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		engine:   engine,
		logger:   telemetry.OrDefault(logger),
		tracer:   otel.Tracer(tracerName),
	}
}

// Registry возвращает реестр диспетчера.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Handle обрабатывает один payload.
//
// Ошибки задач не возвращаются: они уходят в failure sink.
// Возвращается только ошибка самого sink (объединённая по всем фабрикам).
func (d *Dispatcher) Handle(ctx context.Context, p task.Payload) error {
	factories := d.registry.Lookup(p.Task)
	if len(factories) == 0 {
		d.logger.Warn("unknown task type", "task", p.Task)
		telemetry.MessagesDropped.WithLabelValues(telemetry.DropUnknownTask).Inc()
		return nil
	}

	logger := telemetry.WithTask(d.logger, p.Task)

	var sinkErrs []error
	for _, f := range factories {
		if err := d.run(ctx, logger, f, p); err != nil {
			if sinkErr := d.fail(ctx, logger, p, err); sinkErr != nil {
				sinkErrs = append(sinkErrs, sinkErr)
			}
		}
	}

	return errors.Join(sinkErrs...)
}

// run создаёт и выполняет одну задачу. Возвращает *task.Error при неудаче.
func (d *Dispatcher) run(ctx context.Context, logger *slog.Logger, f task.Factory, p task.Payload) error {
	name := task.NormalizeName(p.Task)

	ctx, span := d.tracer.Start(ctx, "dispatch.execute",
		trace.WithAttributes(
			attribute.String("task.name", name),
			attribute.String("task.factory", fmt.Sprintf("%T", f)),
		),
	)
	defer span.End()

	t, err := instantiate(f)
	if err != nil {
		logger.Error("unable to get task instance", "factory", fmt.Sprintf("%T", f), "error", err)
		return d.taskFailed(span, name, task.NewError(p.Task, f, task.StageInstantiate, err))
	}

	logger.Info("working with task", "instance", fmt.Sprintf("%T", t))

	start := time.Now()
	err = execute(ctx, t, d.engine, p.Body())
	telemetry.TaskDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		logger.Error("task execution failed", "instance", fmt.Sprintf("%T", t), "error", err)
		return d.taskFailed(span, name, task.NewError(p.Task, f, task.StageExecute, err))
	}

	telemetry.TaskExecutions.WithLabelValues(name, telemetry.ResultSuccess).Inc()
	return nil
}

func (d *Dispatcher) taskFailed(span trace.Span, name string, err *task.Error) error {
	telemetry.TaskExecutions.WithLabelValues(name, telemetry.ResultFailure).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// fail отправляет ошибку в failure sink движка.
func (d *Dispatcher) fail(ctx context.Context, logger *slog.Logger, p task.Payload, err error) error {
	if d.engine == nil {
		return nil
	}

	if sinkErr := d.engine.AddFailedTask(ctx, p, err); sinkErr != nil {
		logger.Error("failure sink rejected failed task", "error", sinkErr)
		return fmt.Errorf("add failed task %s: %w", p.Task, sinkErr)
	}
	return nil
}

// instantiate вызывает фабрику, превращая панику в ошибку.
func instantiate(f task.Factory) (t task.Task, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &task.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	t, err = f.NewTask()
	if err == nil && t == nil {
		err = ErrNilTask
	}
	return t, err
}

// execute выполняет задачу, превращая панику в ошибку.
func execute(ctx context.Context, t task.Task, engine task.Engine, payload string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &task.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	return t.Execute(ctx, engine, payload)
}
