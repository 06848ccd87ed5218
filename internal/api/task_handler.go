package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/shaiso/Harvester/internal/broker"
)

const (
	maxTaskBodySize    = 1 << 20
	healthCheckTimeout = 2 * time.Second
)

// EnqueueTask ставит задачу в очередь движка.
// POST /api/v1/tasks
//
// Тело — конверт {"task": ..., "payload": ...}; payload может быть
// строкой или произвольным JSON (передаётся задаче как текст).
func (h *Handler) EnqueueTask(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTaskBodySize))
	if err != nil {
		BadRequest(w, "failed to read request body")
		return
	}

	p, err := broker.Decode(body)
	if err != nil {
		var envErr *broker.EnvelopeError
		switch {
		case errors.Is(err, broker.ErrEmptyBody):
			BadRequest(w, "request body is empty")
		case errors.As(err, &envErr):
			BadRequest(w, envErr.Reason)
		default:
			BadRequest(w, "invalid request body")
		}
		return
	}

	if h.registry != nil && len(h.registry.Lookup(p.Task)) == 0 {
		NotFound(w, "unknown task: "+p.Task)
		return
	}

	if err := h.enqueuer.AddTask(r.Context(), p); err != nil {
		h.logger.Error("failed to enqueue task", "task", p.Task, "error", err)
		Unavailable(w, "failed to enqueue task")
		return
	}

	Accepted(w, EnqueueResponse{Task: p.Task, Payload: p.Payload})
}

// ListTasks возвращает имена зарегистрированных задач.
// GET /api/v1/tasks
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	names := []string{}
	if h.registry != nil {
		names = h.registry.Names()
	}
	Success(w, TaskListResponse{Tasks: names})
}

// Stats возвращает состояние движка.
// GET /api/v1/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		NotFound(w, "stats are not available for this engine")
		return
	}
	Success(w, h.stats())
}

// Healthz выполняет проверки зависимостей.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok"}
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	JSON(w, status, resp)
}
