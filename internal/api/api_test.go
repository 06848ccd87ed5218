package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/Harvester/internal/deadletter"
	"github.com/shaiso/Harvester/internal/dispatch"
	"github.com/shaiso/Harvester/internal/task"
	"github.com/shaiso/Harvester/internal/telemetry"
)

type fakeEnqueuer struct {
	mu    sync.Mutex
	added []task.Payload
	err   error
}

func (e *fakeEnqueuer) AddTask(_ context.Context, p task.Payload) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.added = append(e.added, p)
	return nil
}

type memStore struct {
	objects []deadletter.Object
	bodies  map[string][]byte
	listErr error
}

func (s *memStore) Put(context.Context, string, string, []byte) error { return nil }

func (s *memStore) Get(_ context.Context, _ string, key string) ([]byte, error) {
	body, ok := s.bodies[key]
	if !ok {
		return nil, deadletter.ErrNotFound
	}
	return body, nil
}

func (s *memStore) List(_ context.Context, _ string, limit int) ([]deadletter.Object, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if limit < len(s.objects) {
		return s.objects[:limit], nil
	}
	return s.objects, nil
}

func noop(context.Context, task.Engine, string) error { return nil }

func newTestHandler(t *testing.T, enq *fakeEnqueuer, store *memStore, checks map[string]HealthCheck) http.Handler {
	t.Helper()
	registry, err := dispatch.NewRegistry([]task.Factory{
		task.Static("Fetch", noop),
		task.Static("ItemParser", noop),
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	cfg := Config{
		Enqueuer: enq,
		Registry: registry,
		Bucket:   "errors",
		Checks:   checks,
		Stats:    func() any { return map[string]int{"queued": 3} },
		Logger:   telemetry.Discard(),
	}
	if store != nil {
		cfg.Store = store
	}
	return NewHandler(cfg).Router()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestEnqueueTask(t *testing.T) {
	enq := &fakeEnqueuer{}
	h := newTestHandler(t, enq, nil, nil)

	rec := do(t, h, http.MethodPost, "/api/v1/tasks", `{"task":"Fetch","payload":{"url":"https://example.com"}}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	if len(enq.added) != 1 {
		t.Fatalf("expected one task, got %d", len(enq.added))
	}
	if got := enq.added[0]; got.Task != "Fetch" || got.Body() != `{"url":"https://example.com"}` {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestEnqueueTask_LegacyAlias(t *testing.T) {
	enq := &fakeEnqueuer{}
	h := newTestHandler(t, enq, nil, nil)

	rec := do(t, h, http.MethodPost, "/api/v1/tasks", `{"task":"ItemParserPayload","payload":"x"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if enq.added[0].Task != "ItemParser" {
		t.Errorf("task = %q, want ItemParser", enq.added[0].Task)
	}
}

func TestEnqueueTask_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"empty body", "", nil, http.StatusBadRequest},
		{"invalid json", "{", nil, http.StatusBadRequest},
		{"missing task", `{"payload":"x"}`, nil, http.StatusBadRequest},
		{"unknown task", `{"task":"Nope"}`, nil, http.StatusNotFound},
		{"enqueue failure", `{"task":"Fetch"}`, errors.New("broker down"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enq := &fakeEnqueuer{err: tt.err}
			h := newTestHandler(t, enq, nil, nil)

			rec := do(t, h, http.MethodPost, "/api/v1/tasks", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body)
			}

			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Error.Code == "" || resp.Error.Message == "" {
				t.Errorf("error response is incomplete: %+v", resp)
			}
		})
	}
}

func TestListTasks(t *testing.T) {
	h := newTestHandler(t, &fakeEnqueuer{}, nil, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/tasks", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Data TaskListResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Join(resp.Data.Tasks, ",") != "FETCH,ITEMPARSER" {
		t.Errorf("unexpected tasks %v", resp.Data.Tasks)
	}
}

func TestStats(t *testing.T) {
	h := newTestHandler(t, &fakeEnqueuer{}, nil, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/stats", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"queued":3`) {
		t.Errorf("unexpected stats response %d %s", rec.Code, rec.Body)
	}
}

func TestDeadLetters(t *testing.T) {
	key := "2024-03-07-08-05-02-1234.Fetch.json"
	store := &memStore{
		objects: []deadletter.Object{
			{Bucket: "errors", Key: key, TaskType: "Fetch", Size: 2, CreatedAt: time.Date(2024, 3, 7, 8, 5, 2, 0, time.UTC)},
			{Bucket: "errors", Key: "2024-03-07-08-05-01-0000.Delay.json", TaskType: "Delay", Size: 2},
		},
		bodies: map[string][]byte{key: []byte(`{"taskType":"Fetch"}`)},
	}
	h := newTestHandler(t, &fakeEnqueuer{}, store, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/dead-letters?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list struct {
		Data  []DeadLetterResponse `json:"data"`
		Total int                  `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 1 || list.Data[0].Key != key || list.Data[0].TaskType != "Fetch" {
		t.Errorf("unexpected list %+v", list)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/dead-letters/"+key, "")
	if rec.Code != http.StatusOK || rec.Body.String() != `{"taskType":"Fetch"}` {
		t.Errorf("unexpected get response %d %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/dead-letters/missing.json", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing key status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/dead-letters?limit=zero", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}
}

func TestDeadLetters_StoreError(t *testing.T) {
	h := newTestHandler(t, &fakeEnqueuer{}, &memStore{listErr: errors.New("db down")}, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/dead-letters", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	healthy := newTestHandler(t, &fakeEnqueuer{}, nil, map[string]HealthCheck{
		"broker": func(context.Context) error { return nil },
	})
	if rec := do(t, healthy, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthy status = %d", rec.Code)
	}

	degraded := newTestHandler(t, &fakeEnqueuer{}, nil, map[string]HealthCheck{
		"broker":   func(context.Context) error { return nil },
		"database": func(context.Context) error { return errors.New("connection refused") },
	})
	rec := do(t, degraded, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("degraded status = %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Checks["database"] != "connection refused" || resp.Checks["broker"] != "ok" {
		t.Errorf("unexpected checks %+v", resp.Checks)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, &fakeEnqueuer{}, nil, nil)

	do(t, h, http.MethodGet, "/api/v1/tasks", "")
	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "harvester_http_requests_total") {
		t.Errorf("metrics endpoint does not expose http metrics: %d", rec.Code)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(telemetry.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := do(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newTestHandler(t, &fakeEnqueuer{}, nil, nil)

	if rec := do(t, h, http.MethodGet, "/api/v1/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/api/v1/tasks", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}
