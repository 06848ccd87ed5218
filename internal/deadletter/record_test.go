package deadletter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/Harvester/internal/task"
)

func TestKey_Format(t *testing.T) {
	ts := time.Date(2024, 3, 7, 9, 5, 2, 123456789, time.FixedZone("CET", 3600))

	got := Key(ts, "ItemParser")
	want := "2024-03-07-08-05-02-1234.ItemParser.json"
	if got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}

	if TaskTypeFromKey(got) != "ItemParser" {
		t.Errorf("TaskTypeFromKey(%q) = %q", got, TaskTypeFromKey(got))
	}
}

func TestKey_ZeroFraction(t *testing.T) {
	ts := time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
	if got := Key(ts, "x"); got != "2024-12-31-23-59-59-0000.x.json" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestTaskTypeFromKey_Short(t *testing.T) {
	if got := TaskTypeFromKey("short.json"); got != "" {
		t.Errorf("expected empty task type, got %q", got)
	}
}

func TestFromError_Chain(t *testing.T) {
	root := errors.New("connection refused")
	wrapped := fmt.Errorf("fetch page: %w", root)
	taskErr := &task.Error{Task: "Fetch", Factory: "*tasks.FetchFactory", Stage: task.StageExecute, Err: wrapped, Stack: []byte("goroutine 1 [running]")}

	rec := FromError(taskErr)

	if rec.Type != "*task.Error" {
		t.Errorf("unexpected type %q", rec.Type)
	}
	if rec.StackTrace != "goroutine 1 [running]" {
		t.Errorf("stack trace should be taken from the error, got %q", rec.StackTrace)
	}
	if rec.InnerException == nil || rec.InnerException.Message != "fetch page: connection refused" {
		t.Fatalf("unexpected inner exception: %+v", rec.InnerException)
	}
	if rec.InnerException.StackTrace != "" {
		t.Error("plain errors carry no stack trace")
	}
	inner := rec.InnerException.InnerException
	if inner == nil || inner.Message != "connection refused" || inner.InnerException != nil {
		t.Fatalf("unexpected root cause: %+v", inner)
	}
}

func TestFromError_Joined(t *testing.T) {
	rec := FromError(errors.Join(errors.New("a"), errors.New("b")))
	if len(rec.InnerExceptions) != 2 {
		t.Fatalf("expected 2 inner exceptions, got %d", len(rec.InnerExceptions))
	}
	if rec.InnerExceptions[1].Message != "b" {
		t.Errorf("unexpected inner exception %+v", rec.InnerExceptions[1])
	}
}

func TestFromError_Nil(t *testing.T) {
	if FromError(nil) != nil {
		t.Error("nil error should produce nil record")
	}
}

func TestMarshal_AllowListedFields(t *testing.T) {
	body, err := Marshal(task.New("ItemParser", "x"), errors.New("boom"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(string(body), "\n  \"taskType\"") {
		t.Errorf("record should be pretty-printed:\n%s", body)
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, key := range []string{"taskType", "exception", "payload"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing field %q", key)
		}
	}

	exc := doc["exception"].(map[string]any)
	for key := range exc {
		switch key {
		case "type", "message", "stackTrace", "innerException", "innerExceptions":
		default:
			t.Errorf("unexpected exception field %q", key)
		}
	}
	if exc["message"] != "boom" {
		t.Errorf("unexpected message %v", exc["message"])
	}
}

func TestMarshal_NullPayload(t *testing.T) {
	body, err := Marshal(task.Payload{Task: "t"}, errors.New("boom"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(body), `"payload": null`) {
		t.Errorf("null payload should be kept as null:\n%s", body)
	}
}

// memStore — in-memory Store для тестов.
type memStore struct {
	objects map[string][]byte
	err     error
}

func (m *memStore) Put(_ context.Context, bucket, key string, body []byte) error {
	if m.err != nil {
		return m.err
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	if _, ok := m.objects[bucket+"/"+key]; ok {
		return ErrExists
	}
	m.objects[bucket+"/"+key] = body
	return nil
}

func (m *memStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	body, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, ErrNotFound
	}
	return body, nil
}

func (m *memStore) List(context.Context, string, int) ([]Object, error) {
	return nil, nil
}

func TestSink_Write(t *testing.T) {
	store := &memStore{}
	sink := NewSink(store, "failures", nil)
	sink.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 600000000, time.UTC) }

	key, err := sink.Write(context.Background(), task.New("Fetch", "p"), errors.New("boom"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "2024-01-02-03-04-05-6000.Fetch.json" {
		t.Errorf("unexpected key %q", key)
	}
	if _, ok := store.objects["failures/"+key]; !ok {
		t.Error("record should be stored in bucket")
	}
}

func TestSink_StoreFailurePropagates(t *testing.T) {
	down := errors.New("storage unavailable")
	sink := NewSink(&memStore{err: down}, "failures", nil)

	err := sink.Handler()(context.Background(), task.New("Fetch", "p"), errors.New("boom"))
	if !errors.Is(err, down) {
		t.Errorf("expected storage error, got %v", err)
	}
}

func TestSink_SameTickGetsNextKey(t *testing.T) {
	store := &memStore{}
	sink := NewSink(store, "failures", nil)
	sink.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 600000000, time.UTC) }

	first, err := sink.Write(context.Background(), task.New("Fetch", "a"), errors.New("boom"))
	if err != nil {
		t.Fatalf("first write: %v", err)
	}
	second, err := sink.Write(context.Background(), task.New("Fetch", "b"), errors.New("boom"))
	if err != nil {
		t.Fatalf("second write: %v", err)
	}

	if first != "2024-01-02-03-04-05-6000.Fetch.json" {
		t.Errorf("unexpected first key %q", first)
	}
	if second != "2024-01-02-03-04-05-6001.Fetch.json" {
		t.Errorf("unexpected second key %q", second)
	}
	if len(store.objects) != 2 {
		t.Errorf("expected 2 stored records, got %d", len(store.objects))
	}
}

func TestSink_GivesUpAfterKeyAttempts(t *testing.T) {
	store := &memStore{}
	sink := NewSink(store, "failures", nil)
	sink.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	for i := 0; i < keyAttempts; i++ {
		if _, err := sink.Write(context.Background(), task.New("Fetch", "p"), errors.New("boom")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	_, err := sink.Write(context.Background(), task.New("Fetch", "p"), errors.New("boom"))
	if !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists after %d attempts, got %v", keyAttempts, err)
	}
}
