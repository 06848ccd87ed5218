package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

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

func (e *fakeEnqueuer) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.added)
}

func TestParseSpec(t *testing.T) {
	for _, spec := range []string{"0 3 * * *", "*/5 * * * *", "@hourly", "@every 1m"} {
		if _, err := ParseSpec(spec); err != nil {
			t.Errorf("ParseSpec(%q): %v", spec, err)
		}
	}

	for _, spec := range []string{"", "every day", "0 3 * *", "61 * * * *"} {
		if _, err := ParseSpec(spec); err == nil {
			t.Errorf("ParseSpec(%q) should fail", spec)
		}
	}
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New(Config{
		Entries:  []Entry{{Name: "broken", Spec: "not a cron", Task: "Fetch"}},
		Enqueuer: &fakeEnqueuer{},
		Logger:   telemetry.Discard(),
	})
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("expected error naming the schedule, got %v", err)
	}
}

func TestNew_DuplicateName(t *testing.T) {
	_, err := New(Config{
		Entries: []Entry{
			{Name: "a", Spec: "@hourly", Task: "Fetch"},
			{Name: "a", Spec: "@daily", Task: "Fetch"},
		},
		Enqueuer: &fakeEnqueuer{},
		Logger:   telemetry.Discard(),
	})
	if err == nil {
		t.Fatal("expected duplicate schedule error")
	}
}

func TestTrigger_Enqueues(t *testing.T) {
	enq := &fakeEnqueuer{}
	s, err := New(Config{
		Entries:  []Entry{{Name: "nightly", Spec: "0 3 * * *", Task: "Fetch", Payload: `{"url":"https://example.com"}`}},
		Enqueuer: enq,
		Logger:   telemetry.Discard(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := s.Trigger(context.Background(), "nightly"); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if enq.count() != 1 {
		t.Fatalf("expected one task, got %d", enq.count())
	}
	p := enq.added[0]
	if p.Task != "Fetch" || p.Body() != `{"url":"https://example.com"}` {
		t.Errorf("unexpected payload %+v", p)
	}

	if err := s.Trigger(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown schedule")
	}
}

func TestTrigger_EnqueueError(t *testing.T) {
	enqErr := errors.New("broker down")
	s, err := New(Config{
		Entries:  []Entry{{Name: "x", Spec: "@hourly", Task: "Log"}},
		Enqueuer: &fakeEnqueuer{err: enqErr},
		Logger:   telemetry.Discard(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := s.Trigger(context.Background(), "x"); !errors.Is(err, enqErr) {
		t.Fatalf("expected enqueue error, got %v", err)
	}
}

func TestStart_FiresOnSchedule(t *testing.T) {
	enq := &fakeEnqueuer{}
	s, err := New(Config{
		Entries:  []Entry{{Name: "tick", Spec: "@every 1s", Task: "Log", Payload: "tick"}},
		Enqueuer: enq,
		Logger:   telemetry.Discard(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s.Start()
	if s.Next("tick").IsZero() {
		t.Error("next run should be known after start")
	}

	deadline := time.Now().Add(3 * time.Second)
	for enq.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if enq.count() == 0 {
		t.Fatal("expected the scheduled task to be enqueued")
	}
}

func TestTrigger_RendersPayloadTemplate(t *testing.T) {
	t.Setenv("HARVESTER_TEST_SITE", "example.com")

	enq := &fakeEnqueuer{}
	s, err := New(Config{
		Entries: []Entry{{
			Name:    "daily",
			Spec:    "@daily",
			Task:    "Fetch",
			Payload: `{"url":"https://{{ env "HARVESTER_TEST_SITE" }}/{{ .Time | date "2006/01/02" }}","tag":"{{ .Name | upper }}"}`,
		}},
		Enqueuer: enq,
		Logger:   telemetry.Discard(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.now = func() time.Time { return time.Date(2024, 3, 7, 23, 30, 0, 0, time.FixedZone("X", -2*3600)) }

	if err := s.Trigger(context.Background(), "daily"); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	want := `{"url":"https://example.com/2024/03/08","tag":"DAILY"}`
	if got := enq.added[0].Body(); got != want {
		t.Errorf("payload = %s, want %s", got, want)
	}
}

func TestNew_InvalidPayloadTemplate(t *testing.T) {
	_, err := New(Config{
		Entries:  []Entry{{Name: "bad", Spec: "@daily", Task: "Fetch", Payload: "{{ .Time "}},
		Enqueuer: &fakeEnqueuer{},
		Logger:   telemetry.Discard(),
	})
	if err == nil {
		t.Fatal("expected template parse error")
	}
}
