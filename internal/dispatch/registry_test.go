package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/Harvester/internal/task"
)

func noop(context.Context, task.Engine, string) error { return nil }

func TestNewRegistry_NormalizesNames(t *testing.T) {
	r, err := NewRegistry([]task.Factory{
		task.Static("  itemParser ", noop),
		task.Static("ITEMPARSER", noop),
		task.Static("Fetch", noop),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		want int
	}{
		{"ItemParser", 2},
		{"itemparser", 2},
		{"\tITEMPARSER\n", 2},
		{"fetch", 1},
		{"unknown", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(r.Lookup(tt.name)); got != tt.want {
				t.Errorf("Lookup(%q) = %d factories, want %d", tt.name, got, tt.want)
			}
		})
	}

	if r.Len() != 2 {
		t.Errorf("expected 2 names, got %d", r.Len())
	}
}

func TestNewRegistry_PreservesRegistrationOrder(t *testing.T) {
	first := task.Static("same", noop)
	second := task.FactoryFunc{TaskName: "Same", New: func() (task.Task, error) { return task.Func(noop), nil }}

	r, err := NewRegistry([]task.Factory{first, second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := r.Lookup("SAME")
	if len(got) != 2 {
		t.Fatalf("expected 2 factories, got %d", len(got))
	}
	if _, ok := got[1].(task.FactoryFunc); !ok {
		t.Fatal("factories should keep registration order")
	}
	if got[1].Name() != "Same" {
		t.Errorf("expected second factory to be %q, got %q", "Same", got[1].Name())
	}
}

func TestNewRegistry_BlankNameFails(t *testing.T) {
	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := NewRegistry([]task.Factory{
			task.Static("valid", noop),
			task.Static(name, noop),
		})
		if !errors.Is(err, ErrEmptyTaskName) {
			t.Errorf("name %q: expected ErrEmptyTaskName, got %v", name, err)
		}
	}
}

func TestNewRegistry_NilFactoryFails(t *testing.T) {
	_, err := NewRegistry([]task.Factory{nil})
	if !errors.Is(err, ErrNilFactory) {
		t.Errorf("expected ErrNilFactory, got %v", err)
	}
}

// ptrFactory разыменовывает получатель в Name.
type ptrFactory struct{ name string }

func (f *ptrFactory) Name() string { return f.name }

func (f *ptrFactory) NewTask() (task.Task, error) { return task.Func(noop), nil }

func TestNewRegistry_TypedNilFactoryFails(t *testing.T) {
	var f *ptrFactory
	_, err := NewRegistry([]task.Factory{task.Static("Fetch", noop), f})
	if !errors.Is(err, ErrNilFactory) {
		t.Fatalf("expected ErrNilFactory, got %v", err)
	}
}

func TestRegistry_Names(t *testing.T) {
	r, err := NewRegistry([]task.Factory{
		task.Static("b", noop),
		task.Static("a", noop),
		task.Static("B", noop),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "A" || names[1] != "B" {
		t.Errorf("unexpected names: %v", names)
	}
}
