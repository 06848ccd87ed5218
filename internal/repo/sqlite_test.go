package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "deadletters.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_PutGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := "2024-03-07-08-05-02-1234.ItemParser.json"
	body := []byte("{\n  \"taskType\": \"ItemParser\"\n}")

	if err := s.Put(ctx, "errors", key, body); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "errors", key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("body = %q, want %q", got, body)
	}
}

func TestSQLiteStore_WriteOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := "2024-03-07-08-05-02-1234.Fetch.json"
	if err := s.Put(ctx, "errors", key, []byte("{}")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	err := s.Put(ctx, "errors", key, []byte(`{"second":true}`))
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// Тот же ключ в другом bucket — другая запись.
	if err := s.Put(ctx, "other", key, []byte("{}")); err != nil {
		t.Fatalf("Put other bucket: %v", err)
	}
}

func TestSQLiteStore_GetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "errors", "missing.json")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	keys := []string{
		"2024-03-07-08-05-02-0001.Fetch.json",
		"2024-03-07-08-05-03-0000.Delay.json",
		"2024-03-07-08-05-02-0500.Fetch.json",
	}
	for _, k := range keys {
		if err := s.Put(ctx, "errors", k, []byte("{}")); err != nil {
			t.Fatalf("Put %s: %v", k, err)
		}
	}

	objects, err := s.List(ctx, "errors", 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(objects))
	}
	if objects[0].Key != keys[1] || objects[1].Key != keys[2] {
		t.Errorf("unexpected order: %s, %s", objects[0].Key, objects[1].Key)
	}
	if objects[0].TaskType != "Delay" || objects[0].Size != 2 || objects[0].Bucket != "errors" {
		t.Errorf("unexpected object %+v", objects[0])
	}
	if objects[0].CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/tmp/dl.db", "/tmp/dl.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"},
		{"file:dl.db?cache=shared", "file:dl.db?cache=shared&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"},
	}
	for _, tt := range tests {
		if got := sqliteDSN(tt.path); got != tt.want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestSQLiteStore_BusyTimeoutOnEveryConnection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Держим несколько соединений одновременно: пул вынужден открыть новые.
	for i := 0; i < 3; i++ {
		conn, err := s.db.Conn(ctx)
		if err != nil {
			t.Fatalf("Conn: %v", err)
		}
		defer conn.Close()

		var timeout int
		if err := conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("PRAGMA busy_timeout: %v", err)
		}
		if timeout != 5000 {
			t.Errorf("connection %d: busy_timeout = %d, want 5000", i, timeout)
		}
	}
}

func TestSQLiteStore_ConcurrentPut(t *testing.T) {
	const writers, perWriter = 8, 25

	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				key := fmt.Sprintf("2024-03-07-08-05-02-%02d%02d.Fetch.json", w, i)
				if err := s.Put(ctx, "errors", key, []byte("{}")); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Put: %v", err)
	}

	objects, err := s.List(ctx, "errors", writers*perWriter+1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(objects) != writers*perWriter {
		t.Errorf("stored %d records, want %d", len(objects), writers*perWriter)
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, err := OpenStore(ctx, DriverSQLite, filepath.Join(t.TempDir(), "open.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer s.Close()

	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}

	if _, err := OpenStore(ctx, "s3", "bucket"); err == nil {
		t.Error("expected error for unknown driver")
	}
}
