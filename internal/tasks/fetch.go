package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Harvester/internal/task"
)

const (
	defaultFetchTimeout = 30 * time.Second
	maxFetchBody        = 10 << 20
)

// ErrFetch — HTTP-запрос завершился ошибкой.
var ErrFetch = errors.New("fetch failed")

// FetchName — имя задачи Fetch.
const FetchName = "Fetch"

// FetchRequest — payload задачи Fetch.
//
//	{
//	  "url": "https://example.com/item/1",
//	  "method": "GET",
//	  "headers": {"User-Agent": "harvester"},
//	  "timeout_sec": 10,
//	  "next_task": "ItemParser"
//	}
type FetchRequest struct {
	URL        string            `json:"url"`
	Method     string            `json:"method,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	TimeoutSec float64           `json:"timeout_sec,omitempty"`

	// NextTask — задача, в которую передаётся тело ответа (опционально).
	NextTask string `json:"next_task,omitempty"`
}

// FetchResult — payload follow-up задачи.
type FetchResult struct {
	URL        string            `json:"url"`
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// FetchFactory создаёт задачи Fetch.
type FetchFactory struct {
	// Client — HTTP-клиент (nil — http.DefaultClient).
	Client *http.Client
}

// Name возвращает имя задачи.
func (f *FetchFactory) Name() string {
	return FetchName
}

// NewTask создаёт задачу Fetch.
func (f *FetchFactory) NewTask() (task.Task, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &fetchTask{client: client}, nil
}

type fetchTask struct {
	client *http.Client
}

// Execute выполняет HTTP-запрос и, если указан next_task, ставит
// follow-up задачу с телом ответа. HTTP >= 400 считается ошибкой.
func (t *fetchTask) Execute(ctx context.Context, engine task.Engine, payload string) error {
	var req FetchRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return fmt.Errorf("%w: decode payload: %v", ErrFetch, err)
	}
	if req.URL == "" {
		return fmt.Errorf("%w: url is required", ErrFetch)
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	timeout := defaultFetchTimeout
	if req.TimeoutSec > 0 {
		timeout = time.Duration(req.TimeoutSec * float64(time.Second))
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrFetch, err)
	}
	for key, val := range req.Headers {
		httpReq.Header.Set(key, val)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrFetch, err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: HTTP %d: %s", ErrFetch, resp.StatusCode, truncate(string(body), 200))
	}

	if req.NextTask == "" {
		return nil
	}

	next, err := json.Marshal(FetchResult{
		URL:        req.URL,
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       string(body),
	})
	if err != nil {
		return fmt.Errorf("marshal fetch result: %w", err)
	}

	return engine.AddTask(ctx, task.New(req.NextTask, string(next)))
}

// flattenHeaders берёт первое значение каждого заголовка.
func flattenHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for key := range h {
		headers[key] = h.Get(key)
	}
	return headers
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
