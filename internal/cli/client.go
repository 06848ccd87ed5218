package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// TaskListResponse — зарегистрированные задачи.
type TaskListResponse struct {
	Tasks []string `json:"tasks"`
}

// EnqueueResponse — поставленная задача.
type EnqueueResponse struct {
	Task    string  `json:"task"`
	Payload *string `json:"payload"`
}

// DeadLetterResponse — метаданные dead-letter записи.
type DeadLetterResponse struct {
	Key       string `json:"key"`
	TaskType  string `json:"task_type"`
	Size      int    `json:"size"`
	CreatedAt string `json:"created_at"`
}

// HealthResponse — ответ /healthz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// --- Request types ---

// EnqueueRequest — конверт задачи. Payload — строка или произвольный JSON.
type EnqueueRequest struct {
	Task    string          `json:"task"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Harvester API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Tasks ---

// ListTasks возвращает имена зарегистрированных задач.
func (c *Client) ListTasks() ([]string, error) {
	var resp TaskListResponse
	err := c.get("/api/v1/tasks", &resp)
	return resp.Tasks, err
}

// Enqueue ставит задачу в очередь.
func (c *Client) Enqueue(req EnqueueRequest) (*EnqueueResponse, error) {
	var resp EnqueueResponse
	err := c.post("/api/v1/tasks", req, &resp)
	return &resp, err
}

// Stats возвращает состояние движка.
func (c *Client) Stats() (map[string]any, error) {
	var stats map[string]any
	err := c.get("/api/v1/stats", &stats)
	return stats, err
}

// Health возвращает результат /healthz. Статус 503 — не ошибка клиента.
func (c *Client) Health() (*HealthResponse, error) {
	resp, err := c.do(http.MethodGet, "/healthz", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &health, nil
}

// --- Dead letters ---

// ListDeadLetters возвращает последние dead-letter записи.
func (c *Client) ListDeadLetters(limit int) ([]DeadLetterResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var letters []DeadLetterResponse
	err := c.list("/api/v1/dead-letters", params, &letters)
	return letters, err
}

// GetDeadLetter возвращает тело dead-letter записи.
func (c *Client) GetDeadLetter(key string) (json.RawMessage, error) {
	resp, err := c.do(http.MethodGet, "/api/v1/dead-letters/"+url.PathEscape(key), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
