package api

import (
	"time"

	"github.com/shaiso/Harvester/internal/deadletter"
)

// EnqueueResponse — ответ на постановку задачи.
type EnqueueResponse struct {
	Task    string  `json:"task"`
	Payload *string `json:"payload"`
}

// TaskListResponse — зарегистрированные задачи.
type TaskListResponse struct {
	Tasks []string `json:"tasks"`
}

// DeadLetterResponse — метаданные dead-letter записи.
type DeadLetterResponse struct {
	Key       string    `json:"key"`
	TaskType  string    `json:"task_type"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// DeadLetterFromObject конвертирует deadletter.Object в DTO.
func DeadLetterFromObject(o deadletter.Object) DeadLetterResponse {
	return DeadLetterResponse{
		Key:       o.Key,
		TaskType:  o.TaskType,
		Size:      o.Size,
		CreatedAt: o.CreatedAt.UTC(),
	}
}

// HealthResponse — ответ /healthz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
