package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Причины отбрасывания сообщений.
const (
	DropUnknownTask = "unknown_task"
	DropEmptyBody   = "empty_body"
	DropMalformed   = "malformed"
)

// Результаты выполнения задач.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	// TaskExecutions — количество выполнений задач по имени и результату.
	TaskExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_task_executions_total",
			Help: "Total number of task executions by task name and result.",
		},
		[]string{"task", "result"},
	)

	// TaskDuration — длительность выполнения задач.
	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harvester_task_duration_seconds",
			Help:    "Task execution duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task"},
	)

	// MessagesDropped — отброшенные сообщения (не попадают в dead-letter).
	MessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_messages_dropped_total",
			Help: "Total number of dropped messages by reason.",
		},
		[]string{"reason"},
	)

	// DeadLetters — записанные dead-letter записи.
	DeadLetters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_dead_letters_total",
			Help: "Total number of dead-letter records written.",
		},
		[]string{"task", "result"},
	)

	// QueueDepth — размер локальной очереди.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "harvester_queue_depth",
		Help: "Number of payloads waiting in the local queue.",
	})

	// WorkersBusy — количество воркеров, обрабатывающих payload.
	WorkersBusy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "harvester_workers_busy",
		Help: "Number of local workers currently dispatching a payload.",
	})
)

var (
	// HTTPRequests — количество HTTP запросов к API.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPDuration — длительность HTTP запросов.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harvester_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
