// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики диспетчера и пула воркеров
//   - tracing.go — OpenTelemetry tracer provider
//
// Логгер не хранится в глобальном состоянии компонентов: каждый компонент
// получает *slog.Logger через свой Config.
package telemetry
