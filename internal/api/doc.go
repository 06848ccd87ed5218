// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go            — Handler с DI (движок, реестр, dead-letter store, logger)
//   - routes.go             — chi router и регистрация маршрутов
//   - middleware.go         — middleware (logging, recovery, metrics)
//   - response.go           — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                — Data Transfer Objects
//   - task_handler.go       — /api/v1/tasks, /api/v1/stats, /healthz
//   - deadletter_handler.go — /api/v1/dead-letters
//   - server.go             — запуск и graceful shutdown
//
// Endpoints:
//
//	GET  /healthz                      проверки зависимостей
//	GET  /metrics                      prometheus
//	GET  /api/v1/tasks                 зарегистрированные задачи
//	POST /api/v1/tasks                 постановка задачи {"task", "payload"}
//	GET  /api/v1/stats                 состояние движка (локальный пул)
//	GET  /api/v1/dead-letters?limit=   последние dead-letter записи
//	GET  /api/v1/dead-letters/{key}    тело записи
package api
