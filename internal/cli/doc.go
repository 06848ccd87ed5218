// Package cli реализует инструмент командной строки Harvester.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Harvester API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для постановки задач и просмотра dead-letter записей.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Harvester API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	tasks, err := client.ListTasks()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: harvester dead-letter list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - task: list, enqueue
//   - dead-letter: list, show
//   - status
//
// Каждая группа создаётся через фабричную функцию (NewTaskCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
