// Package tasks содержит встроенные служебные задачи.
//
//   - Fetch — HTTP-запрос; тело ответа можно передать в следующую задачу (next_task)
//   - Delay — ожидание duration_sec секунд
//   - Log   — запись payload в лог
//
// Бизнес-логика скрейпинга (парсинг страниц и т.п.) живёт в обработчиках
// приложения, а не здесь.
package tasks
