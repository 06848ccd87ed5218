// Package broker реализует движок задач поверх очереди сообщений.
//
// Engine получает сообщения через Consumer (в production — mq.Consumer,
// RabbitMQ), разбирает конверт {"task", "payload"} и передаёт его диспетчеру.
//
// Правила разбора конверта:
//   - пустое тело, невалидный JSON, не-объект, отсутствующий или null task —
//     сообщение логируется и отбрасывается (ack, без dead-letter)
//   - task: строка как есть, число и bool — литерал, объект и массив — ошибка
//   - payload: строка как есть, null или отсутствие — nil, иначе компактный JSON
//   - имя ItemParserPayload (без учёта регистра) заменяется на ItemParser
//
// Ошибки задач сохраняются через deadletter.Sink в bucket под ключом
// yyyy-MM-dd-HH-mm-ss-ffff.{task}.json. Если запись не удалась, OnMessage
// возвращает ошибку и брокер отправляет сообщение в свою DLQ.
package broker
