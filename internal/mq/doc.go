// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Сообщение — JSON конверт задачи {"task": ..., "payload": ...};
// AMQP-свойство Type содержит имя задачи.
//
// Exchanges:
//   - harvester.tasks — рабочие очереди (routing key = имя очереди)
//   - harvester.dlq   — dead letter queue (<queue>.dlq)
//
// Consumer подтверждает сообщение после успешной обработки и отклоняет без
// возврата в очередь при ошибке: такое сообщение уходит в DLQ брокера.
// Необработанное дольше x-consumer-timeout сообщение брокер возвращает в очередь.
package mq
