// Package repo реализует хранилища dead-letter записей.
//
//   - DeadLetterRepo — PostgreSQL (pgx), для broker-движка
//   - SQLiteStore    — локальный файл SQLite, для локального движка
//
// Обе реализации удовлетворяют deadletter.Store: записи write-once,
// ключ (bucket, key), List отдаёт новые записи первыми (ключ начинается
// с UTC-времени, поэтому сортировка по ключу совпадает с хронологической).
//
// AdvisoryLock используется для выбора лидера планировщика.
package repo
