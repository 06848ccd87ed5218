// Package dispatch — ядро маршрутизации задач.
//
// Registry строится один раз при создании движка: нормализованное имя задачи
// (trim + upper case) → упорядоченный список фабрик. После построения
// реестр не меняется.
//
// Dispatcher обрабатывает один payload:
//
//  1. Ищет фабрики по имени. Нет фабрик — сообщение отбрасывается
//     (warn в лог, без dead-letter и без retry).
//  2. Для каждой фабрики в порядке регистрации создаёт экземпляр и выполняет его.
//  3. Ошибка или паника одной фабрики уходит в failure sink движка
//     и не мешает остальным фабрикам.
//
// Handle возвращает ошибку только если отказал сам failure sink.
package dispatch
