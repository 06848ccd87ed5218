// Package config загружает конфигурацию Harvester.
//
// Источники в порядке приоритета:
//  1. переменные окружения с префиксом HARVESTER_ (точка в ключе заменяется на _,
//     например HARVESTER_BROKER_QUEUE)
//  2. файл harvester.yaml в ./configs или в текущей директории
//  3. значения по умолчанию
//
// После загрузки структура проверяется validator'ом; cron-выражения
// расписаний разбираются тем же парсером, что и в планировщике.
package config
