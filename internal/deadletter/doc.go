// Package deadletter формирует и сохраняет записи о неуспешных задачах.
//
// Запись:
//
//	{
//	  "taskType": "ItemParser",
//	  "exception": {"type": "...", "message": "...", "stackTrace": "...", "innerException": {...}},
//	  "payload": "..."
//	}
//
// Ошибка сериализуется по явному списку полей (ErrorRecord), без
// служебных полей рантайма. Ключ записи:
//
//	yyyy-MM-dd-HH-mm-ss-ffff.{taskType}.json (UTC)
//
// Хранилище (Store) — внешний коллаборатор: реализации живут в пакете repo.
package deadletter
