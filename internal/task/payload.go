package task

import "strings"

// Payload — единица работы, маршрутизируемая по имени задачи.
//
// Payload == nil означает отсутствующий или null payload в JSON.
type Payload struct {
	// Task — имя задачи (ключ маршрутизации).
	Task string `json:"task"`

	// Payload — непрозрачная строка для обработчика.
	Payload *string `json:"payload"`
}

// New создаёт Payload со строковым payload.
func New(name, payload string) Payload {
	return Payload{Task: name, Payload: &payload}
}

// Body возвращает payload или пустую строку, если payload отсутствует.
func (p Payload) Body() string {
	if p.Payload == nil {
		return ""
	}
	return *p.Payload
}

// NormalizeName приводит имя задачи к ключу реестра: trim + upper case.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
