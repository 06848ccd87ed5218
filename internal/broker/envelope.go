package broker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shaiso/Harvester/internal/task"
)

const (
	legacyItemParserName = "ItemParserPayload"
	itemParserName       = "ItemParser"
)

// Decode разбирает тело сообщения в Payload.
//
// Ошибки: ErrEmptyBody, ошибка синтаксиса JSON, *EnvelopeError.
func Decode(body []byte) (task.Payload, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return task.Payload{}, ErrEmptyBody
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return task.Payload{}, fmt.Errorf("decode envelope: %w", err)
		}
		return task.Payload{}, &EnvelopeError{Reason: "body is not a JSON object"}
	}

	rawTask, ok := fields["task"]
	if !ok {
		return task.Payload{}, &EnvelopeError{Reason: "missing task field"}
	}

	name, err := taskName(rawTask)
	if err != nil {
		return task.Payload{}, err
	}

	payload, err := payloadText(fields["payload"])
	if err != nil {
		return task.Payload{}, err
	}

	return task.Payload{Task: resolveAlias(name), Payload: payload}, nil
}

// taskName приводит поле task к строке.
// Числа и булевы значения берутся как литерал; null, объект и массив — ошибка.
func taskName(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", &EnvelopeError{Reason: "task is not a valid string"}
		}
		return s, nil
	case 'n':
		return "", &EnvelopeError{Reason: "task is null"}
	case '{', '[':
		return "", &EnvelopeError{Reason: "task must be a scalar"}
	default:
		return string(raw), nil
	}
}

// payloadText приводит поле payload к строке.
// Строка берётся как есть, null или отсутствие — nil, остальное — компактный JSON.
func payloadText(raw json.RawMessage) (*string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, &EnvelopeError{Reason: "payload is not a valid string"}
		}
		return &s, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, &EnvelopeError{Reason: "payload is not valid JSON"}
	}
	s := buf.String()
	return &s, nil
}

// resolveAlias заменяет устаревшее имя ItemParserPayload на ItemParser.
func resolveAlias(name string) string {
	if strings.EqualFold(name, legacyItemParserName) {
		return itemParserName
	}
	return name
}

// Encode сериализует Payload в конверт {"task", "payload"}.
func Encode(p task.Payload) ([]byte, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return body, nil
}
