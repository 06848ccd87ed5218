package scheduler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"
)

// PayloadData — данные для шаблона payload.
//
// Используется в Go templates:
//   - {{ .Name }}                      — имя записи расписания
//   - {{ .Task }}                      — имя задачи
//   - {{ .Time | date "2006-01-02" }}  — время срабатывания (UTC)
//   - {{ env "TARGET_URL" }}           — переменная окружения
type PayloadData struct {
	Name string
	Task string
	Time time.Time
}

// templateFuncs — дополнительные функции для шаблонов.
var templateFuncs = template.FuncMap{
	// date — форматирует время по layout
	"date": func(layout string, t time.Time) string {
		return t.Format(layout)
	},

	// unix — время в секундах
	"unix": func(t time.Time) int64 {
		return t.Unix()
	},

	// json — сериализует значение в JSON строку
	"json": func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return string(b)
	},

	// default — возвращает значение по умолчанию, если второй аргумент пустой
	"default": func(def, val any) any {
		if val == nil {
			return def
		}
		if s, ok := val.(string); ok && s == "" {
			return def
		}
		return val
	},

	"env":     os.Getenv,
	"lower":   strings.ToLower,
	"upper":   strings.ToUpper,
	"trim":    strings.TrimSpace,
	"replace": strings.ReplaceAll,
}

// payloadTemplate — payload записи: готовая строка или шаблон.
type payloadTemplate struct {
	raw  string
	tmpl *template.Template
}

// parsePayload разбирает payload. Строка без {{ используется как есть.
func parsePayload(name, payload string) (*payloadTemplate, error) {
	pt := &payloadTemplate{raw: payload}
	if !strings.Contains(payload, "{{") {
		return pt, nil
	}

	t, err := template.New(name).Funcs(templateFuncs).Option("missingkey=error").Parse(payload)
	if err != nil {
		return nil, fmt.Errorf("parse payload template: %w", err)
	}
	pt.tmpl = t
	return pt, nil
}

// render возвращает payload для срабатывания.
func (pt *payloadTemplate) render(data PayloadData) (string, error) {
	if pt.tmpl == nil {
		return pt.raw, nil
	}

	var buf bytes.Buffer
	if err := pt.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render payload template: %w", err)
	}
	return buf.String(), nil
}
