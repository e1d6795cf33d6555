package review

import (
	"encoding/json"
	"fmt"
	"strings"
)

var verdicts = map[Status]string{
	StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
	StatusReviewing: "Работа взята на проверку ревьюером.",
	StatusRejected:  "Работа проверена: у ревьюера есть замечания.",
}

// Verdict returns the fixed text for a known status.
func Verdict(s Status) (string, bool) {
	v, ok := verdicts[s]
	return v, ok
}

// DecodeItem reads a work item out of a raw list element. status and
// homework_name must be JSON strings when present; anything else is rejected
// here so it never reaches the formatted message.
func DecodeItem(raw any) (WorkItem, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return WorkItem{}, newError(KindMalformedShape, "Элемент %q не является объектом, получен %s", keyItems, typeName(raw))
	}

	var status Status
	switch v := obj[keyStatus].(type) {
	case nil:
	case string:
		status = Status(v)
	default:
		e := newError(KindUnknownStatus, "Получен неизвестный статус домашней работы: %s", rawText(v))
		e.Value = rawText(v)
		return WorkItem{}, e
	}

	var name string
	switch v := obj[keyName].(type) {
	case nil:
	case string:
		name = v
	default:
		return WorkItem{}, newError(KindMissingItemName, "Название домашней работы не является строкой, получен %s", typeName(v))
	}

	return WorkItem{
		ID:      scalar(obj[keyID]),
		Status:  status,
		Name:    name,
		Comment: scalar(obj[keyComment]),
		Lesson:  scalar(obj[keyLesson]),
		Updated: scalar(obj[keyUpdated]),
	}, nil
}

// scalar reads optional descriptive fields. Non-scalar values are dropped.
func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return ""
	}
}

// rawText renders an offending value as compact JSON.
func rawText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return typeName(v)
	}
	return string(b)
}

// ParseStatus renders the notification for a status change of item.
// It is pure: the same item always yields the same text.
func ParseStatus(item WorkItem) (string, error) {
	verdict, ok := Verdict(item.Status)
	if !ok {
		e := newError(KindUnknownStatus, "Получен неизвестный статус домашней работы: %q", string(item.Status))
		e.Value = string(item.Status)
		return "", e
	}
	name := strings.TrimSpace(item.Name)
	if name == "" {
		return "", newError(KindMissingItemName, "Не передано название домашней работы")
	}
	return fmt.Sprintf("Изменился статус проверки работы \"%s\". %s", name, verdict), nil
}
