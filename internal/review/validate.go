package review

import (
	"encoding/json"
	"math"
	"strconv"
)

// Validate checks the minimal structural contract of a decoded response.
// Checks run in order and the first failure wins. Items are not inspected.
func Validate(raw any) (PollResponse, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return PollResponse{}, newError(KindMalformedShape, "Структура ответа API не соответствует ожиданиям: ожидался объект, получен %s", typeName(raw))
	}

	items, hasItems := obj[keyItems]
	wm, hasWatermark := obj[keyWatermark]
	if !hasItems || items == nil || !hasWatermark || wm == nil {
		return PollResponse{}, newError(KindMissingRequiredFields, "В ответе API нет необходимых данных: %q и %q", keyItems, keyWatermark)
	}

	list, ok := items.([]any)
	if !ok {
		return PollResponse{}, newError(KindMalformedShape, "В ответе API под ключом %q данные приходят не в виде списка, получен %s", keyItems, typeName(items))
	}

	w, err := toWatermark(wm)
	if err != nil {
		return PollResponse{}, err
	}
	return PollResponse{Items: list, Watermark: w}, nil
}

func toWatermark(v any) (Watermark, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return 0, newError(KindMalformedShape, "В ответе API под ключом %q не целое число: %s", keyWatermark, n.String())
		}
		return Watermark(i), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, newError(KindMalformedShape, "В ответе API под ключом %q не целое число: %v", keyWatermark, n)
		}
		return Watermark(int64(n)), nil
	case int64:
		return Watermark(n), nil
	case int:
		return Watermark(n), nil
	default:
		return 0, newError(KindMalformedShape, "В ответе API под ключом %q не число, получен %s", keyWatermark, typeName(v))
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "list"
	case string:
		return "string"
	case bool:
		return "bool"
	case json.Number, float64, int, int64:
		return "number"
	default:
		return "unknown"
	}
}
