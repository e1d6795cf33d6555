package review

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		body  string
		kind  Kind
		items int
		wm    Watermark
	}{
		{name: "empty items", body: `{"homeworks": [], "current_date": 1000}`, wm: 1000},
		{name: "one item", body: `{"homeworks": [{"status": "approved", "homework_name": "x"}], "current_date": 1100}`, items: 1, wm: 1100},
		{name: "bare list", body: `[{"homeworks": []}]`, kind: KindMalformedShape},
		{name: "scalar", body: `"oops"`, kind: KindMalformedShape},
		{name: "missing items", body: `{"current_date": 1}`, kind: KindMissingRequiredFields},
		{name: "missing watermark", body: `{"homeworks": []}`, kind: KindMissingRequiredFields},
		{name: "null items", body: `{"homeworks": null, "current_date": 1}`, kind: KindMissingRequiredFields},
		{name: "items is mapping", body: `{"homeworks": {"a": 1}, "current_date": 1}`, kind: KindMalformedShape},
		{name: "items is scalar", body: `{"homeworks": 3, "current_date": 1}`, kind: KindMalformedShape},
		{name: "fractional watermark", body: `{"homeworks": [], "current_date": 1.5}`, kind: KindMalformedShape},
		{name: "string watermark", body: `{"homeworks": [], "current_date": "now"}`, kind: KindMalformedShape},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Validate(decode(t, tt.body))
			if tt.kind != "" {
				require.Error(t, err)
				require.Equal(t, tt.kind, KindOf(err))
				return
			}
			require.NoError(t, err)
			require.Len(t, got.Items, tt.items)
			require.Equal(t, tt.wm, got.Watermark)
		})
	}
}

func TestValidateShapeMessagesDiffer(t *testing.T) {
	t.Parallel()
	_, errTop := Validate([]any{})
	_, errItems := Validate(map[string]any{"homeworks": "x", "current_date": json.Number("1")})
	require.Equal(t, KindMalformedShape, KindOf(errTop))
	require.Equal(t, KindMalformedShape, KindOf(errItems))
	require.NotEqual(t, errTop.Error(), errItems.Error())
}
