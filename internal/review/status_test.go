package review

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStatusVerdicts(t *testing.T) {
	t.Parallel()
	for status, verdict := range verdicts {
		msg, err := ParseStatus(WorkItem{Status: status, Name: "Проект 1"})
		require.NoError(t, err)
		require.True(t, strings.HasSuffix(msg, verdict), "message %q", msg)
		require.Contains(t, msg, `"Проект 1"`)
	}

	msg, err := ParseStatus(WorkItem{Status: StatusApproved, Name: "hw"})
	require.NoError(t, err)
	require.Equal(t, `Изменился статус проверки работы "hw". Работа проверена: ревьюеру всё понравилось. Ура!`, msg)
}

func TestVerdict(t *testing.T) {
	t.Parallel()
	v, ok := Verdict(StatusReviewing)
	require.True(t, ok)
	require.Equal(t, "Работа взята на проверку ревьюером.", v)
	_, ok = Verdict("graded")
	require.False(t, ok)
}

func TestParseStatusFailures(t *testing.T) {
	t.Parallel()
	_, err := ParseStatus(WorkItem{Status: "graded", Name: "hw"})
	require.Equal(t, KindUnknownStatus, KindOf(err))
	var e *Error
	require.True(t, errors.As(err, &e))
	require.Equal(t, "graded", e.Value)

	_, err = ParseStatus(WorkItem{Status: StatusRejected, Name: "  "})
	require.Equal(t, KindMissingItemName, KindOf(err))

	// Status is checked before the name.
	_, err = ParseStatus(WorkItem{Status: "", Name: ""})
	require.Equal(t, KindUnknownStatus, KindOf(err))
}

func TestParseStatusIsIdempotent(t *testing.T) {
	t.Parallel()
	item := WorkItem{ID: "42", Status: StatusReviewing, Name: "final"}
	first, err := ParseStatus(item)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := ParseStatus(item)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestDecodeItem(t *testing.T) {
	t.Parallel()
	raw := decode(t, `{"id": 123, "status": "approved", "homework_name": "a.zip", "reviewer_comment": "ok", "lesson_name": "L1"}`)
	item, err := DecodeItem(raw)
	require.NoError(t, err)
	require.Equal(t, WorkItem{ID: "123", Status: StatusApproved, Name: "a.zip", Comment: "ok", Lesson: "L1"}, item)

	_, err = DecodeItem("not an object")
	require.Equal(t, KindMalformedShape, KindOf(err))
}

func TestDecodeItemRejectsNonStringFields(t *testing.T) {
	t.Parallel()
	_, err := DecodeItem(decode(t, `{"status": "approved", "homework_name": {"a": 1}}`))
	require.Equal(t, KindMissingItemName, KindOf(err))
	require.NotContains(t, err.Error(), "map[")

	_, err = DecodeItem(decode(t, `{"status": "approved", "homework_name": 17}`))
	require.Equal(t, KindMissingItemName, KindOf(err))

	_, err = DecodeItem(decode(t, `{"status": ["approved"], "homework_name": "hw"}`))
	require.Equal(t, KindUnknownStatus, KindOf(err))
	var e *Error
	require.True(t, errors.As(err, &e))
	require.Equal(t, `["approved"]`, e.Value)

	// Missing optional fields and odd descriptive fields still decode.
	item, err := DecodeItem(decode(t, `{"status": "reviewing", "homework_name": "hw", "reviewer_comment": {"x": 1}}`))
	require.NoError(t, err)
	require.Equal(t, WorkItem{Status: StatusReviewing, Name: "hw"}, item)
}

func TestErrorText(t *testing.T) {
	t.Parallel()
	require.Equal(t, "Неудачный запрос к API. Статус 503", Upstream(503).Error())
	require.Equal(t, 503, Upstream(503).StatusCode)
	err := UpstreamTransport(errors.New("connection refused"))
	require.Equal(t, "Не удалось подключиться к API: connection refused", err.Error())
	require.Equal(t, KindUpstreamUnavailable, KindOf(err))
	require.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
