package review

import (
	"errors"
	"fmt"
	"strings"
)

// Kind tags a failure so callers can branch without matching on text.
type Kind string

const (
	KindUpstreamUnavailable   Kind = "upstream_unavailable"
	KindMalformedShape        Kind = "malformed_shape"
	KindMissingRequiredFields Kind = "missing_required_fields"
	KindUnknownStatus         Kind = "unknown_status"
	KindMissingItemName       Kind = "missing_item_name"
	KindDeliveryFailed        Kind = "delivery_failed"
	KindInvalidWatermark      Kind = "invalid_watermark"
)

// Error is the tagged failure returned by the poller, the validator and the
// status formatter.
type Error struct {
	Kind Kind
	Msg  string

	// StatusCode is the upstream HTTP status for KindUpstreamUnavailable (0 on transport errors).
	StatusCode int
	// Value is the offending value for KindUnknownStatus.
	Value string

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Upstream builds a KindUpstreamUnavailable error for a non-200 status code.
func Upstream(statusCode int) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Msg: fmt.Sprintf("Неудачный запрос к API. Статус %d", statusCode), StatusCode: statusCode}
}

// UpstreamTransport builds a KindUpstreamUnavailable error for a transport failure.
func UpstreamTransport(err error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Msg: "Не удалось подключиться к API", Err: err}
}

// Delivery builds a KindDeliveryFailed error.
func Delivery(err error) *Error {
	return &Error{Kind: KindDeliveryFailed, Msg: "Не удалось отправить сообщение в Telegram", Err: err}
}

// KindOf returns the Kind carried by err, or "" when err is not tagged.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
