package watcher

import (
	"context"
	"time"

	"statusbot/internal/review"
)

// Fetcher requests the raw status feed since a watermark.
type Fetcher interface {
	Fetch(ctx context.Context, watermark review.Watermark) (any, error)
}

// Notifier delivers one message to the configured chat.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Schedule yields the next cycle start after t.
type Schedule interface {
	Next(t time.Time) time.Time
}

// Outcome classifies how a cycle ended.
type Outcome string

const (
	OutcomeNoChange        Outcome = "no_change"
	OutcomeStatusSent      Outcome = "status_sent"
	OutcomeStatusLost      Outcome = "status_delivery_failed"
	OutcomeUpstreamError   Outcome = "upstream_error"
	OutcomeInvalidResponse Outcome = "invalid_response"
	OutcomeInvalidItem     Outcome = "invalid_item"
	OutcomeCanceled        Outcome = "canceled"
)

// Result describes one finished cycle.
type Result struct {
	ID        string
	Outcome   Outcome
	Err       error
	Watermark review.Watermark
	// Notified is true when a message left the process during this cycle.
	Notified bool
}

// Snapshot is a point-in-time view for health endpoints. Safe to read from any goroutine.
type Snapshot struct {
	Watermark     int64     `json:"watermark"`
	Cycles        uint64    `json:"cycles"`
	LastOutcome   string    `json:"last_outcome,omitempty"`
	LastCycleAt   time.Time `json:"last_cycle_at,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	OpenIncidents []string  `json:"open_incidents,omitempty"`
	Schedule      string    `json:"schedule,omitempty"`
}

// errorPrefix heads every error notification.
const errorPrefix = "Сбой в работе программы: "
