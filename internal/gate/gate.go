// Package gate suppresses repeated error notifications: each error category
// is announced once per incident and stays quiet until the incident ends.
package gate

import (
	"context"

	"statusbot/internal/review"
)

// Category groups errors that share one incident.
type Category string

const (
	ConnectAPI     Category = "connect_api"
	MalformedShape Category = "malformed_shape"
	MissingFields  Category = "missing_fields"
	UnknownStatus  Category = "unknown_status"
	MissingName    Category = "missing_name"
	Other          Category = "other"
)

// CategoryFor maps a tagged failure onto its dedup category.
func CategoryFor(err error) Category {
	switch review.KindOf(err) {
	case review.KindUpstreamUnavailable:
		return ConnectAPI
	case review.KindMalformedShape:
		return MalformedShape
	case review.KindMissingRequiredFields:
		return MissingFields
	case review.KindUnknownStatus:
		return UnknownStatus
	case review.KindMissingItemName:
		return MissingName
	default:
		return Other
	}
}

// Gate tracks, per category, whether the current incident was already announced.
// A category absent from the map is Quiet.
//
// Gate is owned by a single loop and is not safe for concurrent use.
type Gate struct {
	notified map[Category]bool
}

func New() *Gate {
	return &Gate{notified: map[Category]bool{}}
}

// ShouldSend reports whether c is Quiet and, if so, moves it to Notified.
// A second call without Clear returns false.
func (g *Gate) ShouldSend(c Category) bool {
	if g.notified[c] {
		return false
	}
	g.notified[c] = true
	return true
}

// MarkSent moves c to Notified.
func (g *Gate) MarkSent(c Category) { g.notified[c] = true }

// Clear moves c back to Quiet.
func (g *Gate) Clear(c Category) { delete(g.notified, c) }

// ClearAll ends every open incident.
func (g *Gate) ClearAll() {
	for c := range g.notified {
		delete(g.notified, c)
	}
}

// Notified reports whether c is currently Notified.
func (g *Gate) Notified(c Category) bool { return g.notified[c] }

// Open lists categories that are currently Notified.
func (g *Gate) Open() []Category {
	out := make([]Category, 0, len(g.notified))
	for c, on := range g.notified {
		if on {
			out = append(out, c)
		}
	}
	return out
}

// Notify sends through send unless c was already announced. A failed send
// reverts c to Quiet so the next occurrence is announced again.
func (g *Gate) Notify(ctx context.Context, c Category, send func(context.Context) error) (bool, error) {
	if !g.ShouldSend(c) {
		return false, nil
	}
	if err := send(ctx); err != nil {
		g.Clear(c)
		return false, review.Delivery(err)
	}
	return true, nil
}
