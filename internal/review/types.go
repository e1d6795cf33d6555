// Package review holds the status feed domain: the shape of a poll response,
// work items and their review status, response validation and the text of
// status change notifications.
package review

import "time"

// Watermark is a Unix timestamp (seconds) the next poll requests updates from.
type Watermark int64

// Now returns the watermark for the current instant.
func Now() Watermark { return Watermark(time.Now().Unix()) }

type Status string

const (
	StatusApproved  Status = "approved"
	StatusReviewing Status = "reviewing"
	StatusRejected  Status = "rejected"
)

// Wire keys of the upstream API.
const (
	keyItems     = "homeworks"
	keyWatermark = "current_date"

	keyID      = "id"
	keyStatus  = "status"
	keyName    = "homework_name"
	keyComment = "reviewer_comment"
	keyLesson  = "lesson_name"
	keyUpdated = "date_updated"
)

// PollResponse is a structurally validated response. Items are left raw:
// only the item that is actually processed gets decoded.
type PollResponse struct {
	Items     []any
	Watermark Watermark
}

type WorkItem struct {
	ID      string
	Status  Status
	Name    string
	Comment string
	Lesson  string
	Updated string
}
