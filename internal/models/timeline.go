package models

import "time"

// Timeline entry kinds.
const (
	TimelineMessage = "message"
	TimelineDate    = "date"
)

// TimelineItem is a derived display entry: either a message reference or a
// synthetic date separator. It is recomputed from the message sequence and
// never stored.
type TimelineItem struct {
	Kind    string
	ID      string
	Message *Message
	Day     time.Time
}
