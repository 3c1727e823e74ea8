package entities

import "time"

// Reminder records that the reminder for (EventID, Interval) was sent.
// Its existence is what prevents a second send.
type Reminder struct {
	EventID   uint
	Interval  string
	SentAt    time.Time
	MessageID string
}
