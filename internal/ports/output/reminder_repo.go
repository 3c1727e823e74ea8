package output

import (
	"context"

	"signupbot/internal/domain/entities"
)

// ReminderRepository guards reminder sends. (eventID, interval) is unique.
type ReminderRepository interface {
	// Claim inserts the row unless it exists. claimed is false when another
	// send already owns (or owned) the interval.
	Claim(ctx context.Context, reminder *entities.Reminder) (claimed bool, err error)
	// Release removes a claim whose send failed.
	Release(ctx context.Context, eventID uint, interval string) error
	SetMessageID(ctx context.Context, eventID uint, interval, messageID string) error
	ListByEvent(ctx context.Context, eventID uint) ([]entities.Reminder, error)
}
