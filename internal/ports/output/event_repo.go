package output

import (
	"context"
	"time"

	"signupbot/internal/domain/entities"
)

// EventRepository persists events. Lookups of a missing or soft-deleted
// event return domain.ErrEventNotFound.
type EventRepository interface {
	Create(ctx context.Context, event *entities.Event) error
	FindByID(ctx context.Context, id uint) (*entities.Event, error)
	FindByMessageID(ctx context.Context, messageID string) (*entities.Event, error)
	UpdateMessageRefs(ctx context.Context, id uint, messageID, threadID string) error
	// ListScheduledStartingBefore returns scheduled events with StartTime <= until.
	ListScheduledStartingBefore(ctx context.Context, until time.Time) ([]entities.Event, error)
	ListByStatus(ctx context.Context, status string) ([]entities.Event, error)
	// ListArchived returns completed, archived events not yet soft-deleted.
	ListArchived(ctx context.Context) ([]entities.Event, error)
	// ListVoicePending returns events whose voice channel is scheduled or created.
	ListVoicePending(ctx context.Context) ([]entities.Event, error)
	// TransitionStatus moves id from -> to only if the stored status is still
	// from. ok is false when another writer got there first.
	TransitionStatus(ctx context.Context, id uint, from, to string) (ok bool, err error)
	MarkArchived(ctx context.Context, id uint, at time.Time) error
	MarkDeleted(ctx context.Context, id uint, at time.Time) error
	// UpdateVoiceState stores state only if the stored phase is still from.
	UpdateVoiceState(ctx context.Context, id uint, from entities.VoicePhase, state entities.VoiceChannelState) (ok bool, err error)
}
