package output

import (
	"context"

	"signupbot/internal/domain/entities"
)

// ParticipantRepository persists participants keyed by (eventID, userID).
// Create returns domain.ErrParticipantExists on a duplicate key; Find
// returns domain.ErrParticipantNotFound.
type ParticipantRepository interface {
	Create(ctx context.Context, participant *entities.Participant) error
	Find(ctx context.Context, eventID uint, userID string) (*entities.Participant, error)
	// ListByEvent orders by status, then position, then joinedAt.
	ListByEvent(ctx context.Context, eventID uint) ([]entities.Participant, error)
	// ListByEventAndStatus orders by position, then joinedAt.
	ListByEventAndStatus(ctx context.Context, eventID uint, status string) ([]entities.Participant, error)
	Update(ctx context.Context, participant *entities.Participant) error
	Delete(ctx context.Context, eventID uint, userID string) error
	CountConfirmed(ctx context.Context, eventID uint) (int, error)
	CountConfirmedByRole(ctx context.Context, eventID uint, role string) (int, error)
	// MaxPosition returns the highest waitlist position, 0 for an empty waitlist.
	MaxPosition(ctx context.Context, eventID uint) (int, error)
	// ShiftPositionsAfter decrements every waitlist position greater than pos.
	ShiftPositionsAfter(ctx context.Context, eventID uint, pos int) error
	// CountCompletedParticipations counts the user's confirmed participations
	// in completed events of the guild, and how many of those were no-shows.
	CountCompletedParticipations(ctx context.Context, guildID, userID string) (joined, noShows int, err error)
}
