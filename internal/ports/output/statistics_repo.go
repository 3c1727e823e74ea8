package output

import (
	"context"
	"time"

	"signupbot/internal/domain/entities"
)

type StatisticsRepository interface {
	Upsert(ctx context.Context, stats *entities.ParticipantStatistics) error
	// Find returns nil, nil when the user has no statistics in the guild.
	Find(ctx context.Context, guildID, userID string) (*entities.ParticipantStatistics, error)
	ListByGuild(ctx context.Context, guildID string) ([]entities.ParticipantStatistics, error)
	// UpdateRanks stores rank per user id; a nil rank clears it.
	UpdateRanks(ctx context.Context, guildID string, ranks map[string]*int) error
}

type AuditLogRepository interface {
	Append(ctx context.Context, entry *entities.AuditLogEntry) error
	ListByEvent(ctx context.Context, eventID uint) ([]entities.AuditLogEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
