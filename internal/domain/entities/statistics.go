package entities

import "time"

// Score weights.
const (
	ScorePerCompleted = 3
	ScorePerNoShow    = 2
)

// ParticipantStatistics aggregates a user's attendance in one guild.
type ParticipantStatistics struct {
	UserID         string
	GuildID        string
	TotalJoined    int
	TotalCompleted int
	TotalNoShows   int
	Score          int
	Rank           *int
	UpdatedAt      time.Time
}

// ComputeScore returns completed*3 - noShows*2.
func ComputeScore(completed, noShows int) int {
	return completed*ScorePerCompleted - noShows*ScorePerNoShow
}

// AuditLogEntry is one lifecycle action recorded against an event.
type AuditLogEntry struct {
	ID        int64
	EventID   uint
	GuildID   string
	UserID    string
	Action    string
	Detail    string
	CreatedAt time.Time
}
