package input

import (
	"context"

	"signupbot/internal/domain/entities"
)

type JoinRequest struct {
	EventID       uint
	UserID        string
	Username      string
	Role          string
	Spec          string
	Note          string
	CallerRoleIDs []string
}

type LeaveResult struct {
	Removed  entities.Participant
	Promoted *entities.Participant
}

type ApproveResult struct {
	Confirmed  []entities.Participant
	Waitlisted []entities.Participant
	Skipped    []string
}

type PromoteResult struct {
	Promoted   *entities.Participant
	NoCapacity bool
}

type RoleUpdateResult struct {
	Participant entities.Participant
	Demoted     bool
	Promoted    *entities.Participant
}

type ParticipantUseCase interface {
	Join(ctx context.Context, req JoinRequest) (*entities.Participant, error)
	Leave(ctx context.Context, eventID uint, userID string) (*LeaveResult, error)
	Approve(ctx context.Context, eventID uint, userIDs []string, approverID string) (*ApproveResult, error)
	Promote(ctx context.Context, eventID uint, userID string) (*PromoteResult, error)
	PromoteNext(ctx context.Context, eventID uint) (*PromoteResult, error)
	UpdateRole(ctx context.Context, eventID uint, userID, newRole string) (*RoleUpdateResult, error)
	ListParticipants(ctx context.Context, eventID uint) ([]entities.Participant, error)
}

type StatisticsUseCase interface {
	SetNoShow(ctx context.Context, eventID uint, userID string, noShow bool) (*entities.ParticipantStatistics, error)
	Leaderboard(ctx context.Context, guildID string, limit int) ([]entities.ParticipantStatistics, error)
}
