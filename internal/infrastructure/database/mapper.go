package database

import (
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"signupbot/internal/domain/entities"
)

// pgtypeTimestamptzToTime returns t.Time when Valid, else zero time.
func pgtypeTimestamptzToTime(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}

// timeToTimestamptz stores the zero time as NULL.
func timeToTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

var eventColumns = []string{
	"id", "guild_id", "channel_id", "message_id", "thread_id", "creator_id",
	"title", "description", "start_time", "duration_minutes", "timezone", "status",
	"max_participants", "role_capacity", "require_approval", "bench_overflow",
	"allow_late_signup", "allowed_roles", "deadline_offset_seconds",
	"voice_enabled", "voice_name", "voice_restricted", "voice_create_before_minutes",
	"voice_phase", "voice_channel_id", "voice_create_at", "voice_delete_at",
	"voice_created_at", "voice_deleted_at",
	"archived_at", "deleted_at", "created_at", "updated_at",
}

// voiceColumns returns the column values persisting state.
func voiceColumns(state entities.VoiceChannelState) map[string]any {
	return map[string]any{
		"voice_phase":      string(state.Phase),
		"voice_channel_id": state.ExternalID,
		"voice_create_at":  timeToTimestamptz(state.CreateAt),
		"voice_delete_at":  timeToTimestamptz(state.DeleteAt),
		"voice_created_at": timeToTimestamptz(state.CreatedAt),
		"voice_deleted_at": timeToTimestamptz(state.DeletedAt),
	}
}

func scanEvent(row pgx.Row) (*entities.Event, error) {
	var (
		e                                        entities.Event
		id                                       int64
		duration, maxParticipants, createBefore  int32
		deadlineSeconds                          int64
		phase                                    string
		createAt, deleteAt, createdAt, deletedAt pgtype.Timestamptz
		archived, deleted                        pgtype.Timestamptz
		roleCapacity                             map[string]int
	)
	err := row.Scan(
		&id, &e.GuildID, &e.ChannelID, &e.MessageID, &e.ThreadID, &e.CreatorID,
		&e.Title, &e.Description, &e.StartTime, &duration, &e.Timezone, &e.Status,
		&maxParticipants, &roleCapacity, &e.RequireApproval, &e.BenchOverflow,
		&e.AllowLateSignup, &e.AllowedRoles, &deadlineSeconds,
		&e.Voice.Enabled, &e.Voice.Name, &e.Voice.Restricted, &createBefore,
		&phase, &e.Voice.State.ExternalID, &createAt, &deleteAt,
		&createdAt, &deletedAt,
		&archived, &deleted, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.ID = uint(id)
	e.DurationMinutes = int(duration)
	e.MaxParticipants = int(maxParticipants)
	e.RoleCapacity = roleCapacity
	e.DeadlineOffset = time.Duration(deadlineSeconds) * time.Second
	e.Voice.CreateBeforeMinutes = int(createBefore)
	e.Voice.State.Phase = entities.VoicePhase(phase)
	e.Voice.State.CreateAt = pgtypeTimestamptzToTime(createAt)
	e.Voice.State.DeleteAt = pgtypeTimestamptzToTime(deleteAt)
	e.Voice.State.CreatedAt = pgtypeTimestamptzToTime(createdAt)
	e.Voice.State.DeletedAt = pgtypeTimestamptzToTime(deletedAt)
	e.ArchivedAt = pgtypeTimestamptzToTime(archived)
	e.DeletedAt = pgtypeTimestamptzToTime(deleted)
	return &e, nil
}

func collectEvents(rows pgx.Rows) ([]entities.Event, error) {
	defer rows.Close()
	var events []entities.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

var participantColumns = []string{
	"event_id", "user_id", "username", "role", "spec", "note",
	"status", "position", "joined_at", "no_show", "updated_at",
}

func scanParticipant(row pgx.Row) (*entities.Participant, error) {
	var (
		p        entities.Participant
		eventID  int64
		position pgtype.Int4
	)
	err := row.Scan(
		&eventID, &p.UserID, &p.Username, &p.Role, &p.Spec, &p.Note,
		&p.Status, &position, &p.JoinedAt, &p.NoShow, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.EventID = uint(eventID)
	if position.Valid {
		pos := int(position.Int32)
		p.Position = &pos
	}
	return &p, nil
}

func positionValue(p *entities.Participant) pgtype.Int4 {
	if p.Position == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(*p.Position), Valid: true}
}

func collectParticipants(rows pgx.Rows) ([]entities.Participant, error) {
	defer rows.Close()
	var out []entities.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
