package database

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"signupbot/internal/domain"
	"signupbot/internal/domain/entities"
	"signupbot/internal/ports/output"
)

var _ output.EventRepository = (*EventRepository)(nil)

type EventRepository struct {
	db DBTX
}

func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *entities.Event) error {
	roleCapacity := event.RoleCapacity
	if roleCapacity == nil {
		roleCapacity = map[string]int{}
	}
	allowedRoles := event.AllowedRoles
	if allowedRoles == nil {
		allowedRoles = []string{}
	}
	values := map[string]any{
		"guild_id":                    event.GuildID,
		"channel_id":                  event.ChannelID,
		"message_id":                  event.MessageID,
		"thread_id":                   event.ThreadID,
		"creator_id":                  event.CreatorID,
		"title":                       event.Title,
		"description":                 event.Description,
		"start_time":                  event.StartTime,
		"duration_minutes":            event.DurationMinutes,
		"timezone":                    event.Timezone,
		"status":                      event.Status,
		"max_participants":            event.MaxParticipants,
		"role_capacity":               roleCapacity,
		"require_approval":            event.RequireApproval,
		"bench_overflow":              event.BenchOverflow,
		"allow_late_signup":           event.AllowLateSignup,
		"allowed_roles":               allowedRoles,
		"deadline_offset_seconds":     int64(event.DeadlineOffset / time.Second),
		"voice_enabled":               event.Voice.Enabled,
		"voice_name":                  event.Voice.Name,
		"voice_restricted":            event.Voice.Restricted,
		"voice_create_before_minutes": event.Voice.CreateBeforeMinutes,
	}
	for k, v := range voiceColumns(event.Voice.State) {
		values[k] = v
	}
	sql, args, err := build(psql.Insert("events").SetMap(values).Suffix("RETURNING id, created_at, updated_at"))
	if err != nil {
		return err
	}
	var id int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&id, &event.CreatedAt, &event.UpdatedAt); err != nil {
		return wrap("create event", err)
	}
	event.ID = uint(id)
	return nil
}

func (r *EventRepository) findOne(ctx context.Context, where squirrel.Sqlizer) (*entities.Event, error) {
	sql, args, err := build(psql.Select(eventColumns...).From("events").Where(where).Where("deleted_at IS NULL"))
	if err != nil {
		return nil, err
	}
	e, err := scanEvent(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, wrap("get event", err)
	}
	return e, nil
}

func (r *EventRepository) FindByID(ctx context.Context, id uint) (*entities.Event, error) {
	return r.findOne(ctx, squirrel.Eq{"id": int64(id)})
}

func (r *EventRepository) FindByMessageID(ctx context.Context, messageID string) (*entities.Event, error) {
	return r.findOne(ctx, squirrel.Eq{"message_id": messageID})
}

func (r *EventRepository) list(ctx context.Context, op string, where ...squirrel.Sqlizer) ([]entities.Event, error) {
	q := psql.Select(eventColumns...).From("events").Where("deleted_at IS NULL").OrderBy("start_time", "id")
	for _, w := range where {
		q = q.Where(w)
	}
	sql, args, err := build(q)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	events, err := collectEvents(rows)
	return events, wrap(op, err)
}

func (r *EventRepository) ListScheduledStartingBefore(ctx context.Context, until time.Time) ([]entities.Event, error) {
	return r.list(ctx, "list scheduled events",
		squirrel.Eq{"status": domain.EventScheduled},
		squirrel.LtOrEq{"start_time": until},
	)
}

func (r *EventRepository) ListByStatus(ctx context.Context, status string) ([]entities.Event, error) {
	return r.list(ctx, "list events by status", squirrel.Eq{"status": status})
}

func (r *EventRepository) ListArchived(ctx context.Context) ([]entities.Event, error) {
	return r.list(ctx, "list archived events",
		squirrel.Eq{"status": domain.EventCompleted},
		squirrel.NotEq{"archived_at": nil},
	)
}

func (r *EventRepository) ListVoicePending(ctx context.Context) ([]entities.Event, error) {
	return r.list(ctx, "list voice pending events",
		squirrel.Eq{"voice_phase": []string{string(entities.VoiceScheduled), string(entities.VoiceCreated)}},
	)
}

// update applies set to the event row matching where and reports whether a
// row changed.
func (r *EventRepository) update(ctx context.Context, op string, set map[string]any, where squirrel.Sqlizer) (bool, error) {
	set["updated_at"] = squirrel.Expr("NOW()")
	sql, args, err := build(psql.Update("events").SetMap(set).Where(where))
	if err != nil {
		return false, err
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, wrap(op, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *EventRepository) UpdateMessageRefs(ctx context.Context, id uint, messageID, threadID string) error {
	ok, err := r.update(ctx, "update message refs",
		map[string]any{"message_id": messageID, "thread_id": threadID},
		squirrel.Eq{"id": int64(id), "deleted_at": nil},
	)
	if err == nil && !ok {
		return domain.ErrEventNotFound
	}
	return err
}

func (r *EventRepository) TransitionStatus(ctx context.Context, id uint, from, to string) (bool, error) {
	return r.update(ctx, "transition status",
		map[string]any{"status": to},
		squirrel.Eq{"id": int64(id), "status": from},
	)
}

func (r *EventRepository) MarkArchived(ctx context.Context, id uint, at time.Time) error {
	_, err := r.update(ctx, "mark archived", map[string]any{"archived_at": at}, squirrel.Eq{"id": int64(id)})
	return err
}

func (r *EventRepository) MarkDeleted(ctx context.Context, id uint, at time.Time) error {
	_, err := r.update(ctx, "mark deleted", map[string]any{"deleted_at": at}, squirrel.Eq{"id": int64(id), "deleted_at": nil})
	return err
}

func (r *EventRepository) UpdateVoiceState(ctx context.Context, id uint, from entities.VoicePhase, state entities.VoiceChannelState) (bool, error) {
	return r.update(ctx, "update voice state",
		voiceColumns(state),
		squirrel.Eq{"id": int64(id), "voice_phase": string(from)},
	)
}
