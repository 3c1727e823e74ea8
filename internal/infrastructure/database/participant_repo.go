package database

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"signupbot/internal/domain"
	"signupbot/internal/domain/entities"
	"signupbot/internal/ports/output"
)

var _ output.ParticipantRepository = (*ParticipantRepository)(nil)

type ParticipantRepository struct {
	db DBTX
}

func NewParticipantRepository(db DBTX) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func (r *ParticipantRepository) Create(ctx context.Context, p *entities.Participant) error {
	sql, args, err := build(psql.Insert("participants").
		Columns(participantColumns...).
		Values(int64(p.EventID), p.UserID, p.Username, p.Role, p.Spec, p.Note,
			p.Status, positionValue(p), p.JoinedAt, p.NoShow, p.UpdatedAt))
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return wrap("create participant", err)
	}
	return nil
}

func (r *ParticipantRepository) Find(ctx context.Context, eventID uint, userID string) (*entities.Participant, error) {
	sql, args, err := build(psql.Select(participantColumns...).From("participants").
		Where(squirrel.Eq{"event_id": int64(eventID), "user_id": userID}))
	if err != nil {
		return nil, err
	}
	p, err := scanParticipant(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrParticipantNotFound
	}
	if err != nil {
		return nil, wrap("find participant", err)
	}
	return p, nil
}

func (r *ParticipantRepository) list(ctx context.Context, where squirrel.Eq) ([]entities.Participant, error) {
	sql, args, err := build(psql.Select(participantColumns...).From("participants").
		Where(where).
		OrderBy("status", "position", "joined_at", "user_id"))
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrap("list participants", err)
	}
	out, err := collectParticipants(rows)
	return out, wrap("list participants", err)
}

func (r *ParticipantRepository) ListByEvent(ctx context.Context, eventID uint) ([]entities.Participant, error) {
	return r.list(ctx, squirrel.Eq{"event_id": int64(eventID)})
}

func (r *ParticipantRepository) ListByEventAndStatus(ctx context.Context, eventID uint, status string) ([]entities.Participant, error) {
	return r.list(ctx, squirrel.Eq{"event_id": int64(eventID), "status": status})
}

func (r *ParticipantRepository) Update(ctx context.Context, p *entities.Participant) error {
	sql, args, err := build(psql.Update("participants").
		SetMap(map[string]any{
			"username":   p.Username,
			"role":       p.Role,
			"spec":       p.Spec,
			"note":       p.Note,
			"status":     p.Status,
			"position":   positionValue(p),
			"no_show":    p.NoShow,
			"updated_at": squirrel.Expr("NOW()"),
		}).
		Where(squirrel.Eq{"event_id": int64(p.EventID), "user_id": p.UserID}))
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return wrap("update participant", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func (r *ParticipantRepository) Delete(ctx context.Context, eventID uint, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM participants WHERE event_id = $1 AND user_id = $2`,
		int64(eventID), userID,
	)
	if err != nil {
		return wrap("delete participant", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func (r *ParticipantRepository) count(ctx context.Context, where squirrel.Eq) (int, error) {
	sql, args, err := build(psql.Select("COUNT(*)").From("participants").Where(where))
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, wrap("count participants", err)
	}
	return n, nil
}

func (r *ParticipantRepository) CountConfirmed(ctx context.Context, eventID uint) (int, error) {
	return r.count(ctx, squirrel.Eq{"event_id": int64(eventID), "status": domain.StatusConfirmed})
}

func (r *ParticipantRepository) CountConfirmedByRole(ctx context.Context, eventID uint, role string) (int, error) {
	return r.count(ctx, squirrel.Eq{"event_id": int64(eventID), "status": domain.StatusConfirmed, "role": role})
}

func (r *ParticipantRepository) MaxPosition(ctx context.Context, eventID uint) (int, error) {
	var highest int
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM participants WHERE event_id = $1 AND status = $2`,
		int64(eventID), domain.StatusWaitlist,
	).Scan(&highest)
	if err != nil {
		return 0, wrap("max position", err)
	}
	return highest, nil
}

func (r *ParticipantRepository) ShiftPositionsAfter(ctx context.Context, eventID uint, pos int) error {
	_, err := r.db.Exec(ctx,
		`UPDATE participants SET position = position - 1, updated_at = NOW()
		 WHERE event_id = $1 AND status = $2 AND position > $3`,
		int64(eventID), domain.StatusWaitlist, pos,
	)
	return wrap("shift positions", err)
}

func (r *ParticipantRepository) CountCompletedParticipations(ctx context.Context, guildID, userID string) (int, int, error) {
	var joined, noShows int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE p.no_show)
		 FROM participants p
		 JOIN events e ON e.id = p.event_id
		 WHERE e.guild_id = $1 AND p.user_id = $2 AND e.status = $3 AND p.status = $4`,
		guildID, userID, domain.EventCompleted, domain.StatusConfirmed,
	).Scan(&joined, &noShows)
	if err != nil {
		return 0, 0, wrap("count completed participations", err)
	}
	return joined, noShows, nil
}
