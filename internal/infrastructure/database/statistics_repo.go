package database

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"signupbot/internal/domain/entities"
	"signupbot/internal/ports/output"
)

var (
	_ output.StatisticsRepository = (*StatisticsRepository)(nil)
	_ output.AuditLogRepository   = (*AuditLogRepository)(nil)
)

type StatisticsRepository struct {
	db DBTX
}

func NewStatisticsRepository(db DBTX) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

var statisticsColumns = []string{
	"user_id", "guild_id", "total_joined", "total_completed", "total_no_shows", "score", "rank", "updated_at",
}

func scanStatistics(row pgx.Row) (*entities.ParticipantStatistics, error) {
	var (
		st   entities.ParticipantStatistics
		rank pgtype.Int4
	)
	if err := row.Scan(&st.UserID, &st.GuildID, &st.TotalJoined, &st.TotalCompleted,
		&st.TotalNoShows, &st.Score, &rank, &st.UpdatedAt); err != nil {
		return nil, err
	}
	if rank.Valid {
		v := int(rank.Int32)
		st.Rank = &v
	}
	return &st, nil
}

// Upsert writes the totals; the rank is left to UpdateRanks.
func (r *StatisticsRepository) Upsert(ctx context.Context, st *entities.ParticipantStatistics) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO participant_statistics
		   (user_id, guild_id, total_joined, total_completed, total_no_shows, score, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (guild_id, user_id) DO UPDATE SET
		   total_joined = EXCLUDED.total_joined,
		   total_completed = EXCLUDED.total_completed,
		   total_no_shows = EXCLUDED.total_no_shows,
		   score = EXCLUDED.score,
		   updated_at = EXCLUDED.updated_at`,
		st.UserID, st.GuildID, st.TotalJoined, st.TotalCompleted, st.TotalNoShows, st.Score, st.UpdatedAt,
	)
	return wrap("upsert statistics", err)
}

func (r *StatisticsRepository) Find(ctx context.Context, guildID, userID string) (*entities.ParticipantStatistics, error) {
	sql, args, err := build(psql.Select(statisticsColumns...).From("participant_statistics").
		Where(squirrel.Eq{"guild_id": guildID, "user_id": userID}))
	if err != nil {
		return nil, err
	}
	st, err := scanStatistics(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("find statistics", err)
	}
	return st, nil
}

func (r *StatisticsRepository) ListByGuild(ctx context.Context, guildID string) ([]entities.ParticipantStatistics, error) {
	sql, args, err := build(psql.Select(statisticsColumns...).From("participant_statistics").
		Where(squirrel.Eq{"guild_id": guildID}).
		OrderBy("rank NULLS LAST", "user_id"))
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrap("list statistics", err)
	}
	defer rows.Close()

	var out []entities.ParticipantStatistics
	for rows.Next() {
		st, err := scanStatistics(rows)
		if err != nil {
			return nil, wrap("scan statistics", err)
		}
		out = append(out, *st)
	}
	return out, wrap("list statistics", rows.Err())
}

func (r *StatisticsRepository) UpdateRanks(ctx context.Context, guildID string, ranks map[string]*int) error {
	batch := &pgx.Batch{}
	for userID, rank := range ranks {
		var v pgtype.Int4
		if rank != nil {
			v = pgtype.Int4{Int32: int32(*rank), Valid: true}
		}
		batch.Queue(`UPDATE participant_statistics SET rank = $3 WHERE guild_id = $1 AND user_id = $2`, guildID, userID, v)
	}
	if batch.Len() == 0 {
		return nil
	}
	return r.sendBatch(ctx, batch)
}

func (r *StatisticsRepository) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	results := r.db.SendBatch(ctx, batch)
	for range batch.Len() {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return wrap("update rank", err)
		}
	}
	return wrap("update ranks", results.Close())
}

type AuditLogRepository struct {
	db DBTX
}

func NewAuditLogRepository(db DBTX) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Append(ctx context.Context, entry *entities.AuditLogEntry) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO event_logs (event_id, guild_id, user_id, action, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		int64(entry.EventID), entry.GuildID, entry.UserID, entry.Action, entry.Detail, entry.CreatedAt,
	).Scan(&entry.ID)
	return wrap("append audit log", err)
}

func (r *AuditLogRepository) ListByEvent(ctx context.Context, eventID uint) ([]entities.AuditLogEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, guild_id, user_id, action, detail, created_at
		 FROM event_logs WHERE event_id = $1 ORDER BY id`,
		int64(eventID),
	)
	if err != nil {
		return nil, wrap("list audit log", err)
	}
	defer rows.Close()

	var out []entities.AuditLogEntry
	for rows.Next() {
		var (
			e  entities.AuditLogEntry
			id int64
		)
		if err := rows.Scan(&e.ID, &id, &e.GuildID, &e.UserID, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, wrap("scan audit log", err)
		}
		e.EventID = uint(id)
		out = append(out, e)
	}
	return out, wrap("list audit log", rows.Err())
}

func (r *AuditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM event_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, wrap("prune audit log", err)
	}
	return tag.RowsAffected(), nil
}
