package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"signupbot/internal/domain"
	"signupbot/internal/ports/output"
)

var _ output.Store = (*Store)(nil)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// repos binds every repository to one DBTX.
type repos struct {
	db DBTX
}

func (r repos) Events() output.EventRepository             { return &EventRepository{db: r.db} }
func (r repos) Participants() output.ParticipantRepository { return &ParticipantRepository{db: r.db} }
func (r repos) Reminders() output.ReminderRepository       { return &ReminderRepository{db: r.db} }
func (r repos) Statistics() output.StatisticsRepository    { return &StatisticsRepository{db: r.db} }
func (r repos) AuditLog() output.AuditLogRepository        { return &AuditLogRepository{db: r.db} }

// Store is the PostgreSQL persistence gateway.
type Store struct {
	repos
	pool      *pgxpool.Pool
	txTimeout time.Duration
	log       zerolog.Logger
}

func NewStore(pool *pgxpool.Pool, log zerolog.Logger) *Store {
	return &Store{
		repos:     repos{db: pool},
		pool:      pool,
		txTimeout: 30 * time.Second,
		log:       log.With().Str("component", "store").Logger(),
	}
}

// InTx runs fn in a transaction, rolling back on error or panic.
func (s *Store) InTx(ctx context.Context, fn output.TxFunc) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.NewPersistenceError("begin transaction", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(ctx, repos{db: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.NewPersistenceError("commit", mapError(err))
	}
	return nil
}

// InEventTx locks the event row for the duration of the transaction.
func (s *Store) InEventTx(ctx context.Context, eventID uint, fn output.TxFunc) error {
	return s.InTx(ctx, func(ctx context.Context, r output.Repositories) error {
		db := r.(repos).db
		var id int64
		err := db.QueryRow(ctx,
			`SELECT id FROM events WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`,
			int64(eventID),
		).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrEventNotFound
		}
		if err != nil {
			return domain.NewPersistenceError("lock event", mapError(err))
		}
		return fn(ctx, r)
	})
}

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"

	participantsPkey        = "participants_pkey"
	participantsPositionKey = "participants_event_position_key"
)

// mapError turns PostgreSQL errors that carry domain meaning into domain errors.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected:
		return domain.Wrap(domain.ErrCapacityConflict, err)
	case pgUniqueViolation:
		switch pgErr.ConstraintName {
		case participantsPkey:
			return domain.Wrap(domain.ErrParticipantExists, err)
		case participantsPositionKey:
			return domain.Wrap(domain.ErrCapacityConflict, err)
		}
	}
	return err
}

// wrap annotates err with op after mapping it.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, mapError(err))
}

// build renders a squirrel builder.
func build(b squirrel.Sqlizer) (string, []any, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build sql: %w", err)
	}
	return sql, args, nil
}
