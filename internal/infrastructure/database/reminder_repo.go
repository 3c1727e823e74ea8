package database

import (
	"context"

	"signupbot/internal/domain/entities"
	"signupbot/internal/ports/output"
)

var _ output.ReminderRepository = (*ReminderRepository)(nil)

type ReminderRepository struct {
	db DBTX
}

func NewReminderRepository(db DBTX) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Claim(ctx context.Context, rem *entities.Reminder) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO reminders (event_id, interval, sent_at, message_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (event_id, interval) DO NOTHING`,
		int64(rem.EventID), rem.Interval, rem.SentAt, rem.MessageID,
	)
	if err != nil {
		return false, wrap("claim reminder", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ReminderRepository) Release(ctx context.Context, eventID uint, interval string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM reminders WHERE event_id = $1 AND interval = $2`, int64(eventID), interval)
	return wrap("release reminder", err)
}

func (r *ReminderRepository) SetMessageID(ctx context.Context, eventID uint, interval, messageID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE reminders SET message_id = $3 WHERE event_id = $1 AND interval = $2`,
		int64(eventID), interval, messageID,
	)
	return wrap("set reminder message", err)
}

func (r *ReminderRepository) ListByEvent(ctx context.Context, eventID uint) ([]entities.Reminder, error) {
	rows, err := r.db.Query(ctx,
		`SELECT event_id, interval, sent_at, message_id FROM reminders WHERE event_id = $1 ORDER BY sent_at, interval`,
		int64(eventID),
	)
	if err != nil {
		return nil, wrap("list reminders", err)
	}
	defer rows.Close()

	var out []entities.Reminder
	for rows.Next() {
		var (
			rem entities.Reminder
			id  int64
		)
		if err := rows.Scan(&id, &rem.Interval, &rem.SentAt, &rem.MessageID); err != nil {
			return nil, wrap("scan reminder", err)
		}
		rem.EventID = uint(id)
		out = append(out, rem)
	}
	return out, wrap("list reminders", rows.Err())
}
