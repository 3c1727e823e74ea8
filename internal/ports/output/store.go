package output

import "context"

// Repositories groups the repositories bound to one connection or transaction.
type Repositories interface {
	Events() EventRepository
	Participants() ParticipantRepository
	Reminders() ReminderRepository
	Statistics() StatisticsRepository
	AuditLog() AuditLogRepository
}

// TxFunc runs inside a transaction; returning an error rolls it back.
type TxFunc func(ctx context.Context, r Repositories) error

// Store is the persistence gateway.
type Store interface {
	Repositories
	// InTx runs fn in a single transaction.
	InTx(ctx context.Context, fn TxFunc) error
	// InEventTx runs fn in a transaction that holds the event row lock, so
	// read-modify-write sequences on the event's participants serialize.
	// Returns domain.ErrEventNotFound when the event is missing or deleted.
	InEventTx(ctx context.Context, eventID uint, fn TxFunc) error
}
