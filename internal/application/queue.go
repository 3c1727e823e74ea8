package application

import (
	"context"

	"signupbot/internal/domain"
	"signupbot/internal/domain/entities"
	"signupbot/internal/ports/output"
)

// Queue bookkeeping shared by the participant operations. Every helper
// expects to run inside InEventTx.

// hasCapacity reports whether one more participant with role can be confirmed.
func hasCapacity(ctx context.Context, r output.Repositories, event *entities.Event, role string) (bool, error) {
	if event.MaxParticipants > 0 {
		confirmed, err := r.Participants().CountConfirmed(ctx, event.ID)
		if err != nil {
			return false, domain.NewPersistenceError("count confirmed", err)
		}
		if confirmed >= event.MaxParticipants {
			return false, nil
		}
	}
	if limit, ok := event.RoleLimit(role); ok {
		n, err := r.Participants().CountConfirmedByRole(ctx, event.ID, role)
		if err != nil {
			return false, domain.NewPersistenceError("count confirmed by role", err)
		}
		if n >= limit {
			return false, nil
		}
	}
	return true, nil
}

// verifyCapacity re-reads counts after a write; an over-admission rolls the
// transaction back with a retryable conflict.
func verifyCapacity(ctx context.Context, r output.Repositories, event *entities.Event, role string) error {
	if event.MaxParticipants > 0 {
		confirmed, err := r.Participants().CountConfirmed(ctx, event.ID)
		if err != nil {
			return domain.NewPersistenceError("count confirmed", err)
		}
		if confirmed > event.MaxParticipants {
			return domain.ErrCapacityConflict
		}
	}
	if limit, ok := event.RoleLimit(role); ok {
		n, err := r.Participants().CountConfirmedByRole(ctx, event.ID, role)
		if err != nil {
			return domain.NewPersistenceError("count confirmed by role", err)
		}
		if n > limit {
			return domain.ErrCapacityConflict
		}
	}
	return nil
}

// nextPosition returns the position a newly waitlisted participant takes.
func nextPosition(ctx context.Context, r output.Repositories, eventID uint) (int, error) {
	highest, err := r.Participants().MaxPosition(ctx, eventID)
	if err != nil {
		return 0, domain.NewPersistenceError("max position", err)
	}
	return highest + 1, nil
}

// compactAfter closes the gap left at pos.
func compactAfter(ctx context.Context, r output.Repositories, eventID uint, pos int) error {
	if pos <= 0 {
		return nil
	}
	if err := r.Participants().ShiftPositionsAfter(ctx, eventID, pos); err != nil {
		return domain.NewPersistenceError("compact waitlist", err)
	}
	return nil
}

// confirm moves a waitlisted or pending participant to confirmed and closes
// the waitlist gap it leaves.
func confirm(ctx context.Context, r output.Repositories, p *entities.Participant) error {
	pos := p.WaitlistPosition()
	p.SetStatus(domain.StatusConfirmed)
	if err := r.Participants().Update(ctx, p); err != nil {
		return domain.NewPersistenceError("update participant", err)
	}
	return compactAfter(ctx, r, p.EventID, pos)
}

// queueCandidates returns waitlisted participants by position, followed by
// pending ones by joinedAt when includePending is set.
func queueCandidates(ctx context.Context, r output.Repositories, eventID uint, includePending bool) ([]entities.Participant, error) {
	candidates, err := r.Participants().ListByEventAndStatus(ctx, eventID, domain.StatusWaitlist)
	if err != nil {
		return nil, domain.NewPersistenceError("list waitlist", err)
	}
	if includePending {
		pending, err := r.Participants().ListByEventAndStatus(ctx, eventID, domain.StatusPending)
		if err != nil {
			return nil, domain.NewPersistenceError("list pending", err)
		}
		candidates = append(candidates, pending...)
	}
	return candidates, nil
}

// promoteFirstEligible confirms the earliest queued participant whose role
// still has room. It returns nil when nobody fits.
func promoteFirstEligible(ctx context.Context, r output.Repositories, event *entities.Event, includePending bool, excludeUserID string) (*entities.Participant, error) {
	candidates, err := queueCandidates(ctx, r, event.ID, includePending)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		c := candidates[i]
		if c.UserID == excludeUserID {
			continue
		}
		ok, err := hasCapacity(ctx, r, event, c.Role)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if err := confirm(ctx, r, &c); err != nil {
			return nil, err
		}
		return &c, nil
	}
	return nil, nil
}
