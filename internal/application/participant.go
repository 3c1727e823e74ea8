package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"signupbot/internal/domain"
	"signupbot/internal/domain/entities"
	"signupbot/internal/ports/input"
	"signupbot/internal/ports/output"
)

var _ input.ParticipantUseCase = (*ParticipantService)(nil)

// ParticipantService is the participant queue manager: join, leave, approval,
// promotion and role changes. Every mutation runs under the event lock.
type ParticipantService struct {
	store      output.Store
	messaging  output.MessagingGateway
	guilds     output.GuildConfigProvider
	translator output.Translator
	log        zerolog.Logger
	now        func() time.Time
}

func NewParticipantService(
	store output.Store,
	messaging output.MessagingGateway,
	guilds output.GuildConfigProvider,
	translator output.Translator,
	log zerolog.Logger,
) *ParticipantService {
	return &ParticipantService{
		store:      store,
		messaging:  messaging,
		guilds:     guilds,
		translator: translator,
		log:        log.With().Str("component", "participants").Logger(),
		now:        time.Now,
	}
}

func (s *ParticipantService) Join(ctx context.Context, req input.JoinRequest) (*entities.Participant, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, domain.Validationf(domain.ErrInvalidEvent, "user id is required")
	}
	now := s.now()
	var (
		joined entities.Participant
		event  *entities.Event
	)
	err := s.store.InEventTx(ctx, req.EventID, func(ctx context.Context, r output.Repositories) error {
		ev, err := r.Events().FindByID(ctx, req.EventID)
		if err != nil {
			return err
		}
		if err := ev.CheckSignupsOpen(now); err != nil {
			return err
		}
		if !ev.ValidRole(req.Role) {
			return domain.Validationf(domain.ErrInvalidRole, "%q", req.Role)
		}
		if _, err := r.Participants().Find(ctx, ev.ID, req.UserID); err == nil {
			return domain.ErrParticipantExists
		} else if !errors.Is(err, domain.ErrParticipantNotFound) {
			return domain.NewPersistenceError("find participant", err)
		}
		bench := false
		if !ev.RolesEligible(req.CallerRoleIDs) {
			if !ev.BenchOverflow {
				return domain.ErrRoleNotAllowed
			}
			bench = true
		}

		p := entities.Participant{
			EventID:   ev.ID,
			UserID:    req.UserID,
			Username:  req.Username,
			Role:      req.Role,
			Spec:      req.Spec,
			Note:      req.Note,
			JoinedAt:  now,
			UpdatedAt: now,
		}
		admit := false
		if !bench && !ev.RequireApproval {
			if admit, err = hasCapacity(ctx, r, ev, p.Role); err != nil {
				return err
			}
		}
		switch {
		case admit:
			p.SetStatus(domain.StatusConfirmed)
		case !bench && ev.RequireApproval:
			p.SetStatus(domain.StatusPending)
		default:
			pos, err := nextPosition(ctx, r, ev.ID)
			if err != nil {
				return err
			}
			p.SetWaitlisted(pos)
		}
		if err := r.Participants().Create(ctx, &p); err != nil {
			return domain.NewPersistenceError("create participant", err)
		}
		if p.IsConfirmed() {
			if err := verifyCapacity(ctx, r, ev, p.Role); err != nil {
				return err
			}
		}
		if err := appendAudit(ctx, r, ev, p.UserID, actionJoin, p.Status, now); err != nil {
			return err
		}
		joined, event = p, ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("event_id", event.ID).Str("user_id", joined.UserID).Str("status", joined.Status).Msg("participant joined")
	if joined.Status == domain.StatusPending {
		s.requestApproval(ctx, event, &joined)
	}
	renderEvent(ctx, s.store, s.messaging, s.log, event.ID)
	return &joined, nil
}

func (s *ParticipantService) requestApproval(ctx context.Context, event *entities.Event, p *entities.Participant) {
	settings := s.guilds.Guild(event.GuildID)
	content := s.translator.T(settings.Locale, "approval.request", map[string]any{
		"UserID":   p.UserID,
		"Username": p.Username,
		"Title":    event.Title,
	})
	for _, channelID := range settings.ApprovalChannelIDs {
		if _, err := s.messaging.SendChannelMessage(ctx, channelID, content); err != nil {
			s.log.Warn().Err(domain.NewGatewayError("send approval request", err)).
				Uint("event_id", event.ID).Str("channel_id", channelID).Msg("approval request not delivered")
		}
	}
}

func (s *ParticipantService) Leave(ctx context.Context, eventID uint, userID string) (*input.LeaveResult, error) {
	now := s.now()
	var (
		result input.LeaveResult
		event  *entities.Event
	)
	err := s.store.InEventTx(ctx, eventID, func(ctx context.Context, r output.Repositories) error {
		ev, err := r.Events().FindByID(ctx, eventID)
		if err != nil {
			return err
		}
		if domain.IsTerminal(ev.Status) {
			return domain.Validationf(domain.ErrSignupsClosed, "event is %s", ev.Status)
		}
		p, err := r.Participants().Find(ctx, eventID, userID)
		if err != nil {
			return err
		}
		if err := r.Participants().Delete(ctx, eventID, userID); err != nil {
			return domain.NewPersistenceError("delete participant", err)
		}
		switch p.Status {
		case domain.StatusWaitlist:
			if err := compactAfter(ctx, r, eventID, p.WaitlistPosition()); err != nil {
				return err
			}
		case domain.StatusConfirmed:
			promoted, err := promoteFirstEligible(ctx, r, ev, !ev.RequireApproval, "")
			if err != nil {
				return err
			}
			if promoted != nil {
				if err := appendAudit(ctx, r, ev, promoted.UserID, actionPromote, "slot freed", now); err != nil {
					return err
				}
			}
			result.Promoted = promoted
		}
		if err := appendAudit(ctx, r, ev, userID, actionLeave, p.Status, now); err != nil {
			return err
		}
		result.Removed = *p
		event = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("event_id", eventID).Str("user_id", userID).Msg("participant left")
	if result.Promoted != nil {
		s.notify(ctx, event, result.Promoted.UserID, "dm.promoted")
	}
	renderEvent(ctx, s.store, s.messaging, s.log, eventID)
	return &result, nil
}

// Approve admits pending participants. Authorization of approverID is the
// caller's concern; it is only recorded.
func (s *ParticipantService) Approve(ctx context.Context, eventID uint, userIDs []string, approverID string) (*input.ApproveResult, error) {
	now := s.now()
	var (
		result input.ApproveResult
		event  *entities.Event
	)
	err := s.store.InEventTx(ctx, eventID, func(ctx context.Context, r output.Repositories) error {
		result = input.ApproveResult{}
		ev, err := r.Events().FindByID(ctx, eventID)
		if err != nil {
			return err
		}
		if domain.IsTerminal(ev.Status) {
			return domain.Validationf(domain.ErrSignupsClosed, "event is %s", ev.Status)
		}
		for _, userID := range userIDs {
			p, err := r.Participants().Find(ctx, eventID, userID)
			if errors.Is(err, domain.ErrParticipantNotFound) {
				result.Skipped = append(result.Skipped, userID)
				continue
			}
			if err != nil {
				return domain.NewPersistenceError("find participant", err)
			}
			if p.Status != domain.StatusPending {
				result.Skipped = append(result.Skipped, userID)
				continue
			}
			ok, err := hasCapacity(ctx, r, ev, p.Role)
			if err != nil {
				return err
			}
			if ok {
				if err := confirm(ctx, r, p); err != nil {
					return err
				}
				if err := verifyCapacity(ctx, r, ev, p.Role); err != nil {
					return err
				}
				result.Confirmed = append(result.Confirmed, *p)
			} else {
				pos, err := nextPosition(ctx, r, eventID)
				if err != nil {
					return err
				}
				p.SetWaitlisted(pos)
				if err := r.Participants().Update(ctx, p); err != nil {
					return domain.NewPersistenceError("update participant", err)
				}
				result.Waitlisted = append(result.Waitlisted, *p)
			}
			detail := fmt.Sprintf("by %s -> %s", approverID, p.Status)
			if err := appendAudit(ctx, r, ev, userID, actionApprove, detail, now); err != nil {
				return err
			}
		}
		event = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, p := range result.Confirmed {
		s.notify(ctx, event, p.UserID, "dm.approved")
	}
	for _, p := range result.Waitlisted {
		s.notify(ctx, event, p.UserID, "dm.approved_waitlist")
	}
	renderEvent(ctx, s.store, s.messaging, s.log, eventID)
	return &result, nil
}

// Promote confirms a specific waitlisted or pending participant. A full event
// is reported through NoCapacity, not as an error.
func (s *ParticipantService) Promote(ctx context.Context, eventID uint, userID string) (*input.PromoteResult, error) {
	now := s.now()
	var (
		result input.PromoteResult
		event  *entities.Event
	)
	err := s.store.InEventTx(ctx, eventID, func(ctx context.Context, r output.Repositories) error {
		result = input.PromoteResult{}
		ev, err := r.Events().FindByID(ctx, eventID)
		if err != nil {
			return err
		}
		p, err := r.Participants().Find(ctx, eventID, userID)
		if err != nil {
			return err
		}
		if p.Status != domain.StatusWaitlist && p.Status != domain.StatusPending {
			return domain.ErrParticipantNotQueued
		}
		ok, err := hasCapacity(ctx, r, ev, p.Role)
		if err != nil {
			return err
		}
		if !ok {
			result.NoCapacity = true
			return nil
		}
		if err := confirm(ctx, r, p); err != nil {
			return err
		}
		if err := verifyCapacity(ctx, r, ev, p.Role); err != nil {
			return err
		}
		if err := appendAudit(ctx, r, ev, userID, actionPromote, "manual", now); err != nil {
			return err
		}
		result.Promoted = p
		event = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Promoted == nil {
		s.log.Info().Uint("event_id", eventID).Str("user_id", userID).Msg("promotion skipped: no capacity")
		return &result, nil
	}
	s.notify(ctx, event, userID, "dm.promoted")
	renderEvent(ctx, s.store, s.messaging, s.log, eventID)
	return &result, nil
}

// PromoteNext confirms the first queued participant that fits.
func (s *ParticipantService) PromoteNext(ctx context.Context, eventID uint) (*input.PromoteResult, error) {
	now := s.now()
	var (
		result input.PromoteResult
		event  *entities.Event
	)
	err := s.store.InEventTx(ctx, eventID, func(ctx context.Context, r output.Repositories) error {
		result = input.PromoteResult{}
		ev, err := r.Events().FindByID(ctx, eventID)
		if err != nil {
			return err
		}
		promoted, err := promoteFirstEligible(ctx, r, ev, true, "")
		if err != nil {
			return err
		}
		if promoted == nil {
			queued, err := queueCandidates(ctx, r, eventID, true)
			if err != nil {
				return err
			}
			result.NoCapacity = len(queued) > 0
			return nil
		}
		if err := appendAudit(ctx, r, ev, promoted.UserID, actionPromote, "next", now); err != nil {
			return err
		}
		result.Promoted = promoted
		event = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Promoted == nil {
		return &result, nil
	}
	s.notify(ctx, event, result.Promoted.UserID, "dm.promoted")
	renderEvent(ctx, s.store, s.messaging, s.log, eventID)
	return &result, nil
}

// UpdateRole changes a participant's role. A confirmed participant whose new
// role is already full goes to the back of the waitlist, keeping joinedAt.
// Whenever a confirmed participant leaves a role, the freed slot is offered
// to the queue.
func (s *ParticipantService) UpdateRole(ctx context.Context, eventID uint, userID, newRole string) (*input.RoleUpdateResult, error) {
	now := s.now()
	var (
		result input.RoleUpdateResult
		event  *entities.Event
	)
	err := s.store.InEventTx(ctx, eventID, func(ctx context.Context, r output.Repositories) error {
		result = input.RoleUpdateResult{}
		ev, err := r.Events().FindByID(ctx, eventID)
		if err != nil {
			return err
		}
		if domain.IsTerminal(ev.Status) {
			return domain.Validationf(domain.ErrSignupsClosed, "event is %s", ev.Status)
		}
		if !ev.ValidRole(newRole) {
			return domain.Validationf(domain.ErrInvalidRole, "%q", newRole)
		}
		p, err := r.Participants().Find(ctx, eventID, userID)
		if err != nil {
			return err
		}
		oldRole := p.Role
		p.Role = newRole
		p.UpdatedAt = now

		movedSlot := p.IsConfirmed() && oldRole != newRole
		if movedSlot {
			if limit, ok := ev.RoleLimit(newRole); ok {
				taken, err := r.Participants().CountConfirmedByRole(ctx, eventID, newRole)
				if err != nil {
					return domain.NewPersistenceError("count confirmed by role", err)
				}
				if taken >= limit {
					pos, err := nextPosition(ctx, r, eventID)
					if err != nil {
						return err
					}
					p.SetWaitlisted(pos)
					result.Demoted = true
				}
			}
		}
		if err := r.Participants().Update(ctx, p); err != nil {
			return domain.NewPersistenceError("update participant", err)
		}
		if p.IsConfirmed() {
			if err := verifyCapacity(ctx, r, ev, newRole); err != nil {
				return err
			}
		}
		action := actionRoleUpdate
		if result.Demoted {
			action = actionDemote
		}
		if movedSlot {
			promoted, err := promoteFirstEligible(ctx, r, ev, !ev.RequireApproval, userID)
			if err != nil {
				return err
			}
			result.Promoted = promoted
		}
		if err := appendAudit(ctx, r, ev, userID, action, oldRole+" -> "+newRole, now); err != nil {
			return err
		}
		result.Participant = *p
		event = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Demoted {
		s.notify(ctx, event, userID, "dm.demoted")
	}
	if result.Promoted != nil {
		s.notify(ctx, event, result.Promoted.UserID, "dm.promoted")
	}
	renderEvent(ctx, s.store, s.messaging, s.log, eventID)
	return &result, nil
}

func (s *ParticipantService) ListParticipants(ctx context.Context, eventID uint) ([]entities.Participant, error) {
	if _, err := s.store.Events().FindByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.Participants().ListByEvent(ctx, eventID)
}

func (s *ParticipantService) notify(ctx context.Context, event *entities.Event, userID, key string) {
	locale := s.guilds.Guild(event.GuildID).Locale
	notifyUser(ctx, s.messaging, s.log, userID, s.translator.T(locale, key, map[string]any{"Title": event.Title}))
}

// RetryOnConflict runs fn and, if it failed with a capacity conflict, runs it
// exactly once more.
func RetryOnConflict(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if domain.IsRetryable(err) {
		if ctx.Err() != nil {
			return err
		}
		return fn(ctx)
	}
	return err
}
