package application

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"signupbot/internal/domain"
	"signupbot/internal/domain/entities"
	"signupbot/internal/ports/output"
)

// LifecycleService moves events through scheduled -> active -> completed and
// removes archived events once their retention expires.
type LifecycleService struct {
	store      output.Store
	messaging  output.MessagingGateway
	guilds     output.GuildConfigProvider
	translator output.Translator
	stats      *StatisticsService
	voice      *VoiceService
	log        zerolog.Logger
	now        func() time.Time
}

func NewLifecycleService(
	store output.Store,
	messaging output.MessagingGateway,
	guilds output.GuildConfigProvider,
	translator output.Translator,
	stats *StatisticsService,
	voice *VoiceService,
	log zerolog.Logger,
) *LifecycleService {
	return &LifecycleService{
		store:      store,
		messaging:  messaging,
		guilds:     guilds,
		translator: translator,
		stats:      stats,
		voice:      voice,
		log:        log.With().Str("component", "lifecycle").Logger(),
		now:        time.Now,
	}
}

// transition performs a conditional status change with its audit entry.
// ok is false when the event had already left from.
func transition(ctx context.Context, r output.Repositories, event *entities.Event, to string, at time.Time) (bool, error) {
	if !domain.CanTransition(event.Status, to) {
		return false, domain.Validationf(domain.ErrInvalidTransition, "%s -> %s", event.Status, to)
	}
	ok, err := r.Events().TransitionStatus(ctx, event.ID, event.Status, to)
	if err != nil {
		return false, domain.NewPersistenceError("transition status", err)
	}
	if !ok {
		return false, nil
	}
	if err := appendAudit(ctx, r, event, "", actionStatus, event.Status+" -> "+to, at); err != nil {
		return false, err
	}
	event.Status = to
	return true, nil
}

// ActivateDue starts every scheduled event whose start time has passed and
// removes its reminder messages.
func (s *LifecycleService) ActivateDue(ctx context.Context, now time.Time) error {
	events, err := s.store.Events().ListScheduledStartingBefore(ctx, now)
	if err != nil {
		return domain.NewPersistenceError("list scheduled", err)
	}
	for i := range events {
		event := &events[i]
		if !event.DueForActivation(now) {
			continue
		}
		var ok bool
		err := s.store.InEventTx(ctx, event.ID, func(ctx context.Context, r output.Repositories) error {
			var err error
			ok, err = transition(ctx, r, event, domain.EventActive, now)
			return err
		})
		if err != nil {
			s.log.Error().Err(err).Uint("event_id", event.ID).Msg("activation failed")
			continue
		}
		if !ok {
			continue
		}
		s.log.Info().Uint("event_id", event.ID).Str("guild_id", event.GuildID).Msg("event activated")
		s.clearReminderMessages(ctx, event)
		renderLoaded(ctx, s.store, s.messaging, s.log, event)
	}
	return nil
}

func (s *LifecycleService) clearReminderMessages(ctx context.Context, event *entities.Event) {
	reminders, err := s.store.Reminders().ListByEvent(ctx, event.ID)
	if err != nil {
		s.log.Error().Err(err).Uint("event_id", event.ID).Msg("list reminders")
		return
	}
	for _, rem := range reminders {
		if rem.MessageID == "" {
			continue
		}
		if err := s.messaging.DeleteMessage(ctx, event.ChannelID, rem.MessageID); err != nil && !errors.Is(err, output.ErrRemoteNotFound) {
			s.log.Warn().Err(domain.NewGatewayError("delete reminder message", err)).
				Uint("event_id", event.ID).Str("interval", rem.Interval).Msg("reminder message kept")
			continue
		}
		if err := s.store.Reminders().SetMessageID(ctx, event.ID, rem.Interval, ""); err != nil {
			s.log.Error().Err(err).Uint("event_id", event.ID).Str("interval", rem.Interval).Msg("clear reminder message id")
		}
	}
}

// ArchiveDue completes active events that ran long enough. The status
// change, archive stamp and statistics share one transaction; the archive
// post and thread cleanup run afterwards and only log failures.
func (s *LifecycleService) ArchiveDue(ctx context.Context, now time.Time) error {
	events, err := s.store.Events().ListByStatus(ctx, domain.EventActive)
	if err != nil {
		return domain.NewPersistenceError("list active", err)
	}
	for i := range events {
		event := &events[i]
		if !event.DueForArchive(now) {
			continue
		}
		var ok bool
		err := s.store.InEventTx(ctx, event.ID, func(ctx context.Context, r output.Repositories) error {
			var err error
			ok, err = transition(ctx, r, event, domain.EventCompleted, now)
			if err != nil || !ok {
				return err
			}
			if err := r.Events().MarkArchived(ctx, event.ID, now); err != nil {
				return domain.NewPersistenceError("mark archived", err)
			}
			event.ArchivedAt = now
			return s.stats.RecordCompletion(ctx, r, event)
		})
		if err != nil {
			s.log.Error().Err(err).Uint("event_id", event.ID).Msg("archive failed")
			continue
		}
		if !ok {
			continue
		}
		s.log.Info().Uint("event_id", event.ID).Str("guild_id", event.GuildID).Msg("event archived")
		s.afterArchive(ctx, event)
	}
	return nil
}

func (s *LifecycleService) afterArchive(ctx context.Context, event *entities.Event) {
	renderLoaded(ctx, s.store, s.messaging, s.log, event)
	settings := s.guilds.Guild(event.GuildID)
	if settings.ArchiveChannelID != "" {
		confirmed, err := s.store.Participants().ListByEventAndStatus(ctx, event.ID, domain.StatusConfirmed)
		if err != nil {
			s.log.Error().Err(err).Uint("event_id", event.ID).Msg("archive post: list confirmed")
		} else {
			content := s.translator.T(settings.Locale, "archive.summary", map[string]any{
				"Title":     event.Title,
				"Start":     event.StartTime.Unix(),
				"Confirmed": len(confirmed),
			})
			if _, err := s.messaging.SendChannelMessage(ctx, settings.ArchiveChannelID, content); err != nil {
				s.log.Warn().Err(domain.NewGatewayError("post archive summary", err)).Uint("event_id", event.ID).Msg("archive post failed")
			}
		}
	}
	if settings.DeleteThreadOnArchive && event.ThreadID != "" {
		if err := s.messaging.DeleteChannel(ctx, event.ThreadID); err != nil && !errors.Is(err, output.ErrRemoteNotFound) {
			s.log.Warn().Err(domain.NewGatewayError("delete thread", err)).Uint("event_id", event.ID).Msg("thread kept")
		}
	}
}

// DeleteDue removes archived events whose auto-delete delay has passed. The
// message is deleted first; only then is the event marked deleted.
func (s *LifecycleService) DeleteDue(ctx context.Context, now time.Time) error {
	events, err := s.store.Events().ListArchived(ctx)
	if err != nil {
		return domain.NewPersistenceError("list archived", err)
	}
	for i := range events {
		event := &events[i]
		hours := s.guilds.Guild(event.GuildID).AutoDeleteHours
		if hours <= 0 || !event.IsArchived() || event.IsDeleted() {
			continue
		}
		if now.Before(event.ArchivedAt.Add(time.Duration(hours) * time.Hour)) {
			continue
		}
		if event.MessageID != "" {
			err := s.messaging.DeleteMessage(ctx, event.ChannelID, event.MessageID)
			if err != nil && !errors.Is(err, output.ErrRemoteNotFound) {
				s.log.Warn().Err(domain.NewGatewayError("delete event message", err)).Uint("event_id", event.ID).Msg("deletion postponed")
				continue
			}
		}
		if err := s.store.Events().MarkDeleted(ctx, event.ID, now); err != nil {
			s.log.Error().Err(err).Uint("event_id", event.ID).Msg("mark deleted failed")
			continue
		}
		s.log.Info().Uint("event_id", event.ID).Str("guild_id", event.GuildID).Msg("event deleted")
	}
	return nil
}

// Cancel ends a scheduled or active event early and releases its voice channel.
func (s *LifecycleService) Cancel(ctx context.Context, eventID uint, actorID string) (*entities.Event, error) {
	now := s.now()
	var event *entities.Event
	err := s.store.InEventTx(ctx, eventID, func(ctx context.Context, r output.Repositories) error {
		ev, err := r.Events().FindByID(ctx, eventID)
		if err != nil {
			return err
		}
		ok, err := transition(ctx, r, ev, domain.EventCancelled, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Validationf(domain.ErrInvalidTransition, "event %d changed concurrently", eventID)
		}
		event = ev
		return appendAudit(ctx, r, ev, actorID, actionStatus, "cancelled by "+actorID, now)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("event_id", eventID).Str("actor_id", actorID).Msg("event cancelled")

	if err := s.voice.Release(ctx, event); err != nil {
		s.log.Error().Err(err).Uint("event_id", eventID).Msg("voice release failed")
	}
	if refreshed, err := s.store.Events().FindByID(ctx, eventID); err == nil {
		event = refreshed
	}
	renderLoaded(ctx, s.store, s.messaging, s.log, event)

	settings := s.guilds.Guild(event.GuildID)
	if confirmed, err := s.store.Participants().ListByEventAndStatus(ctx, eventID, domain.StatusConfirmed); err == nil {
		content := s.translator.T(settings.Locale, "dm.cancelled", map[string]any{"Title": event.Title})
		for _, p := range confirmed {
			notifyUser(ctx, s.messaging, s.log, p.UserID, content)
		}
	}
	return event, nil
}
