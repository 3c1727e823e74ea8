package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"signupbot/internal/domain"
	"signupbot/internal/domain/entities"
	"signupbot/internal/ports/output"
)

const (
	// ReminderTolerance is how far from the exact interval a tick may still
	// send. It must exceed half the tick period.
	ReminderTolerance = 90 * time.Second
	// ReminderLookahead bounds which events are considered at all. The
	// tolerance keeps the full window of the longest interval.
	ReminderLookahead = domain.MaxReminderInterval + ReminderTolerance
)

// ReminderService sends each configured reminder at most once per event.
type ReminderService struct {
	store      output.Store
	messaging  output.MessagingGateway
	guilds     output.GuildConfigProvider
	translator output.Translator
	log        zerolog.Logger
}

func NewReminderService(store output.Store, messaging output.MessagingGateway, guilds output.GuildConfigProvider, translator output.Translator, log zerolog.Logger) *ReminderService {
	return &ReminderService{
		store:      store,
		messaging:  messaging,
		guilds:     guilds,
		translator: translator,
		log:        log.With().Str("component", "reminders").Logger(),
	}
}

// Dispatch sends the reminders due at now.
func (s *ReminderService) Dispatch(ctx context.Context, now time.Time) error {
	events, err := s.store.Events().ListScheduledStartingBefore(ctx, now.Add(ReminderLookahead))
	if err != nil {
		return domain.NewPersistenceError("list upcoming", err)
	}
	for i := range events {
		event := &events[i]
		until := event.StartTime.Sub(now)
		if until <= 0 || until > ReminderLookahead {
			continue
		}
		settings := s.guilds.Guild(event.GuildID)
		for _, raw := range settings.ReminderIntervals {
			interval := strings.TrimSpace(raw)
			d, err := domain.ParseReminderInterval(interval)
			if err != nil {
				s.log.Warn().Err(err).Str("guild_id", event.GuildID).Str("interval", raw).Msg("skipping reminder interval")
				continue
			}
			if absDuration(until-d) >= ReminderTolerance {
				continue
			}
			if err := s.send(ctx, event, settings, interval, now); err != nil {
				s.log.Error().Err(err).Uint("event_id", event.ID).Str("interval", interval).Msg("reminder failed")
			}
		}
	}
	return nil
}

func (s *ReminderService) send(ctx context.Context, event *entities.Event, settings output.GuildSettings, interval string, now time.Time) error {
	claimed, err := s.store.Reminders().Claim(ctx, &entities.Reminder{EventID: event.ID, Interval: interval, SentAt: now})
	if err != nil {
		return domain.NewPersistenceError("claim reminder", err)
	}
	if !claimed {
		return nil
	}

	content := s.translator.T(settings.Locale, "reminder.channel", map[string]any{
		"Title":    event.Title,
		"Interval": interval,
		"Start":    event.StartTime.Unix(),
	})
	messageID, err := s.messaging.SendChannelMessage(ctx, event.ChannelID, content)
	if err != nil {
		if rerr := s.store.Reminders().Release(ctx, event.ID, interval); rerr != nil {
			s.log.Error().Err(rerr).Uint("event_id", event.ID).Str("interval", interval).Msg("reminder claim not released")
		}
		return domain.NewGatewayError("send reminder", err)
	}
	if err := s.store.Reminders().SetMessageID(ctx, event.ID, interval, messageID); err != nil {
		s.log.Error().Err(err).Uint("event_id", event.ID).Msg("store reminder message id")
	}
	s.log.Info().Uint("event_id", event.ID).Str("interval", interval).Msg("reminder sent")

	if settings.ReminderDMs {
		s.sendDirect(ctx, event, settings, interval)
	}
	return nil
}

// sendDirect messages confirmed participants that are still guild members.
func (s *ReminderService) sendDirect(ctx context.Context, event *entities.Event, settings output.GuildSettings, interval string) {
	confirmed, err := s.store.Participants().ListByEventAndStatus(ctx, event.ID, domain.StatusConfirmed)
	if err != nil {
		s.log.Error().Err(err).Uint("event_id", event.ID).Msg("reminder dms: list confirmed")
		return
	}
	content := s.translator.T(settings.Locale, "reminder.dm", map[string]any{
		"Title":    event.Title,
		"Interval": interval,
		"Start":    event.StartTime.Unix(),
	})
	for _, p := range confirmed {
		if _, err := s.messaging.FetchMember(ctx, event.GuildID, p.UserID); err != nil {
			if !errors.Is(err, output.ErrRemoteNotFound) {
				s.log.Warn().Err(err).Str("user_id", p.UserID).Msg("reminder dms: fetch member")
			}
			continue
		}
		notifyUser(ctx, s.messaging, s.log, p.UserID, content)
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
