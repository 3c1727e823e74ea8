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

// VoiceService drives the temporary voice channel of each event through
// NotScheduled -> Scheduled -> Created -> Deleted.
type VoiceService struct {
	store     output.Store
	messaging output.MessagingGateway
	guilds    output.GuildConfigProvider
	log       zerolog.Logger
	now       func() time.Time
}

func NewVoiceService(store output.Store, messaging output.MessagingGateway, guilds output.GuildConfigProvider, log zerolog.Logger) *VoiceService {
	return &VoiceService{
		store:     store,
		messaging: messaging,
		guilds:    guilds,
		log:       log.With().Str("component", "voice").Logger(),
		now:       time.Now,
	}
}

// InitialState computes the state a new event starts with.
func (s *VoiceService) InitialState(event *entities.Event) entities.VoiceChannelState {
	if !event.Voice.Enabled {
		return entities.VoiceStateNotScheduled()
	}
	settings := s.guilds.Guild(event.GuildID)
	if event.Voice.CreateBeforeMinutes <= 0 {
		event.Voice.CreateBeforeMinutes = settings.VoiceCreateBeforeMinutes
	}
	buffer := time.Duration(settings.VoicePostEventBufferMinutes) * time.Minute
	return entities.VoiceStateScheduled(event.VoiceCreateAt(), event.VoiceDeleteAt(buffer))
}

// Sync creates due channels and deletes expired ones. Channels of cancelled
// events are released whatever their schedule. Gateway failures leave the
// state untouched so the next tick retries.
func (s *VoiceService) Sync(ctx context.Context, now time.Time) error {
	events, err := s.store.Events().ListVoicePending(ctx)
	if err != nil {
		return domain.NewPersistenceError("list voice pending", err)
	}
	for i := range events {
		event := &events[i]
		var err error
		switch {
		case event.Status == domain.EventCancelled:
			err = s.release(ctx, event, now)
		case event.Voice.State.DueForCreation(now):
			err = s.create(ctx, event, now)
		case event.Voice.State.DueForDeletion(now):
			err = s.remove(ctx, event, now)
		}
		if err != nil {
			s.log.Error().Err(err).Uint("event_id", event.ID).Str("phase", string(event.Voice.State.Phase)).Msg("voice sync failed")
		}
	}
	return nil
}

func (s *VoiceService) create(ctx context.Context, event *entities.Event, now time.Time) error {
	settings := s.guilds.Guild(event.GuildID)
	req := output.VoiceChannelRequest{
		GuildID:    event.GuildID,
		CategoryID: settings.VoiceCategoryID,
		Name:       event.Voice.Name,
		Restricted: event.Voice.Restricted,
	}
	if req.Name == "" {
		req.Name = event.Title
	}
	if req.Restricted {
		confirmed, err := s.store.Participants().ListByEventAndStatus(ctx, event.ID, domain.StatusConfirmed)
		if err != nil {
			return domain.NewPersistenceError("list confirmed", err)
		}
		for _, p := range confirmed {
			req.AllowedUserIDs = append(req.AllowedUserIDs, p.UserID)
		}
	}

	channelID, err := s.messaging.CreateVoiceChannel(ctx, req)
	if err != nil {
		return domain.NewGatewayError("create voice channel", err)
	}

	persisted := false
	err = s.store.InEventTx(ctx, event.ID, func(ctx context.Context, r output.Repositories) error {
		current, err := r.Events().FindByID(ctx, event.ID)
		if err != nil {
			return err
		}
		if current.Voice.State.Phase != entities.VoiceScheduled {
			return nil
		}
		state := entities.VoiceStateCreated(channelID, now, current.Voice.State.DeleteAt)
		ok, err := r.Events().UpdateVoiceState(ctx, event.ID, entities.VoiceScheduled, state)
		if err != nil {
			return domain.NewPersistenceError("update voice state", err)
		}
		if !ok {
			return nil
		}
		persisted = true
		return appendAudit(ctx, r, current, "", actionVoice, "created "+channelID, now)
	})
	if err != nil || !persisted {
		// Nothing references the channel we just made.
		if derr := s.messaging.DeleteChannel(ctx, channelID); derr != nil && !errors.Is(derr, output.ErrRemoteNotFound) {
			s.log.Warn().Err(derr).Uint("event_id", event.ID).Str("channel_id", channelID).Msg("orphan voice channel not deleted")
		}
		return err
	}
	s.log.Info().Uint("event_id", event.ID).Str("channel_id", channelID).Msg("voice channel created")
	return nil
}

func (s *VoiceService) remove(ctx context.Context, event *entities.Event, now time.Time) error {
	state := event.Voice.State
	if err := s.messaging.DeleteChannel(ctx, state.ExternalID); err != nil && !errors.Is(err, output.ErrRemoteNotFound) {
		return domain.NewGatewayError("delete voice channel", err)
	}
	return s.store.InTx(ctx, func(ctx context.Context, r output.Repositories) error {
		ok, err := r.Events().UpdateVoiceState(ctx, event.ID, entities.VoiceCreated, entities.VoiceStateDeleted(now))
		if err != nil {
			return domain.NewPersistenceError("update voice state", err)
		}
		if !ok {
			return nil
		}
		s.log.Info().Uint("event_id", event.ID).Str("channel_id", state.ExternalID).Msg("voice channel deleted")
		return appendAudit(ctx, r, event, "", actionVoice, "deleted "+state.ExternalID, now)
	})
}

// Release tears the channel down ahead of schedule, as on cancellation.
func (s *VoiceService) Release(ctx context.Context, event *entities.Event) error {
	return s.release(ctx, event, s.now())
}

func (s *VoiceService) release(ctx context.Context, event *entities.Event, now time.Time) error {
	switch event.Voice.State.Phase {
	case entities.VoiceCreated:
		return s.remove(ctx, event, now)
	case entities.VoiceScheduled:
		_, err := s.store.Events().UpdateVoiceState(ctx, event.ID, entities.VoiceScheduled, entities.VoiceStateDeleted(now))
		if err != nil {
			return domain.NewPersistenceError("update voice state", err)
		}
	}
	return nil
}

// Extend pushes the deletion time of a scheduled or live channel back.
func (s *VoiceService) Extend(ctx context.Context, eventID uint, minutes int) (*entities.Event, error) {
	if minutes <= 0 {
		return nil, domain.Validationf(domain.ErrVoiceNotExtendable, "minutes must be positive, got %d", minutes)
	}
	var updated *entities.Event
	err := s.store.InEventTx(ctx, eventID, func(ctx context.Context, r output.Repositories) error {
		event, err := r.Events().FindByID(ctx, eventID)
		if err != nil {
			return err
		}
		state, ok := event.Voice.State.Extended(time.Duration(minutes) * time.Minute)
		if !ok {
			return domain.Validationf(domain.ErrVoiceNotExtendable, "voice channel is %s", event.Voice.State.Phase)
		}
		if _, err := r.Events().UpdateVoiceState(ctx, eventID, event.Voice.State.Phase, state); err != nil {
			return domain.NewPersistenceError("update voice state", err)
		}
		event.Voice.State = state
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("event_id", eventID).Time("delete_at", updated.Voice.State.DeleteAt).Msg("voice channel extended")
	return updated, nil
}
