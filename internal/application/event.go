package application

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"signupbot/internal/domain"
	"signupbot/internal/domain/entities"
	"signupbot/internal/ports/input"
	"signupbot/internal/ports/output"
	"signupbot/pkg/tz"
)

var _ input.EventUseCase = (*EventService)(nil)

type EventService struct {
	store     output.Store
	messaging output.MessagingGateway
	lifecycle *LifecycleService
	voice     *VoiceService
	log       zerolog.Logger
	now       func() time.Time
}

func NewEventService(
	store output.Store,
	messaging output.MessagingGateway,
	lifecycle *LifecycleService,
	voice *VoiceService,
	log zerolog.Logger,
) *EventService {
	return &EventService{
		store:     store,
		messaging: messaging,
		lifecycle: lifecycle,
		voice:     voice,
		log:       log.With().Str("component", "events").Logger(),
		now:       time.Now,
	}
}

func (s *EventService) CreateEvent(ctx context.Context, event *entities.Event) error {
	now := s.now()
	event.Title = strings.TrimSpace(event.Title)
	switch {
	case event.Title == "":
		return domain.Validationf(domain.ErrInvalidEvent, "title is required")
	case event.GuildID == "" || event.ChannelID == "":
		return domain.Validationf(domain.ErrInvalidEvent, "guild and channel are required")
	case !event.StartTime.After(now):
		return domain.ErrDateTimeInPast
	case event.MaxParticipants < 0:
		return domain.Validationf(domain.ErrInvalidEvent, "max participants must not be negative")
	case event.DurationMinutes < 0:
		return domain.Validationf(domain.ErrInvalidEvent, "duration must not be negative")
	case event.DeadlineOffset < 0:
		return domain.Validationf(domain.ErrInvalidEvent, "deadline offset must not be negative")
	}
	for role, limit := range event.RoleCapacity {
		if strings.TrimSpace(role) == "" || limit < 0 {
			return domain.Validationf(domain.ErrInvalidEvent, "invalid capacity %d for role %q", limit, role)
		}
	}
	if _, err := tz.Load(event.Timezone); err != nil {
		return domain.Validationf(domain.ErrInvalidEvent, "unknown timezone %q", event.Timezone)
	}

	event.Status = domain.EventScheduled
	event.Voice.State = s.voice.InitialState(event)
	event.CreatedAt = now
	event.UpdatedAt = now
	if err := s.store.Events().Create(ctx, event); err != nil {
		return domain.NewPersistenceError("create event", err)
	}
	s.log.Info().Uint("event_id", event.ID).Str("guild_id", event.GuildID).Time("start", event.StartTime).Msg("event created")
	return nil
}

// AttachMessage records where the sign-up message was posted and renders it.
func (s *EventService) AttachMessage(ctx context.Context, eventID uint, messageID, threadID string) error {
	if err := s.store.Events().UpdateMessageRefs(ctx, eventID, messageID, threadID); err != nil {
		return domain.NewPersistenceError("update message refs", err)
	}
	renderEvent(ctx, s.store, s.messaging, s.log, eventID)
	return nil
}

func (s *EventService) GetEventByID(ctx context.Context, id uint) (*entities.Event, error) {
	return s.store.Events().FindByID(ctx, id)
}

func (s *EventService) GetEventByMessageID(ctx context.Context, messageID string) (*entities.Event, error) {
	return s.store.Events().FindByMessageID(ctx, messageID)
}

func (s *EventService) CancelEvent(ctx context.Context, eventID uint, actorID string) (*entities.Event, error) {
	return s.lifecycle.Cancel(ctx, eventID, actorID)
}

func (s *EventService) ExtendVoiceChannel(ctx context.Context, eventID uint, minutes int) (*entities.Event, error) {
	return s.voice.Extend(ctx, eventID, minutes)
}

func (s *EventService) Render(ctx context.Context, eventID uint) {
	renderEvent(ctx, s.store, s.messaging, s.log, eventID)
}
