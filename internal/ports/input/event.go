package input

import (
	"context"

	"signupbot/internal/domain/entities"
)

type EventUseCase interface {
	CreateEvent(ctx context.Context, event *entities.Event) error
	AttachMessage(ctx context.Context, eventID uint, messageID, threadID string) error
	GetEventByID(ctx context.Context, id uint) (*entities.Event, error)
	GetEventByMessageID(ctx context.Context, messageID string) (*entities.Event, error)
	CancelEvent(ctx context.Context, eventID uint, actorID string) (*entities.Event, error)
	ExtendVoiceChannel(ctx context.Context, eventID uint, minutes int) (*entities.Event, error)
	Render(ctx context.Context, eventID uint)
}
