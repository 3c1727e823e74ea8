package output

import (
	"context"
	"errors"

	"signupbot/internal/domain/entities"
)

// ErrRemoteNotFound is returned by MessagingGateway when the message,
// channel or member no longer exists on the platform.
var ErrRemoteNotFound = errors.New("remote object not found")

type VoiceChannelRequest struct {
	GuildID        string
	CategoryID     string
	Name           string
	Restricted     bool
	AllowedUserIDs []string
}

type Member struct {
	UserID   string
	Username string
	RoleIDs  []string
}

// MessagingGateway is the chat platform. Every call may fail independently.
type MessagingGateway interface {
	SendChannelMessage(ctx context.Context, channelID, content string) (messageID string, err error)
	SendDirectMessage(ctx context.Context, userID, content string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	// RenderEventMessage re-renders the event's sign-up message.
	RenderEventMessage(ctx context.Context, event *entities.Event, participants []entities.Participant) error
	CreateVoiceChannel(ctx context.Context, req VoiceChannelRequest) (channelID string, err error)
	DeleteChannel(ctx context.Context, channelID string) error
	FetchMember(ctx context.Context, guildID, userID string) (*Member, error)
}
