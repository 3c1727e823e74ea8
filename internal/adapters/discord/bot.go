package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Bot is the Discord adapter: it owns the gateway connection and routes
// interactions to the Handler.
type Bot struct {
	session *discordgo.Session
	handler *Handler
	guildID string
	log     zerolog.Logger

	removeHandler func()
	commands      []*discordgo.ApplicationCommand
}

// NewSession opens nothing yet; it only prepares an authenticated session.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	return s, nil
}

// NewBot wires the handler on session. guildID scopes command registration;
// empty registers global commands.
func NewBot(session *discordgo.Session, handler *Handler, guildID string, log zerolog.Logger) *Bot {
	return &Bot{
		session: session,
		handler: handler,
		guildID: guildID,
		log:     log.With().Str("component", "discord_bot").Logger(),
	}
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Str("interaction_id", i.ID).Msg("interaction handler panicked")
		}
	}()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case commandEvent:
			b.handler.HandleCommand(s, i)
		case commandLeaderboard:
			b.handler.HandleLeaderboard(s, i)
		}
	case discordgo.InteractionModalSubmit:
		b.handler.HandleModalSubmit(s, i)
	case discordgo.InteractionMessageComponent:
		b.routeComponent(s, i)
	}
}

func (b *Bot) routeComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	prefix, eventID, ok := splitCustomID(customID)
	if !ok {
		switch customID {
		case customJoin:
			b.handler.HandleJoin(s, i)
		case customLeave:
			b.handler.HandleLeave(s, i)
		}
		return
	}
	switch prefix {
	case customRole:
		b.handler.HandleRoleSelect(s, i, eventID)
	case customPromoteMenu:
		b.handler.HandlePromoteMenu(s, i, eventID)
	case customPromote:
		b.handler.HandlePromote(s, i, eventID)
	case customApproveMenu:
		b.handler.HandleApproveMenu(s, i, eventID)
	case customApprove:
		b.handler.HandleApprove(s, i, eventID)
	case customNoShowMenu:
		b.handler.HandleNoShowMenu(s, i, eventID)
	case customNoShow:
		b.handler.HandleNoShow(s, i, eventID)
	case customCancel:
		b.handler.HandleCancel(s, i, eventID)
	case customExtendVoice:
		b.handler.HandleExtendVoice(s, i, eventID)
	default:
		b.log.Debug().Str("custom_id", customID).Msg("unknown component")
	}
}

// Open connects to Discord and registers the application commands.
func (b *Bot) Open() error {
	b.removeHandler = b.session.AddHandler(b.handleInteraction)
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	appID := b.session.State.User.ID
	for _, cmd := range Commands() {
		created, err := b.session.ApplicationCommandCreate(appID, b.guildID, cmd)
		if err != nil {
			b.log.Warn().Err(err).Str("command", cmd.Name).Msg("register command failed")
			continue
		}
		b.commands = append(b.commands, created)
	}
	b.log.Info().Str("user", b.session.State.User.Username).Int("commands", len(b.commands)).Msg("bot online")
	return nil
}

// Close disconnects; registered commands stay in place.
func (b *Bot) Close() error {
	if b.removeHandler != nil {
		b.removeHandler()
	}
	return b.session.Close()
}
