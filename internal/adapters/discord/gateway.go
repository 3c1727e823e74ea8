package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"signupbot/internal/domain"
	"signupbot/internal/domain/entities"
	"signupbot/internal/ports/output"
	pkgdiscord "signupbot/pkg/discord"
)

var _ output.MessagingGateway = (*Gateway)(nil)

// Gateway implements output.MessagingGateway over a discordgo session.
// Unknown message/channel/member answers surface as output.ErrRemoteNotFound.
type Gateway struct {
	session    *discordgo.Session
	translator output.Translator
	guilds     output.GuildConfigProvider
	log        zerolog.Logger
}

func NewGateway(session *discordgo.Session, translator output.Translator, guilds output.GuildConfigProvider, log zerolog.Logger) *Gateway {
	return &Gateway{
		session:    session,
		translator: translator,
		guilds:     guilds,
		log:        log.With().Str("component", "discord_gateway").Logger(),
	}
}

func mapRESTError(op string, err error) error {
	if err == nil {
		return nil
	}
	if pkgdiscord.IsUnknownObject(err) {
		return fmt.Errorf("%s: %w", op, output.ErrRemoteNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (g *Gateway) SendChannelMessage(ctx context.Context, channelID, content string) (string, error) {
	msg, err := g.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapRESTError("send channel message", err)
	}
	return msg.ID, nil
}

func (g *Gateway) SendDirectMessage(ctx context.Context, userID, content string) error {
	ch, err := g.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return mapRESTError("open dm channel", err)
	}
	_, err = g.session.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx))
	return mapRESTError("send dm", err)
}

func (g *Gateway) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return mapRESTError("delete message", g.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

func (g *Gateway) RenderEventMessage(ctx context.Context, event *entities.Event, participants []entities.Participant) error {
	if event.MessageID == "" {
		return nil
	}
	locale := g.guilds.Guild(event.GuildID).Locale
	embed := pkgdiscord.BuildEventEmbed(event, participants, g.embedLabels(locale, event))
	components := buildComponents(g.translator, locale, event, participants)

	embeds := []*discordgo.MessageEmbed{embed}
	_, err := g.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         event.MessageID,
		Channel:    event.ChannelID,
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx))
	return mapRESTError("render event message", err)
}

func (g *Gateway) embedLabels(locale string, event *entities.Event) pkgdiscord.EmbedLabels {
	t := func(key string) string { return g.translator.T(locale, key, nil) }
	labels := pkgdiscord.EmbedLabels{
		OrganizedBy: t("embed.organized_by"),
		When:        t("embed.when"),
		Places:      t("embed.places"),
		Unlimited:   t("embed.unlimited"),
		Confirmed:   t("embed.confirmed"),
		Waitlist:    t("embed.waitlist"),
		Pending:     t("embed.pending"),
		Nobody:      t("embed.nobody"),
	}
	if event.Status != domain.EventScheduled {
		labels.Status = t("embed.status." + event.Status)
	}
	if event.RequireApproval && event.Status == domain.EventScheduled {
		labels.Footer = t("embed.footer_approval")
	}
	return labels
}

func (g *Gateway) CreateVoiceChannel(ctx context.Context, req output.VoiceChannelRequest) (string, error) {
	name := sanitizeChannelName(req.Name)
	if name == "" {
		name = "event"
	}
	data := discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     discordgo.ChannelTypeGuildVoice,
		ParentID: req.CategoryID,
	}
	if req.Restricted {
		overwrites := []*discordgo.PermissionOverwrite{
			// @everyone shares the guild id.
			{ID: req.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel | discordgo.PermissionVoiceConnect},
		}
		if g.session.State != nil && g.session.State.User != nil {
			overwrites = append(overwrites, memberOverwrite(g.session.State.User.ID))
		}
		for _, userID := range req.AllowedUserIDs {
			overwrites = append(overwrites, memberOverwrite(userID))
		}
		data.PermissionOverwrites = overwrites
	}
	ch, err := g.session.GuildChannelCreateComplex(req.GuildID, data, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapRESTError("create voice channel", err)
	}
	return ch.ID, nil
}

func memberOverwrite(userID string) *discordgo.PermissionOverwrite {
	return &discordgo.PermissionOverwrite{
		ID:    userID,
		Type:  discordgo.PermissionOverwriteTypeMember,
		Allow: discordgo.PermissionViewChannel | discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak,
	}
}

func (g *Gateway) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := g.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return mapRESTError("delete channel", err)
}

func (g *Gateway) FetchMember(ctx context.Context, guildID, userID string) (*output.Member, error) {
	m, err := g.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapRESTError("fetch member", err)
	}
	return &output.Member{UserID: userID, Username: resolveDisplayName(m), RoleIDs: m.Roles}, nil
}
