package discord

import (
	"github.com/bwmarrin/discordgo"

	"signupbot/internal/domain"
	pkgdiscord "signupbot/pkg/discord"
)

// Nick > GlobalName > Username
func resolveDisplayName(member *discordgo.Member) string {
	if member == nil || member.User == nil {
		return ""
	}
	if member.Nick != "" {
		return member.Nick
	}
	if member.User.GlobalName != "" {
		return member.User.GlobalName
	}
	return member.User.Username
}

// interactionUser returns the invoking member, or nil outside a guild.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.Member {
	if i.Member == nil || i.Member.User == nil {
		return nil
	}
	return i.Member
}

func respondEphemeral(s *discordgo.Session, i *discordgo.Interaction, content string) {
	_ = s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func respondMenu(s *discordgo.Session, i *discordgo.Interaction, content string, menu discordgo.SelectMenu) {
	_ = s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{menu}},
			},
		},
	})
}

// respondError answers with the translated domain error and logs anything
// that is not a plain validation failure.
func (h *Handler) respondError(s *discordgo.Session, i *discordgo.InteractionCreate, action string, err error) {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindNotFound, domain.KindCapacityConflict:
		h.log.Debug().Err(err).Str("action", action).Msg("interaction rejected")
	default:
		h.log.Error().Err(err).Str("action", action).Str("guild_id", i.GuildID).Msg("interaction failed")
	}
	respondEphemeral(s, i.Interaction, h.translate(i.GuildID, pkgdiscord.ErrorKey(err), nil))
}
