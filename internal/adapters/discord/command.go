package discord

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	commandEvent       = "event"
	commandLeaderboard = "leaderboard"

	defaultLeaderboardSize = 10
	pendingCreateTTL       = 15 * time.Minute
)

const (
	placeholderTitle = "Ex: Raid, Soirée jeux..."
	placeholderDesc  = "Lieu, infos pratiques..."
	placeholderDate  = "Ex: 15/02/2026 (jour/mois/année)"
	placeholderTime  = "Ex: 14:00 ou 18:30"
	placeholderSlots = "Ex: 4 ou vide = illimité"
)

// Commands lists the application commands registered at start-up.
func Commands() []*discordgo.ApplicationCommand {
	minLimit := 1.0
	return []*discordgo.ApplicationCommand{
		{
			Name:        commandEvent,
			Description: "Create a sign-up event",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "timezone", Description: "IANA timezone, e.g. Europe/Paris"},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "duration", Description: "Duration in minutes"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "roles", Description: "Role capacities, e.g. tank=2,healer=3,dps=5"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "deadline", Description: "Close sign-ups this long before start, e.g. 2h"},
				{Type: discordgo.ApplicationCommandOptionRole, Name: "allowed_role", Description: "Only members with this role sign up normally"},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "approval", Description: "Sign-ups need organizer approval"},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "bench", Description: "Ineligible members go to the waitlist instead of being refused"},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "late_signup", Description: "Allow joining after start"},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "voice", Description: "Create a temporary voice channel"},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "voice_restricted", Description: "Only confirmed participants see the voice channel"},
			},
		},
		{
			Name:        commandLeaderboard,
			Description: "Show attendance ranks",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "limit", Description: "How many entries", MinValue: &minLimit, MaxValue: 25},
			},
		},
	}
}

// createOptions are the slash command options carried over to the modal.
type createOptions struct {
	Timezone        string
	DurationMinutes int
	Roles           string
	Deadline        string
	AllowedRole     string
	RequireApproval bool
	Bench           bool
	LateSignup      bool
	Voice           bool
	VoiceRestricted bool
	createdAt       time.Time
}

// pendingCreates keeps command options until the matching modal is submitted.
type pendingCreates struct {
	mu    sync.Mutex
	items map[string]createOptions
}

func (p *pendingCreates) put(key string, opts createOptions, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.items == nil {
		p.items = map[string]createOptions{}
	}
	for k, v := range p.items {
		if now.Sub(v.createdAt) > pendingCreateTTL {
			delete(p.items, k)
		}
	}
	opts.createdAt = now
	p.items[key] = opts
}

func (p *pendingCreates) take(key string) (createOptions, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	opts, ok := p.items[key]
	delete(p.items, key)
	return opts, ok
}

func readCreateOptions(data discordgo.ApplicationCommandInteractionData) createOptions {
	var opts createOptions
	for _, o := range data.Options {
		switch o.Name {
		case "timezone":
			opts.Timezone = strings.TrimSpace(o.StringValue())
		case "duration":
			opts.DurationMinutes = int(o.IntValue())
		case "roles":
			opts.Roles = o.StringValue()
		case "deadline":
			opts.Deadline = o.StringValue()
		case "allowed_role":
			if v, ok := o.Value.(string); ok {
				opts.AllowedRole = v
			}
		case "approval":
			opts.RequireApproval = o.BoolValue()
		case "bench":
			opts.Bench = o.BoolValue()
		case "late_signup":
			opts.LateSignup = o.BoolValue()
		case "voice":
			opts.Voice = o.BoolValue()
		case "voice_restricted":
			opts.VoiceRestricted = o.BoolValue()
		}
	}
	return opts
}

func (h *Handler) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if interactionUser(i) == nil {
		return
	}
	opts := readCreateOptions(i.ApplicationCommandData())
	h.pending.put(i.ID, opts, h.now())

	text := func(key string) string { return h.translate(i.GuildID, key, nil) }
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: customCreateModal + ":" + i.ID,
			Title:    text("modal.create_title"),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{CustomID: "title", Label: text("modal.title"), Style: discordgo.TextInputShort, Required: true, MaxLength: 100, Placeholder: placeholderTitle},
				}},
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{CustomID: "desc", Label: text("modal.description"), Style: discordgo.TextInputParagraph, Required: false, Placeholder: placeholderDesc},
				}},
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{CustomID: "date", Label: text("modal.date"), Style: discordgo.TextInputShort, Required: true, Placeholder: placeholderDate},
				}},
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{CustomID: "time", Label: text("modal.time"), Style: discordgo.TextInputShort, Required: true, Placeholder: placeholderTime},
				}},
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{CustomID: "slots", Label: text("modal.slots"), Style: discordgo.TextInputShort, Required: false, Placeholder: placeholderSlots},
				}},
			},
		},
	})
}

func (h *Handler) HandleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := h.interactionContext()
	defer cancel()
	limit := defaultLeaderboardSize
	for _, o := range i.ApplicationCommandData().Options {
		if o.Name == "limit" {
			limit = int(o.IntValue())
		}
	}
	entries, err := h.statisticsUseCase.Leaderboard(ctx, i.GuildID, limit)
	if err != nil {
		h.respondError(s, i, "leaderboard", err)
		return
	}
	if len(entries) == 0 {
		respondEphemeral(s, i.Interaction, h.translate(i.GuildID, "leaderboard.empty", nil))
		return
	}
	var b strings.Builder
	b.WriteString(h.translate(i.GuildID, "leaderboard.title", nil))
	for _, st := range entries {
		rank := "-"
		if st.Rank != nil {
			rank = fmt.Sprint(*st.Rank)
		}
		b.WriteString("\n")
		b.WriteString(h.translate(i.GuildID, "leaderboard.line", map[string]any{
			"Rank":      rank,
			"UserID":    st.UserID,
			"Score":     st.Score,
			"Completed": st.TotalCompleted,
			"NoShows":   st.TotalNoShows,
		}))
	}
	respondEphemeral(s, i.Interaction, b.String())
}
