package discord

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"signupbot/internal/domain"
	"signupbot/internal/domain/entities"
	pkgdiscord "signupbot/pkg/discord"
	"signupbot/pkg/tz"
)

// parseSlots convertit la valeur du champ "Nombre de places" en entier
// (0 ou vide = illimité).
func parseSlots(slotsStr string) (int, error) {
	slotsStr = strings.TrimSpace(slotsStr)
	if slotsStr == "" || slotsStr == "0" {
		return 0, nil
	}
	n, err := strconv.Atoi(slotsStr)
	if err != nil || n < 0 {
		return 0, domain.Validationf(domain.ErrInvalidEvent, "invalid slots %q", slotsStr)
	}
	return n, nil
}

// parseRoleCapacity reads "tank=2, healer=3". A role without "=n" has no
// individual limit.
func parseRoleCapacity(s string) (map[string]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	out := map[string]int{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, raw, hasLimit := strings.Cut(part, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return nil, domain.Validationf(domain.ErrInvalidEvent, "empty role name in %q", s)
		}
		limit := 0
		if hasLimit {
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil || n < 0 {
				return nil, domain.Validationf(domain.ErrInvalidEvent, "invalid capacity for role %q", name)
			}
			limit = n
		}
		out[name] = limit
	}
	return out, nil
}

// buildEvent turns the modal values and command options into an event draft.
func buildEvent(values map[string]string, opts createOptions) (*entities.Event, error) {
	loc, err := tz.Load(opts.Timezone)
	if err != nil {
		return nil, domain.Validationf(domain.ErrInvalidEvent, "unknown timezone %q", opts.Timezone)
	}
	start, err := pkgdiscord.ParseEventDateTime(values["date"], values["time"], loc)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInvalidEvent, err)
	}
	slots, err := parseSlots(values["slots"])
	if err != nil {
		return nil, err
	}
	roles, err := parseRoleCapacity(opts.Roles)
	if err != nil {
		return nil, err
	}

	event := &entities.Event{
		Title:           strings.TrimSpace(values["title"]),
		Description:     strings.TrimSpace(values["desc"]),
		StartTime:       start,
		DurationMinutes: opts.DurationMinutes,
		Timezone:        loc.String(),
		MaxParticipants: slots,
		RoleCapacity:    roles,
		RequireApproval: opts.RequireApproval,
		BenchOverflow:   opts.Bench,
		AllowLateSignup: opts.LateSignup,
		Voice: entities.VoiceChannel{
			Enabled:    opts.Voice,
			Restricted: opts.VoiceRestricted,
		},
	}
	if opts.AllowedRole != "" {
		event.AllowedRoles = []string{opts.AllowedRole}
	}
	if opts.Deadline != "" {
		offset, err := domain.ParseInterval(opts.Deadline)
		if err != nil {
			return nil, err
		}
		event.DeadlineOffset = offset
	}
	return event, nil
}

// HandleModalSubmit route les différents modals en fonction de leur CustomID.
func (h *Handler) HandleModalSubmit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	prefix, key, found := strings.Cut(data.CustomID, ":")
	if !found || prefix != customCreateModal {
		// Modal inconnu : on ignore silencieusement pour rester robuste.
		return
	}
	h.handleCreateEventModalSubmit(s, i, data, key)
}

// handleCreateEventModalSubmit gère la soumission du modal de création d'événement.
func (h *Handler) handleCreateEventModalSubmit(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ModalSubmitInteractionData, key string) {
	member := interactionUser(i)
	if member == nil {
		return
	}
	opts, _ := h.pending.take(key)
	event, err := buildEvent(pkgdiscord.ModalValues(data), opts)
	if errors.Is(err, pkgdiscord.ErrDateTimeRequired) {
		respondEphemeral(s, i.Interaction, h.translate(i.GuildID, "errors.datetime_required", nil))
		return
	}
	if err != nil {
		h.respondError(s, i, "create event", err)
		return
	}
	event.GuildID = i.GuildID
	event.ChannelID = i.ChannelID
	event.CreatorID = member.User.ID
	event.Voice.Name = event.Title

	ctx, cancel := h.interactionContext()
	defer cancel()
	if err := h.eventUseCase.CreateEvent(ctx, event); err != nil {
		h.respondError(s, i, "create event", err)
		return
	}
	respondEphemeral(s, i.Interaction, h.translate(i.GuildID, "create.done", map[string]any{"Title": event.Title}))

	msg, err := s.ChannelMessageSend(event.ChannelID, fmt.Sprintf("**%s**", event.Title), discordgo.WithContext(ctx))
	if err != nil {
		h.log.Error().Err(err).Uint("event_id", event.ID).Msg("post event message")
		if _, cerr := h.eventUseCase.CancelEvent(ctx, event.ID, member.User.ID); cerr != nil {
			h.log.Error().Err(cerr).Uint("event_id", event.ID).Msg("cancel unposted event")
		}
		return
	}

	threadID := ""
	thread, err := s.MessageThreadStart(event.ChannelID, msg.ID, event.Title, 1440, discordgo.WithContext(ctx))
	if err != nil {
		h.log.Warn().Err(err).Uint("event_id", event.ID).Msg("start event thread")
	} else {
		threadID = thread.ID
	}
	if err := h.eventUseCase.AttachMessage(ctx, event.ID, msg.ID, threadID); err != nil {
		h.log.Error().Err(err).Uint("event_id", event.ID).Msg("attach event message")
	}
}
