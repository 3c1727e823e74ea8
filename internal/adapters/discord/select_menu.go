package discord

import (
	"context"
	"slices"
	"sort"

	"github.com/bwmarrin/discordgo"

	"signupbot/internal/application"
	"signupbot/internal/domain"
	"signupbot/internal/domain/entities"
	"signupbot/internal/ports/input"
)

const promoteNextValue = "__next"

func (h *Handler) offerRoles(s *discordgo.Session, i *discordgo.InteractionCreate, event *entities.Event) {
	roles := make([]string, 0, len(event.RoleCapacity))
	for role := range event.RoleCapacity {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	if len(roles) > maxSelectOptions {
		roles = roles[:maxSelectOptions]
	}
	options := make([]discordgo.SelectMenuOption, 0, len(roles))
	for _, role := range roles {
		options = append(options, discordgo.SelectMenuOption{Label: role, Value: role})
	}
	respondMenu(s, i.Interaction, h.translate(i.GuildID, "menu.role", map[string]any{"Title": event.Title}), discordgo.SelectMenu{
		CustomID:    withEventID(customRole, event.ID),
		Placeholder: h.translate(i.GuildID, "menu.role_placeholder", nil),
		Options:     options,
	})
}

func (h *Handler) HandleRoleSelect(s *discordgo.Session, i *discordgo.InteractionCreate, eventID uint) {
	ctx, cancel := h.interactionContext()
	defer cancel()
	data := i.MessageComponentData()
	if len(data.Values) == 0 || interactionUser(i) == nil {
		return
	}
	event, err := h.eventUseCase.GetEventByID(ctx, eventID)
	if err != nil {
		h.respondError(s, i, "join", err)
		return
	}
	h.join(ctx, s, i, event, data.Values[0])
}

func (h *Handler) queued(ctx context.Context, eventID uint, status string) ([]entities.Participant, error) {
	all, err := h.participantUseCase.ListParticipants(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]entities.Participant, 0, len(all))
	for _, p := range all {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

func participantOptions(participants []entities.Participant, selected func(entities.Participant) bool) []discordgo.SelectMenuOption {
	if len(participants) > maxSelectOptions {
		participants = participants[:maxSelectOptions]
	}
	options := make([]discordgo.SelectMenuOption, 0, len(participants))
	for _, p := range participants {
		label := p.Username
		if label == "" {
			label = p.UserID
		}
		opt := discordgo.SelectMenuOption{Label: label, Value: p.UserID, Description: p.Role}
		if selected != nil {
			opt.Default = selected(p)
		}
		options = append(options, opt)
	}
	return options
}

func (h *Handler) HandlePromoteMenu(s *discordgo.Session, i *discordgo.InteractionCreate, eventID uint) {
	ctx, cancel := h.interactionContext()
	defer cancel()
	if _, ok := h.organizerEvent(ctx, s, i, eventID); !ok {
		return
	}
	waitlist, err := h.queued(ctx, eventID, domain.StatusWaitlist)
	if err != nil {
		h.respondError(s, i, "promote menu", err)
		return
	}
	if len(waitlist) == 0 {
		respondEphemeral(s, i.Interaction, h.translate(i.GuildID, "menu.waitlist_empty", nil))
		return
	}
	options := append([]discordgo.SelectMenuOption{
		{Label: h.translate(i.GuildID, "menu.promote_next", nil), Value: promoteNextValue},
	}, participantOptions(waitlist[:min(len(waitlist), maxSelectOptions-1)], nil)...)
	respondMenu(s, i.Interaction, h.translate(i.GuildID, "menu.promote", nil), discordgo.SelectMenu{
		CustomID: withEventID(customPromote, eventID),
		Options:  options,
	})
}

func (h *Handler) HandlePromote(s *discordgo.Session, i *discordgo.InteractionCreate, eventID uint) {
	ctx, cancel := h.interactionContext()
	defer cancel()
	data := i.MessageComponentData()
	if len(data.Values) == 0 {
		return
	}
	if _, ok := h.organizerEvent(ctx, s, i, eventID); !ok {
		return
	}
	var result *input.PromoteResult
	err := application.RetryOnConflict(ctx, func(ctx context.Context) error {
		var err error
		if data.Values[0] == promoteNextValue {
			result, err = h.participantUseCase.PromoteNext(ctx, eventID)
		} else {
			result, err = h.participantUseCase.Promote(ctx, eventID, data.Values[0])
		}
		return err
	})
	if err != nil {
		h.respondError(s, i, "promote", err)
		return
	}
	if result.NoCapacity || result.Promoted == nil {
		respondEphemeral(s, i.Interaction, h.translate(i.GuildID, "promote.no_capacity", nil))
		return
	}
	respondEphemeral(s, i.Interaction, h.translate(i.GuildID, "promote.done", map[string]any{"UserID": result.Promoted.UserID}))
}

func (h *Handler) HandleApproveMenu(s *discordgo.Session, i *discordgo.InteractionCreate, eventID uint) {
	ctx, cancel := h.interactionContext()
	defer cancel()
	if _, ok := h.organizerEvent(ctx, s, i, eventID); !ok {
		return
	}
	pending, err := h.queued(ctx, eventID, domain.StatusPending)
	if err != nil {
		h.respondError(s, i, "approve menu", err)
		return
	}
	if len(pending) == 0 {
		respondEphemeral(s, i.Interaction, h.translate(i.GuildID, "menu.pending_empty", nil))
		return
	}
	options := participantOptions(pending, nil)
	minValues := 1
	respondMenu(s, i.Interaction, h.translate(i.GuildID, "menu.approve", nil), discordgo.SelectMenu{
		CustomID:  withEventID(customApprove, eventID),
		Options:   options,
		MinValues: &minValues,
		MaxValues: len(options),
	})
}

func (h *Handler) HandleApprove(s *discordgo.Session, i *discordgo.InteractionCreate, eventID uint) {
	ctx, cancel := h.interactionContext()
	defer cancel()
	data := i.MessageComponentData()
	if len(data.Values) == 0 {
		return
	}
	if _, ok := h.organizerEvent(ctx, s, i, eventID); !ok {
		return
	}
	var result *input.ApproveResult
	err := application.RetryOnConflict(ctx, func(ctx context.Context) error {
		var err error
		result, err = h.participantUseCase.Approve(ctx, eventID, data.Values, i.Member.User.ID)
		return err
	})
	if err != nil {
		h.respondError(s, i, "approve", err)
		return
	}
	respondEphemeral(s, i.Interaction, h.translate(i.GuildID, "approve.done", map[string]any{
		"Confirmed":  len(result.Confirmed),
		"Waitlisted": len(result.Waitlisted),
		"Skipped":    len(result.Skipped),
	}))
}

func (h *Handler) HandleNoShowMenu(s *discordgo.Session, i *discordgo.InteractionCreate, eventID uint) {
	ctx, cancel := h.interactionContext()
	defer cancel()
	event, ok := h.organizerEvent(ctx, s, i, eventID)
	if !ok {
		return
	}
	if event.Status != domain.EventCompleted {
		h.respondError(s, i, "no-show menu", domain.ErrEventNotCompleted)
		return
	}
	confirmed, err := h.queued(ctx, eventID, domain.StatusConfirmed)
	if err != nil {
		h.respondError(s, i, "no-show menu", err)
		return
	}
	if len(confirmed) == 0 {
		respondEphemeral(s, i.Interaction, h.translate(i.GuildID, "menu.confirmed_empty", nil))
		return
	}
	options := participantOptions(confirmed, func(p entities.Participant) bool { return p.NoShow })
	minValues := 0
	respondMenu(s, i.Interaction, h.translate(i.GuildID, "menu.noshow", nil), discordgo.SelectMenu{
		CustomID:  withEventID(customNoShow, eventID),
		Options:   options,
		MinValues: &minValues,
		MaxValues: len(options),
	})
}

// HandleNoShow treats the submitted selection as the complete set of
// no-shows among the listed participants.
func (h *Handler) HandleNoShow(s *discordgo.Session, i *discordgo.InteractionCreate, eventID uint) {
	ctx, cancel := h.interactionContext()
	defer cancel()
	if _, ok := h.organizerEvent(ctx, s, i, eventID); !ok {
		return
	}
	confirmed, err := h.queued(ctx, eventID, domain.StatusConfirmed)
	if err != nil {
		h.respondError(s, i, "no-show", err)
		return
	}
	if len(confirmed) > maxSelectOptions {
		confirmed = confirmed[:maxSelectOptions]
	}
	selected := i.MessageComponentData().Values
	changed := 0
	for _, p := range confirmed {
		noShow := slices.Contains(selected, p.UserID)
		if noShow == p.NoShow {
			continue
		}
		if _, err := h.statisticsUseCase.SetNoShow(ctx, eventID, p.UserID, noShow); err != nil {
			h.respondError(s, i, "no-show", err)
			return
		}
		changed++
	}
	respondEphemeral(s, i.Interaction, h.translate(i.GuildID, "noshow.done", map[string]any{"Changed": changed}))
}
