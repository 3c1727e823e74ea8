package discord

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"signupbot/internal/application"
	"signupbot/internal/domain"
	"signupbot/internal/domain/entities"
	"signupbot/internal/ports/input"
	pkgdiscord "signupbot/pkg/discord"
)

const maxSelectOptions = 25

// isOrganizer: the creator, or anyone allowed to manage guild events.
func isOrganizer(i *discordgo.InteractionCreate, event *entities.Event) bool {
	m := interactionUser(i)
	if m == nil {
		return false
	}
	return m.User.ID == event.CreatorID || m.Permissions&discordgo.PermissionManageEvents != 0
}

// organizerEvent loads the event named by the component id and checks the
// caller may manage it. It answers the interaction itself on failure.
func (h *Handler) organizerEvent(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, eventID uint) (*entities.Event, bool) {
	event, err := h.eventUseCase.GetEventByID(ctx, eventID)
	if err != nil {
		h.respondError(s, i, "load event", err)
		return nil, false
	}
	if !isOrganizer(i, event) {
		respondEphemeral(s, i.Interaction, h.translate(i.GuildID, "errors.not_organizer", nil))
		return nil, false
	}
	return event, true
}

func (h *Handler) HandleJoin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := h.interactionContext()
	defer cancel()
	member := interactionUser(i)
	if member == nil {
		return
	}
	event, err := h.eventUseCase.GetEventByMessageID(ctx, i.Message.ID)
	if err != nil {
		h.respondError(s, i, "join", err)
		return
	}

	if event.HasRoleConfig() {
		h.offerRoles(s, i, event)
		return
	}
	h.join(ctx, s, i, event, "")
}

func (h *Handler) join(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, event *entities.Event, role string) {
	member := interactionUser(i)
	req := input.JoinRequest{
		EventID:       event.ID,
		UserID:        member.User.ID,
		Username:      resolveDisplayName(member),
		Role:          role,
		CallerRoleIDs: member.Roles,
	}
	var joined *entities.Participant
	err := application.RetryOnConflict(ctx, func(ctx context.Context) error {
		var err error
		joined, err = h.participantUseCase.Join(ctx, req)
		return err
	})
	if errors.Is(err, domain.ErrParticipantExists) && role != "" {
		h.changeRole(ctx, s, i, event, role)
		return
	}
	if err != nil {
		h.respondError(s, i, "join", err)
		return
	}

	data := map[string]any{"Title": event.Title, "Position": joined.WaitlistPosition()}
	respondEphemeral(s, i.Interaction, h.translate(i.GuildID, "join."+joined.Status, data))
}

func (h *Handler) changeRole(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, event *entities.Event, role string) {
	var result *input.RoleUpdateResult
	err := application.RetryOnConflict(ctx, func(ctx context.Context) error {
		var err error
		result, err = h.participantUseCase.UpdateRole(ctx, event.ID, interactionUser(i).User.ID, role)
		return err
	})
	if err != nil {
		h.respondError(s, i, "update role", err)
		return
	}
	key := "role.updated"
	if result.Demoted {
		key = "role.updated_waitlist"
	}
	respondEphemeral(s, i.Interaction, h.translate(i.GuildID, key, map[string]any{
		"Role":     role,
		"Position": result.Participant.WaitlistPosition(),
	}))
}

func (h *Handler) HandleLeave(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := h.interactionContext()
	defer cancel()
	member := interactionUser(i)
	if member == nil {
		return
	}
	event, err := h.eventUseCase.GetEventByMessageID(ctx, i.Message.ID)
	if err != nil {
		h.respondError(s, i, "leave", err)
		return
	}
	err = application.RetryOnConflict(ctx, func(ctx context.Context) error {
		_, err := h.participantUseCase.Leave(ctx, event.ID, member.User.ID)
		return err
	})
	if err != nil {
		h.respondError(s, i, "leave", err)
		return
	}
	respondEphemeral(s, i.Interaction, h.translate(i.GuildID, "leave.done", map[string]any{"Title": event.Title}))
}

func (h *Handler) HandleCancel(s *discordgo.Session, i *discordgo.InteractionCreate, eventID uint) {
	ctx, cancel := h.interactionContext()
	defer cancel()
	if _, ok := h.organizerEvent(ctx, s, i, eventID); !ok {
		return
	}
	event, err := h.eventUseCase.CancelEvent(ctx, eventID, i.Member.User.ID)
	if err != nil {
		h.respondError(s, i, "cancel", err)
		return
	}
	respondEphemeral(s, i.Interaction, h.translate(i.GuildID, "cancel.done", map[string]any{"Title": event.Title}))
}

func (h *Handler) HandleExtendVoice(s *discordgo.Session, i *discordgo.InteractionCreate, eventID uint) {
	ctx, cancel := h.interactionContext()
	defer cancel()
	if _, ok := h.organizerEvent(ctx, s, i, eventID); !ok {
		return
	}
	event, err := h.eventUseCase.ExtendVoiceChannel(ctx, eventID, extendVoiceMinutes)
	if err != nil {
		h.respondError(s, i, "extend voice", err)
		return
	}
	respondEphemeral(s, i.Interaction, h.translate(i.GuildID, "voice.extended", map[string]any{
		"Minutes":  extendVoiceMinutes,
		"DeleteAt": pkgdiscord.Timestamp(event.Voice.State.DeleteAt, "t"),
	}))
}
