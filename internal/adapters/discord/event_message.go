package discord

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"signupbot/internal/domain"
	"signupbot/internal/domain/entities"
	"signupbot/internal/ports/output"
)

// Component custom ids. Organizer actions carry the event id after the colon.
const (
	customJoin        = "btn_join"
	customLeave       = "btn_leave"
	customPromoteMenu = "btn_promote_menu"
	customApproveMenu = "btn_approve_menu"
	customNoShowMenu  = "btn_noshow_menu"
	customCancel      = "btn_cancel"
	customExtendVoice = "btn_extend_voice"
	customPromote     = "select_promote"
	customApprove     = "select_approve"
	customNoShow      = "select_noshow"
	customRole        = "select_role"
	customCreateModal = "create_event_modal"
)

// extendVoiceMinutes is how much one click on the extend button adds.
const extendVoiceMinutes = 30

// Garde lettres (y compris accentuées), chiffres, tiret. Le reste → tiret.
var channelNameSanitize = regexp.MustCompile(`[^\p{L}\p{N}-]+`)

func sanitizeChannelName(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = channelNameSanitize.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

func withEventID(prefix string, eventID uint) string {
	return fmt.Sprintf("%s:%d", prefix, eventID)
}

// splitCustomID parses "prefix:eventID". ok is false for plain ids.
func splitCustomID(customID string) (prefix string, eventID uint, ok bool) {
	prefix, raw, found := strings.Cut(customID, ":")
	if !found {
		return customID, 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return prefix, 0, false
	}
	return prefix, uint(id), true
}

const buttonsPerRow = 5

func buildComponents(tr output.Translator, locale string, event *entities.Event, participants []entities.Participant) []discordgo.MessageComponent {
	var waitlisted, pending int
	for _, p := range participants {
		switch p.Status {
		case domain.StatusWaitlist:
			waitlisted++
		case domain.StatusPending:
			pending++
		}
	}
	t := func(key string) string { return tr.T(locale, key, nil) }

	var components []discordgo.MessageComponent
	if event.Status == domain.EventScheduled || event.Status == domain.EventActive && event.AllowLateSignup {
		components = append(components, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: t("button.join"), Style: discordgo.SuccessButton, CustomID: customJoin},
			discordgo.Button{Label: t("button.leave"), Style: discordgo.DangerButton, CustomID: customLeave},
		}})
	}

	var buttons []discordgo.MessageComponent
	if waitlisted > 0 && !domain.IsTerminal(event.Status) {
		buttons = append(buttons, discordgo.Button{Label: t("button.promote"), Style: discordgo.SecondaryButton, CustomID: withEventID(customPromoteMenu, event.ID)})
	}
	if pending > 0 && event.RequireApproval && !domain.IsTerminal(event.Status) {
		buttons = append(buttons, discordgo.Button{Label: t("button.approve"), Style: discordgo.PrimaryButton, CustomID: withEventID(customApproveMenu, event.ID)})
	}
	if phase := event.Voice.State.Phase; phase == entities.VoiceScheduled || phase == entities.VoiceCreated {
		buttons = append(buttons, discordgo.Button{Label: t("button.extend_voice"), Style: discordgo.SecondaryButton, CustomID: withEventID(customExtendVoice, event.ID)})
	}
	if event.Status == domain.EventCompleted {
		buttons = append(buttons, discordgo.Button{Label: t("button.noshow"), Style: discordgo.SecondaryButton, CustomID: withEventID(customNoShowMenu, event.ID)})
	}
	if !domain.IsTerminal(event.Status) {
		buttons = append(buttons, discordgo.Button{Label: t("button.cancel"), Style: discordgo.DangerButton, CustomID: withEventID(customCancel, event.ID)})
	}
	for i := 0; i < len(buttons); i += buttonsPerRow {
		end := min(i+buttonsPerRow, len(buttons))
		components = append(components, discordgo.ActionsRow{Components: buttons[i:end]})
	}
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	return components
}
