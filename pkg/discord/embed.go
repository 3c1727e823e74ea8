package discord

import (
	"fmt"
	"sort"
	"strings"

	"signupbot/internal/domain"
	"signupbot/internal/domain/entities"
	"signupbot/pkg/tz"

	"github.com/bwmarrin/discordgo"
)

const (
	embedColor          = 0x5865F2
	embedColorClosed    = 0x747F8D
	embedColorCancelled = 0xED4245
	maxListedNames      = 40
)

// EmbedLabels holds the already translated texts of the event embed.
type EmbedLabels struct {
	OrganizedBy string
	When        string
	Places      string
	Unlimited   string
	Confirmed   string
	Waitlist    string
	Pending     string
	Status      string // translated status of the event
	Nobody      string
	Footer      string
}

func formatPlaces(maxSlots, confirmedCount int, unlimited string) string {
	if maxSlots == 0 {
		return fmt.Sprintf("%d (%s)", confirmedCount, unlimited)
	}
	return fmt.Sprintf("%d/%d", confirmedCount, maxSlots)
}

// BuildEventEmbed renders the sign-up message of an event.
func BuildEventEmbed(event *entities.Event, participants []entities.Participant, labels EmbedLabels) *discordgo.MessageEmbed {
	confirmed, waitlist, pending := FormatParticipants(participants)

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** <@%s>\n\n", labels.OrganizedBy, event.CreatorID)
	if event.Description != "" {
		b.WriteString(event.Description)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "**%s** %s (%s)", labels.When, Timestamp(event.StartTime, "F"),
		tz.In(event.StartTime, event.Timezone).Format("15:04 MST"))
	fmt.Fprintf(&b, "\n**%s** %s", labels.Places, formatPlaces(event.MaxParticipants, len(confirmed), labels.Unlimited))
	if labels.Status != "" {
		fmt.Fprintf(&b, "\n**%s**", labels.Status)
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: fmt.Sprintf("%s (%d)", labels.Confirmed, len(confirmed)), Value: joinOr(confirmed, labels.Nobody)},
	}
	if len(waitlist) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("%s (%d)", labels.Waitlist, len(waitlist)), Value: joinOr(waitlist, labels.Nobody),
		})
	}
	if len(pending) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("%s (%d)", labels.Pending, len(pending)), Value: joinOr(pending, labels.Nobody),
		})
	}

	color := embedColor
	switch event.Status {
	case domain.EventCompleted:
		color = embedColorClosed
	case domain.EventCancelled:
		color = embedColorCancelled
	}

	embed := &discordgo.MessageEmbed{
		Title:       event.Title,
		Description: b.String(),
		Color:       color,
		Fields:      fields,
	}
	if labels.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: labels.Footer}
	}
	return embed
}

// FormatParticipants returns one line per participant, grouped by status.
// Waitlisted members are listed by position; role and spec are appended
// when set.
func FormatParticipants(participants []entities.Participant) (confirmed, waitlist, pending []string) {
	queued := make([]entities.Participant, 0, len(participants))
	for _, p := range participants {
		line := "- <@" + p.UserID + ">"
		if p.Role != "" {
			line += " " + p.Role
			if p.Spec != "" {
				line += "/" + p.Spec
			}
		}
		switch p.Status {
		case domain.StatusConfirmed:
			confirmed = append(confirmed, line)
		case domain.StatusPending:
			pending = append(pending, line)
		case domain.StatusWaitlist:
			queued = append(queued, p)
		}
	}
	sort.SliceStable(queued, func(i, j int) bool {
		return queued[i].WaitlistPosition() < queued[j].WaitlistPosition()
	})
	for _, p := range queued {
		waitlist = append(waitlist, fmt.Sprintf("%d. <@%s>", p.WaitlistPosition(), p.UserID))
	}
	return confirmed, waitlist, pending
}

func joinOr(lines []string, empty string) string {
	if len(lines) == 0 {
		if empty == "" {
			return "-"
		}
		return empty
	}
	if len(lines) > maxListedNames {
		rest := len(lines) - maxListedNames
		lines = append(lines[:maxListedNames:maxListedNames], fmt.Sprintf("+%d", rest))
	}
	return strings.Join(lines, "\n")
}
