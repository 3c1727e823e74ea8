package application

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"signupbot/internal/domain"
	"signupbot/internal/domain/entities"
	"signupbot/internal/ports/output"
)

// Audit actions.
const (
	actionJoin       = "join"
	actionLeave      = "leave"
	actionApprove    = "approve"
	actionPromote    = "promote"
	actionRoleUpdate = "role_update"
	actionDemote     = "demote"
	actionNoShow     = "no_show"
	actionStatus     = "status"
	actionVoice      = "voice"
)

func appendAudit(ctx context.Context, r output.Repositories, event *entities.Event, userID, action, detail string, at time.Time) error {
	entry := &entities.AuditLogEntry{
		EventID:   event.ID,
		GuildID:   event.GuildID,
		UserID:    userID,
		Action:    action,
		Detail:    detail,
		CreatedAt: at,
	}
	if err := r.AuditLog().Append(ctx, entry); err != nil {
		return domain.NewPersistenceError("append audit log", err)
	}
	return nil
}

// renderEvent re-renders the sign-up message from committed state. Failures
// are logged only; the next mutation or tick renders again.
func renderEvent(ctx context.Context, store output.Store, messaging output.MessagingGateway, log zerolog.Logger, eventID uint) {
	event, err := store.Events().FindByID(ctx, eventID)
	if err != nil {
		log.Error().Err(err).Uint("event_id", eventID).Msg("render: load event")
		return
	}
	renderLoaded(ctx, store, messaging, log, event)
}

func renderLoaded(ctx context.Context, store output.Store, messaging output.MessagingGateway, log zerolog.Logger, event *entities.Event) {
	if event.MessageID == "" {
		return
	}
	participants, err := store.Participants().ListByEvent(ctx, event.ID)
	if err != nil {
		log.Error().Err(err).Uint("event_id", event.ID).Msg("render: load participants")
		return
	}
	if err := messaging.RenderEventMessage(ctx, event, participants); err != nil {
		log.Warn().Err(domain.NewGatewayError("render event message", err)).Uint("event_id", event.ID).Msg("render failed")
	}
}

// notifyUser sends a DM and logs failures.
func notifyUser(ctx context.Context, messaging output.MessagingGateway, log zerolog.Logger, userID, content string) {
	if userID == "" || content == "" {
		return
	}
	if err := messaging.SendDirectMessage(ctx, userID, content); err != nil {
		log.Warn().Err(domain.NewGatewayError("send direct message", err)).Str("user_id", userID).Msg("dm failed")
	}
}
