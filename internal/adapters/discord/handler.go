package discord

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"signupbot/internal/ports/input"
	"signupbot/internal/ports/output"
)

// interactionTimeout bounds the work done for one interaction.
const interactionTimeout = 10 * time.Second

// Handler handles Discord interactions using use cases.
type Handler struct {
	eventUseCase       input.EventUseCase
	participantUseCase input.ParticipantUseCase
	statisticsUseCase  input.StatisticsUseCase
	translator         output.Translator
	guilds             output.GuildConfigProvider
	log                zerolog.Logger
	now                func() time.Time
	pending            pendingCreates
}

// NewHandler creates a Handler.
func NewHandler(
	eventUseCase input.EventUseCase,
	participantUseCase input.ParticipantUseCase,
	statisticsUseCase input.StatisticsUseCase,
	translator output.Translator,
	guilds output.GuildConfigProvider,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		eventUseCase:       eventUseCase,
		participantUseCase: participantUseCase,
		statisticsUseCase:  statisticsUseCase,
		translator:         translator,
		guilds:             guilds,
		log:                log.With().Str("component", "discord_handler").Logger(),
		now:                time.Now,
	}
}

func (h *Handler) interactionContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), interactionTimeout)
}

func (h *Handler) translate(guildID, key string, data map[string]any) string {
	return h.translator.T(h.guilds.Guild(guildID).Locale, key, data)
}
