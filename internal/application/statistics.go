package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"signupbot/internal/domain"
	"signupbot/internal/domain/entities"
	"signupbot/internal/ports/input"
	"signupbot/internal/ports/output"
)

var _ input.StatisticsUseCase = (*StatisticsService)(nil)

// StatisticsService keeps per-guild attendance statistics. Totals are always
// recomputed from participant rows so a retroactive no-show flag and a
// re-run of the same completion give the same result.
type StatisticsService struct {
	store  output.Store
	guilds output.GuildConfigProvider
	log    zerolog.Logger
	now    func() time.Time
}

func NewStatisticsService(store output.Store, guilds output.GuildConfigProvider, log zerolog.Logger) *StatisticsService {
	return &StatisticsService{
		store:  store,
		guilds: guilds,
		log:    log.With().Str("component", "statistics").Logger(),
		now:    time.Now,
	}
}

// RecordCompletion refreshes statistics for every confirmed participant of a
// completed event and recomputes the guild ranks. It runs in the caller's
// transaction.
func (s *StatisticsService) RecordCompletion(ctx context.Context, r output.Repositories, event *entities.Event) error {
	confirmed, err := r.Participants().ListByEventAndStatus(ctx, event.ID, domain.StatusConfirmed)
	if err != nil {
		return domain.NewPersistenceError("list confirmed", err)
	}
	for _, p := range confirmed {
		if _, err := s.recompute(ctx, r, event.GuildID, p.UserID); err != nil {
			return err
		}
	}
	return s.RecomputeRanks(ctx, r, event.GuildID)
}

func (s *StatisticsService) recompute(ctx context.Context, r output.Repositories, guildID, userID string) (*entities.ParticipantStatistics, error) {
	joined, noShows, err := r.Participants().CountCompletedParticipations(ctx, guildID, userID)
	if err != nil {
		return nil, domain.NewPersistenceError("count participations", err)
	}
	stats, err := r.Statistics().Find(ctx, guildID, userID)
	if err != nil {
		return nil, domain.NewPersistenceError("find statistics", err)
	}
	if stats == nil {
		stats = &entities.ParticipantStatistics{UserID: userID, GuildID: guildID}
	}
	stats.TotalJoined = joined
	stats.TotalNoShows = noShows
	stats.TotalCompleted = joined - noShows
	stats.Score = entities.ComputeScore(stats.TotalCompleted, stats.TotalNoShows)
	stats.UpdatedAt = s.now()
	if err := r.Statistics().Upsert(ctx, stats); err != nil {
		return nil, domain.NewPersistenceError("upsert statistics", err)
	}
	return stats, nil
}

// RecomputeRanks assigns sequential ranks by score to users with enough
// completed events; everybody else is unranked.
func (s *StatisticsService) RecomputeRanks(ctx context.Context, r output.Repositories, guildID string) error {
	all, err := r.Statistics().ListByGuild(ctx, guildID)
	if err != nil {
		return domain.NewPersistenceError("list statistics", err)
	}
	ranks := rankStatistics(all, s.guilds.Guild(guildID).MinEventsForRank)
	if err := r.Statistics().UpdateRanks(ctx, guildID, ranks); err != nil {
		return domain.NewPersistenceError("update ranks", err)
	}
	return nil
}

func rankStatistics(all []entities.ParticipantStatistics, minEvents int) map[string]*int {
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TotalCompleted != b.TotalCompleted {
			return a.TotalCompleted > b.TotalCompleted
		}
		return a.UserID < b.UserID
	})
	ranks := make(map[string]*int, len(all))
	next := 1
	for _, st := range all {
		if st.TotalCompleted < minEvents {
			ranks[st.UserID] = nil
			continue
		}
		rank := next
		ranks[st.UserID] = &rank
		next++
	}
	return ranks
}

// SetNoShow flags or clears a confirmed participant's no-show on a completed
// event and recomputes that user's statistics and the guild ranks.
func (s *StatisticsService) SetNoShow(ctx context.Context, eventID uint, userID string, noShow bool) (*entities.ParticipantStatistics, error) {
	var result *entities.ParticipantStatistics
	err := s.store.InEventTx(ctx, eventID, func(ctx context.Context, r output.Repositories) error {
		event, err := r.Events().FindByID(ctx, eventID)
		if err != nil {
			return err
		}
		if event.Status != domain.EventCompleted {
			return domain.ErrEventNotCompleted
		}
		p, err := r.Participants().Find(ctx, eventID, userID)
		if err != nil {
			return err
		}
		if !p.IsConfirmed() {
			return domain.ErrParticipantNotConfirmed
		}
		p.NoShow = noShow
		p.UpdatedAt = s.now()
		if err := r.Participants().Update(ctx, p); err != nil {
			return domain.NewPersistenceError("update participant", err)
		}
		if _, err := s.recompute(ctx, r, event.GuildID, userID); err != nil {
			return err
		}
		if err := s.RecomputeRanks(ctx, r, event.GuildID); err != nil {
			return err
		}
		if err := appendAudit(ctx, r, event, userID, actionNoShow, fmt.Sprintf("%t", noShow), p.UpdatedAt); err != nil {
			return err
		}
		result, err = r.Statistics().Find(ctx, event.GuildID, userID)
		if err != nil {
			return domain.NewPersistenceError("find statistics", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("event_id", eventID).Str("user_id", userID).Bool("no_show", noShow).Msg("no-show updated")
	return result, nil
}

// Leaderboard returns the ranked users of a guild, best first.
func (s *StatisticsService) Leaderboard(ctx context.Context, guildID string, limit int) ([]entities.ParticipantStatistics, error) {
	all, err := s.store.Statistics().ListByGuild(ctx, guildID)
	if err != nil {
		return nil, domain.NewPersistenceError("list statistics", err)
	}
	ranked := make([]entities.ParticipantStatistics, 0, len(all))
	for _, st := range all {
		if st.Rank != nil {
			ranked = append(ranked, st)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return *ranked[i].Rank < *ranked[j].Rank })
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
