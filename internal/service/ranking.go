package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geoquiz/internal/config"
	"github.com/geoquiz/internal/domain"
	"github.com/geoquiz/internal/level"
	"github.com/geoquiz/internal/ranking"
)

// RankingService provides leaderboard aggregation over the realtime store
// and the system of record
type RankingService struct {
	store  RankingStore
	repo   ResultRepository
	config *config.RankingConfig
	logger *slog.Logger
}

// NewRankingService creates a new ranking service
func NewRankingService(
	store RankingStore,
	repo ResultRepository,
	cfg *config.RankingConfig,
	logger *slog.Logger,
) *RankingService {
	return &RankingService{
		store:  store,
		repo:   repo,
		config: cfg,
		logger: logger,
	}
}

// RecordGame folds a scored game into every period bucket of its game type
func (s *RankingService) RecordGame(ctx context.Context, result domain.GameResult, playedAt time.Time) error {
	for _, period := range domain.Periods {
		key := ranking.PeriodKey(period, playedAt)
		if err := s.store.RecordScore(ctx, result.GameType, period, key, result.UserID, result.Score); err != nil {
			return fmt.Errorf("recording %s ranking: %w", period, err)
		}
	}
	return nil
}

// normalize fills query defaults: current bucket, total mode, configured
// page limits
func (s *RankingService) normalize(q domain.RankingQuery) (domain.RankingQuery, error) {
	if !q.Period.Valid() {
		return q, domain.ErrInvalidPeriod
	}
	if q.PeriodKey == "" {
		q.PeriodKey = ranking.CurrentPeriodKey(q.Period)
	}
	if q.SortMode == "" {
		q.SortMode = domain.SortModeTotal
	}
	if !q.SortMode.Valid() {
		return q, domain.ErrInvalidRequest
	}
	if q.Limit <= 0 {
		q.Limit = s.config.DefaultLimit
	}
	if q.Limit > s.config.MaxLimit {
		q.Limit = s.config.MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q, nil
}

// GetRankings returns one leaderboard page in descending score order
func (s *RankingService) GetRankings(ctx context.Context, q domain.RankingQuery) ([]domain.RankingEntry, error) {
	q, err := s.normalize(q)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.GetRankings(ctx, q.GameType, q.Period, q.PeriodKey, q.SortMode, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("getting rankings: %w", err)
	}
	return entries, nil
}

// GetUserRank returns a player's position and score in one bucket, or nil
// when the player has no qualifying entry there. A rank is always >= 1.
func (s *RankingService) GetUserRank(ctx context.Context, userID string, q domain.RankingQuery) (*domain.UserRank, error) {
	q, err := s.normalize(q)
	if err != nil {
		return nil, err
	}
	userRank, err := s.store.GetUserRank(ctx, q.GameType, q.Period, q.PeriodKey, q.SortMode, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotRanked) {
			return nil, nil
		}
		return nil, err
	}
	return userRank, nil
}

// GetTopGames returns the per-game leaderboard of a period window: every
// stored game is its own row, so one player can hold several positions.
func (s *RankingService) GetTopGames(ctx context.Context, gameType string, period domain.Period, limit, offset int) ([]domain.GameRecord, error) {
	if !period.Valid() {
		return nil, domain.ErrInvalidPeriod
	}
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}
	if limit > s.config.MaxLimit {
		limit = s.config.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	start, end := ranking.PeriodRange(period, time.Now())
	return s.repo.GetTopGames(ctx, gameType, start, end, limit, offset)
}

// PredictRank computes the hypothetical rank an unsubmitted score would
// take in the current weekly bucket without mutating any stored state.
func (s *RankingService) PredictRank(ctx context.Context, gameType string, score int64) (*domain.RankPrediction, error) {
	periodKey := ranking.CurrentPeriodKey(domain.PeriodWeekly)
	higher, err := s.store.CountAbove(ctx, gameType, domain.PeriodWeekly, periodKey, domain.SortModeBest, score)
	if err != nil {
		return nil, fmt.Errorf("predicting rank: %w", err)
	}

	start, end := ranking.PeriodRange(domain.PeriodWeekly, time.Now())
	totalGames, err := s.repo.CountGames(ctx, gameType, start, end)
	if err != nil {
		return nil, fmt.Errorf("counting bucket games: %w", err)
	}

	return &domain.RankPrediction{
		PredictedRank: higher + 1,
		TotalGames:    totalGames,
	}, nil
}

// MigrateGuestResults re-attributes all of a guest's results to a claimed
// account and rebuilds the affected realtime buckets from the system of
// record. Safe to re-run: a second invocation finds nothing to migrate.
func (s *RankingService) MigrateGuestResults(ctx context.Context, guestID, userID string) error {
	migrated, err := s.repo.MigrateGuestResults(ctx, guestID, userID)
	if err != nil {
		return fmt.Errorf("migrating guest results: %w", err)
	}
	if migrated == 0 {
		s.logger.Info("no guest results to migrate", "guest_id", guestID)
		return nil
	}

	s.logger.Info("migrated guest results",
		"guest_id", guestID,
		"user_id", userID,
		"games", migrated,
	)

	// Rebuild current buckets of every game type the account now holds so
	// the realtime view matches the re-attributed rows
	stats, err := s.repo.GetUserStats(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading stats after migration: %w", err)
	}
	now := time.Now()
	for _, st := range stats {
		for _, period := range domain.Periods {
			start, end := ranking.PeriodRange(period, now)
			key := ranking.PeriodKey(period, now)
			for _, mode := range []domain.SortMode{domain.SortModeTotal, domain.SortModeBest} {
				scores, err := s.repo.AggregateScores(ctx, st.GameType, start, end, mode)
				if err != nil {
					return fmt.Errorf("re-aggregating %s/%s: %w", st.GameType, period, err)
				}
				if err := s.store.ReplaceBucket(ctx, st.GameType, period, key, mode, scores); err != nil {
					return fmt.Errorf("rebuilding %s/%s bucket: %w", st.GameType, period, err)
				}
			}
		}
	}
	return nil
}

// GetUserStats returns a player's aggregate record across all game types
// plus the per-type breakdown. A player with no games gets a zero-valued
// summary, not an error.
func (s *RankingService) GetUserStats(ctx context.Context, userID string) (*domain.UserStatsSummary, error) {
	perType, err := s.repo.GetUserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting user stats: %w", err)
	}

	summary := &domain.UserStatsSummary{
		UserID:      userID,
		PerGameType: perType,
	}
	for _, st := range perType {
		summary.TotalGames += st.TotalGames
		summary.TotalRounds += st.TotalRounds
		summary.TotalDistanceKm += st.TotalDistanceKm
		summary.TotalScore += st.TotalScore
		if st.BestScore > summary.BestScore {
			summary.BestScore = st.BestScore
		}
	}
	return summary, nil
}

// GetUserLevel derives a player's tier and progress from lifetime score
func (s *RankingService) GetUserLevel(ctx context.Context, userID string) (*level.Progress, error) {
	total, err := s.repo.GetTotalScore(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting lifetime score: %w", err)
	}
	progress := level.LevelProgress(total)
	return &progress, nil
}
