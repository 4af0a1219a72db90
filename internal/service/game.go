package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/geoquiz/internal/domain"
	"github.com/geoquiz/internal/gametype"
	"github.com/geoquiz/internal/geo"
	"github.com/geoquiz/internal/level"
	"github.com/geoquiz/internal/ranking"
	"github.com/geoquiz/internal/scoring"
)

// broadcastTopN is how many leaderboard rows a live update carries
const broadcastTopN = 10

// SubmissionOutcome is everything a client learns from a completed game
type SubmissionOutcome struct {
	Result   domain.GameResult `json:"result"`
	LevelUp  level.LevelUp     `json:"level_up"`
	Progress level.Progress    `json:"progress"`
}

// GameService turns raw round submissions into scored, ranked results
type GameService struct {
	ranking  *RankingService
	repo     ResultRepository
	registry *gametype.Registry
	hub      Broadcaster
	logger   *slog.Logger
}

// NewGameService creates a new game service. hub may be nil to disable
// live broadcasts.
func NewGameService(
	rankingService *RankingService,
	repo ResultRepository,
	registry *gametype.Registry,
	hub Broadcaster,
	logger *slog.Logger,
) *GameService {
	return &GameService{
		ranking:  rankingService,
		repo:     repo,
		registry: registry,
		hub:      hub,
		logger:   logger,
	}
}

// scoreRound resolves one round's distance and points
func (s *GameService) scoreRound(round domain.RoundSubmission, gt domain.GameType, cfg domain.GameTypeConfig) (domain.RoundResult, error) {
	if round.TimedOut {
		return domain.RoundResult{
			DistanceKm:        cfg.TimeoutPenalty,
			FormattedDistance: geo.FormatDistance(cfg.TimeoutPenalty, gt),
			Score:             scoring.ScoreTimedOut(cfg),
			TimedOut:          true,
		}, nil
	}

	var distance float64
	switch {
	case gt.IsImage() && round.TargetPx != nil && round.GuessPx != nil:
		distance = geo.PixelDistanceKm(
			round.TargetPx.X, round.TargetPx.Y,
			round.GuessPx.X, round.GuessPx.Y,
			cfg.PixelsPerTenMeters,
		)
	case round.Target != nil && round.Guess != nil:
		distance = geo.DistanceKm(
			round.Target.Latitude, round.Target.Longitude,
			round.Guess.Latitude, round.Guess.Longitude,
		)
	default:
		return domain.RoundResult{}, domain.ErrInvalidSubmission
	}

	return domain.RoundResult{
		DistanceKm:        distance,
		FormattedDistance: geo.FormatDistance(distance, gt),
		Score:             scoring.Score(distance, cfg),
	}, nil
}

// SubmitGame scores a completed game, persists it, folds it into the
// rankings and reports any level transition
func (s *GameService) SubmitGame(ctx context.Context, sub domain.GameSubmission) (*SubmissionOutcome, error) {
	if sub.UserID == "" || len(sub.Rounds) == 0 {
		return nil, domain.ErrInvalidSubmission
	}
	gt, err := domain.ParseGameType(sub.GameType)
	if err != nil {
		return nil, err
	}
	cfg := s.registry.Config(sub.GameType)

	result := domain.GameResult{
		GameID:          uuid.New().String(),
		UserID:          sub.UserID,
		GameType:        sub.GameType,
		DurationSeconds: sub.DurationSeconds,
		Rounds:          make([]domain.RoundResult, 0, len(sub.Rounds)),
	}
	for _, round := range sub.Rounds {
		rr, err := s.scoreRound(round, gt, cfg)
		if err != nil {
			return nil, err
		}
		result.Score += rr.Score
		result.TotalDistanceKm += rr.DistanceKm
		result.Rounds = append(result.Rounds, rr)
	}
	result.FormattedTotalDistance = geo.FormatTotalDistance(result.TotalDistanceKm)

	previousTotal, err := s.repo.GetTotalScore(ctx, sub.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading previous total: %w", err)
	}

	playedAt := time.Now()
	if err := s.repo.InsertGameResult(ctx, result, playedAt); err != nil {
		return nil, fmt.Errorf("persisting game: %w", err)
	}
	if err := s.repo.ApplyGameToStats(ctx, result); err != nil {
		return nil, fmt.Errorf("updating stats: %w", err)
	}
	if err := s.ranking.RecordGame(ctx, result, playedAt); err != nil {
		return nil, fmt.Errorf("updating rankings: %w", err)
	}

	s.broadcastRankings(ctx, sub.GameType, playedAt)

	newTotal := previousTotal + result.Score
	return &SubmissionOutcome{
		Result:   result,
		LevelUp:  level.CheckLevelUp(previousTotal, newTotal),
		Progress: level.LevelProgress(newTotal),
	}, nil
}

// SubmitGameBatch processes multiple submissions, continuing past
// individual failures
func (s *GameService) SubmitGameBatch(ctx context.Context, subs []domain.GameSubmission) error {
	for _, sub := range subs {
		if _, err := s.SubmitGame(ctx, sub); err != nil {
			s.logger.Error("failed to submit game in batch",
				"user_id", sub.UserID,
				"game_type", sub.GameType,
				"error", err,
			)
			// Continue processing other submissions
		}
	}
	return nil
}

// broadcastRankings pushes the refreshed daily top rows to subscribers
func (s *GameService) broadcastRankings(ctx context.Context, gameType string, playedAt time.Time) {
	if s.hub == nil {
		return
	}
	periodKey := ranking.PeriodKey(domain.PeriodDaily, playedAt)
	entries, err := s.ranking.GetRankings(ctx, domain.RankingQuery{
		GameType:  gameType,
		Period:    domain.PeriodDaily,
		PeriodKey: periodKey,
		SortMode:  domain.SortModeTotal,
		Limit:     broadcastTopN,
	})
	if err != nil {
		s.logger.Warn("failed to load rankings for broadcast", "error", err)
		return
	}
	count, err := s.ranking.store.GetCount(ctx, gameType, domain.PeriodDaily, periodKey, domain.SortModeTotal)
	if err != nil {
		s.logger.Warn("failed to count players for broadcast", "error", err)
		count = int64(len(entries))
	}
	s.hub.BroadcastRankingUpdate(gameType, domain.PeriodDaily, periodKey, entries, count)
}
