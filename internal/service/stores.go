package service

import (
	"context"
	"time"

	"github.com/geoquiz/internal/domain"
)

// RankingStore is the realtime leaderboard backend (Redis in production)
type RankingStore interface {
	RecordScore(ctx context.Context, gameType string, period domain.Period, periodKey, userID string, score int64) error
	GetRankings(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode, limit, offset int) ([]domain.RankingEntry, error)
	GetUserRank(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode, userID string) (*domain.UserRank, error)
	CountAbove(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode, score int64) (int64, error)
	GetCount(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode) (int64, error)
	ReplaceBucket(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode, scores map[string]int64) error
}

// ResultRepository is the durable system of record (PostgreSQL in production)
type ResultRepository interface {
	InsertGameResult(ctx context.Context, result domain.GameResult, playedAt time.Time) error
	ApplyGameToStats(ctx context.Context, result domain.GameResult) error
	GetUserStats(ctx context.Context, userID string) ([]domain.UserStats, error)
	GetTotalScore(ctx context.Context, userID string) (int64, error)
	GetTopGames(ctx context.Context, gameType string, start, end time.Time, limit, offset int) ([]domain.GameRecord, error)
	CountGames(ctx context.Context, gameType string, start, end time.Time) (int64, error)
	AggregateScores(ctx context.Context, gameType string, start, end time.Time, mode domain.SortMode) (map[string]int64, error)
	MigrateGuestResults(ctx context.Context, guestID, userID string) (int64, error)
}

// DuelRepository persists resolved duels
type DuelRepository interface {
	InsertDuelResult(ctx context.Context, result domain.DuelResult) error
	GetDuelResult(ctx context.Context, duelID string) (*domain.DuelResult, error)
	ListUserDuels(ctx context.Context, userID string, limit int) ([]domain.DuelResult, error)
}

// Broadcaster pushes live updates to connected clients. A nil Broadcaster
// disables broadcasting.
type Broadcaster interface {
	BroadcastRankingUpdate(gameType string, period domain.Period, periodKey string, entries []domain.RankingEntry, totalPlayers int64)
	BroadcastDuelResolved(result domain.DuelResult)
}
