package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/geoquiz/internal/config"
	"github.com/geoquiz/internal/domain"
)

// RankingStore provides the realtime leaderboard over Redis sorted sets.
// Every period bucket keeps two ZSETs: one accumulating each player's
// summed score and one tracking each player's best single game.
type RankingStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRankingStore creates a new Redis ranking store
func NewRankingStore(cfg *config.RedisConfig, logger *slog.Logger) (*RankingStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RankingStore{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (s *RankingStore) Close() error {
	return s.client.Close()
}

// bucketKey returns the ZSET key of one (gameType, period, periodKey, mode)
// ranking bucket
func (s *RankingStore) bucketKey(gameType string, period domain.Period, periodKey string, mode domain.SortMode) string {
	return fmt.Sprintf("ranking:%s:%s:%s:%s", gameType, period, periodKey, mode)
}

// RecordScore folds one game's score into a bucket: the total set is
// incremented, the best set keeps the maximum single-game score.
func (s *RankingStore) RecordScore(ctx context.Context, gameType string, period domain.Period, periodKey, userID string, score int64) error {
	totalKey := s.bucketKey(gameType, period, periodKey, domain.SortModeTotal)
	if err := s.client.ZIncrBy(ctx, totalKey, float64(score), userID).Err(); err != nil {
		return fmt.Errorf("incrementing total score: %w", err)
	}

	bestKey := s.bucketKey(gameType, period, periodKey, domain.SortModeBest)
	if err := s.client.ZAddGT(ctx, bestKey, redis.Z{
		Score:  float64(score),
		Member: userID,
	}).Err(); err != nil {
		return fmt.Errorf("updating best score: %w", err)
	}
	return nil
}

// GetRankings returns one page of a bucket in descending score order
func (s *RankingStore) GetRankings(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode, limit, offset int) ([]domain.RankingEntry, error) {
	key := s.bucketKey(gameType, period, periodKey, mode)
	results, err := s.client.ZRevRangeWithScores(ctx, key, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting rankings: %w", err)
	}

	entries := make([]domain.RankingEntry, len(results))
	for i, result := range results {
		entries[i] = domain.RankingEntry{
			Rank:      int64(offset + i + 1),
			UserID:    result.Member.(string),
			GameType:  gameType,
			Period:    period,
			PeriodKey: periodKey,
			Score:     int64(result.Score),
		}
	}
	return entries, nil
}

// GetUserRank returns a player's 1-based rank and aggregate score in a
// bucket, or domain.ErrUserNotRanked when the player has no entry there.
func (s *RankingStore) GetUserRank(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode, userID string) (*domain.UserRank, error) {
	key := s.bucketKey(gameType, period, periodKey, mode)

	// Use pipeline to get both rank and score
	pipe := s.client.Pipeline()
	rankCmd := pipe.ZRevRank(ctx, key, userID)
	scoreCmd := pipe.ZScore(ctx, key, userID)
	_, err := pipe.Exec(ctx)

	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrUserNotRanked
		}
		return nil, fmt.Errorf("getting user rank: %w", err)
	}

	rank, err := rankCmd.Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrUserNotRanked
		}
		return nil, fmt.Errorf("getting rank result: %w", err)
	}

	score, err := scoreCmd.Result()
	if err != nil {
		return nil, fmt.Errorf("getting score result: %w", err)
	}

	return &domain.UserRank{
		Rank:  rank + 1, // Convert 0-indexed to 1-indexed
		Score: int64(score),
	}, nil
}

// CountAbove returns how many bucket entries strictly exceed score
func (s *RankingStore) CountAbove(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode, score int64) (int64, error) {
	key := s.bucketKey(gameType, period, periodKey, mode)
	count, err := s.client.ZCount(ctx, key, fmt.Sprintf("(%d", score), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("counting higher scores: %w", err)
	}
	return count, nil
}

// GetCount returns the number of ranked players in a bucket
func (s *RankingStore) GetCount(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode) (int64, error) {
	key := s.bucketKey(gameType, period, periodKey, mode)
	count, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("getting count: %w", err)
	}
	return count, nil
}

// ReplaceBucket swaps a bucket's contents with the given scores in one
// transactional pipeline, used when rebuilding from the system of record
func (s *RankingStore) ReplaceBucket(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode, scores map[string]int64) error {
	key := s.bucketKey(gameType, period, periodKey, mode)

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	for userID, score := range scores {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(score),
			Member: userID,
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("replacing bucket: %w", err)
	}
	return nil
}
