package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/geoquiz/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRankingStore is an in-memory stand-in for the Redis ranking store
type fakeRankingStore struct {
	buckets map[string]map[string]int64
}

func newFakeRankingStore() *fakeRankingStore {
	return &fakeRankingStore{buckets: make(map[string]map[string]int64)}
}

func bucketID(gameType string, period domain.Period, periodKey string, mode domain.SortMode) string {
	return gameType + "/" + string(period) + "/" + periodKey + "/" + string(mode)
}

func (f *fakeRankingStore) bucket(id string) map[string]int64 {
	b, ok := f.buckets[id]
	if !ok {
		b = make(map[string]int64)
		f.buckets[id] = b
	}
	return b
}

func (f *fakeRankingStore) RecordScore(ctx context.Context, gameType string, period domain.Period, periodKey, userID string, score int64) error {
	total := f.bucket(bucketID(gameType, period, periodKey, domain.SortModeTotal))
	total[userID] += score

	best := f.bucket(bucketID(gameType, period, periodKey, domain.SortModeBest))
	if score > best[userID] {
		best[userID] = score
	}
	return nil
}

func (f *fakeRankingStore) sorted(id string) []string {
	b := f.bucket(id)
	users := make([]string, 0, len(b))
	for u := range b {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if b[users[i]] != b[users[j]] {
			return b[users[i]] > b[users[j]]
		}
		return users[i] < users[j]
	})
	return users
}

func (f *fakeRankingStore) GetRankings(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode, limit, offset int) ([]domain.RankingEntry, error) {
	id := bucketID(gameType, period, periodKey, mode)
	b := f.bucket(id)
	users := f.sorted(id)

	entries := []domain.RankingEntry{}
	for i := offset; i < len(users) && len(entries) < limit; i++ {
		entries = append(entries, domain.RankingEntry{
			Rank:      int64(i + 1),
			UserID:    users[i],
			GameType:  gameType,
			Period:    period,
			PeriodKey: periodKey,
			Score:     b[users[i]],
		})
	}
	return entries, nil
}

func (f *fakeRankingStore) GetUserRank(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode, userID string) (*domain.UserRank, error) {
	id := bucketID(gameType, period, periodKey, mode)
	b := f.bucket(id)
	if _, ok := b[userID]; !ok {
		return nil, domain.ErrUserNotRanked
	}
	for i, u := range f.sorted(id) {
		if u == userID {
			return &domain.UserRank{Rank: int64(i + 1), Score: b[u]}, nil
		}
	}
	return nil, domain.ErrUserNotRanked
}

func (f *fakeRankingStore) CountAbove(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode, score int64) (int64, error) {
	var n int64
	for _, s := range f.bucket(bucketID(gameType, period, periodKey, mode)) {
		if s > score {
			n++
		}
	}
	return n, nil
}

func (f *fakeRankingStore) GetCount(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode) (int64, error) {
	return int64(len(f.bucket(bucketID(gameType, period, periodKey, mode)))), nil
}

func (f *fakeRankingStore) ReplaceBucket(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode, scores map[string]int64) error {
	b := make(map[string]int64, len(scores))
	for u, s := range scores {
		b[u] = s
	}
	f.buckets[bucketID(gameType, period, periodKey, mode)] = b
	return nil
}

// storedGame is one persisted game row
type storedGame struct {
	result   domain.GameResult
	playedAt time.Time
	userID   string
}

// fakeRepository is an in-memory stand-in for the PostgreSQL repository
type fakeRepository struct {
	games []storedGame
	duels []domain.DuelResult

	lastDuelLimit int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{}
}

func (f *fakeRepository) InsertGameResult(ctx context.Context, result domain.GameResult, playedAt time.Time) error {
	f.games = append(f.games, storedGame{result: result, playedAt: playedAt, userID: result.UserID})
	return nil
}

func (f *fakeRepository) ApplyGameToStats(ctx context.Context, result domain.GameResult) error {
	// Stats are derived from games on read in this fake
	return nil
}

func (f *fakeRepository) GetUserStats(ctx context.Context, userID string) ([]domain.UserStats, error) {
	byType := make(map[string]*domain.UserStats)
	var order []string
	for _, g := range f.games {
		if g.userID != userID {
			continue
		}
		st, ok := byType[g.result.GameType]
		if !ok {
			st = &domain.UserStats{UserID: userID, GameType: g.result.GameType}
			byType[g.result.GameType] = st
			order = append(order, g.result.GameType)
		}
		st.TotalGames++
		st.TotalRounds += int64(len(g.result.Rounds))
		st.TotalDistanceKm += g.result.TotalDistanceKm
		st.TotalScore += g.result.Score
		if g.result.Score > st.BestScore {
			st.BestScore = g.result.Score
		}
	}
	out := make([]domain.UserStats, 0, len(order))
	for _, gt := range order {
		out = append(out, *byType[gt])
	}
	return out, nil
}

func (f *fakeRepository) GetTotalScore(ctx context.Context, userID string) (int64, error) {
	var total int64
	for _, g := range f.games {
		if g.userID == userID {
			total += g.result.Score
		}
	}
	return total, nil
}

func (f *fakeRepository) GetTopGames(ctx context.Context, gameType string, start, end time.Time, limit, offset int) ([]domain.GameRecord, error) {
	var records []domain.GameRecord
	for _, g := range f.games {
		if g.result.GameType != gameType || g.playedAt.Before(start) || !g.playedAt.Before(end) {
			continue
		}
		records = append(records, domain.GameRecord{
			GameID:   g.result.GameID,
			UserID:   g.userID,
			GameType: g.result.GameType,
			Score:    g.result.Score,
			PlayedAt: g.playedAt,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Score != records[j].Score {
			return records[i].Score > records[j].Score
		}
		return records[i].PlayedAt.Before(records[j].PlayedAt)
	})
	for i := range records {
		records[i].Rank = int64(i + 1)
	}
	if offset >= len(records) {
		return []domain.GameRecord{}, nil
	}
	records = records[offset:]
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (f *fakeRepository) CountGames(ctx context.Context, gameType string, start, end time.Time) (int64, error) {
	var n int64
	for _, g := range f.games {
		if g.result.GameType == gameType && !g.playedAt.Before(start) && g.playedAt.Before(end) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepository) AggregateScores(ctx context.Context, gameType string, start, end time.Time, mode domain.SortMode) (map[string]int64, error) {
	scores := make(map[string]int64)
	for _, g := range f.games {
		if g.result.GameType != gameType || g.playedAt.Before(start) || !g.playedAt.Before(end) {
			continue
		}
		if mode == domain.SortModeBest {
			if g.result.Score > scores[g.userID] {
				scores[g.userID] = g.result.Score
			}
		} else {
			scores[g.userID] += g.result.Score
		}
	}
	return scores, nil
}

func (f *fakeRepository) MigrateGuestResults(ctx context.Context, guestID, userID string) (int64, error) {
	var migrated int64
	for i := range f.games {
		if f.games[i].userID == guestID {
			f.games[i].userID = userID
			f.games[i].result.UserID = userID
			migrated++
		}
	}
	return migrated, nil
}

func (f *fakeRepository) InsertDuelResult(ctx context.Context, result domain.DuelResult) error {
	f.duels = append(f.duels, result)
	return nil
}

func (f *fakeRepository) GetDuelResult(ctx context.Context, duelID string) (*domain.DuelResult, error) {
	for _, d := range f.duels {
		if d.DuelID == duelID {
			out := d
			return &out, nil
		}
	}
	return nil, domain.ErrDuelNotFound
}

func (f *fakeRepository) ListUserDuels(ctx context.Context, userID string, limit int) ([]domain.DuelResult, error) {
	f.lastDuelLimit = limit
	var out []domain.DuelResult
	for _, d := range f.duels {
		if d.ChallengerID == userID || d.AccepterID == userID {
			out = append(out, d)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeBroadcaster records every broadcast it receives
type fakeBroadcaster struct {
	rankingUpdates []string
	duelResults    []domain.DuelResult
}

func (f *fakeBroadcaster) BroadcastRankingUpdate(gameType string, period domain.Period, periodKey string, entries []domain.RankingEntry, totalPlayers int64) {
	f.rankingUpdates = append(f.rankingUpdates, bucketID(gameType, period, periodKey, domain.SortModeTotal))
}

func (f *fakeBroadcaster) BroadcastDuelResolved(result domain.DuelResult) {
	f.duelResults = append(f.duelResults, result)
}
