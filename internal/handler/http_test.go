package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoquiz/internal/config"
	"github.com/geoquiz/internal/domain"
	"github.com/geoquiz/internal/gametype"
	"github.com/geoquiz/internal/service"
)

// memStore is a minimal in-memory ranking backend for routing tests
type memStore struct {
	scores map[string]map[string]int64
}

func (m *memStore) key(gameType string, period domain.Period, periodKey string, mode domain.SortMode) string {
	return gameType + "/" + string(period) + "/" + periodKey + "/" + string(mode)
}

func (m *memStore) bucket(k string) map[string]int64 {
	if m.scores == nil {
		m.scores = make(map[string]map[string]int64)
	}
	b, ok := m.scores[k]
	if !ok {
		b = make(map[string]int64)
		m.scores[k] = b
	}
	return b
}

func (m *memStore) RecordScore(ctx context.Context, gameType string, period domain.Period, periodKey, userID string, score int64) error {
	m.bucket(m.key(gameType, period, periodKey, domain.SortModeTotal))[userID] += score
	best := m.bucket(m.key(gameType, period, periodKey, domain.SortModeBest))
	if score > best[userID] {
		best[userID] = score
	}
	return nil
}

func (m *memStore) GetRankings(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode, limit, offset int) ([]domain.RankingEntry, error) {
	b := m.bucket(m.key(gameType, period, periodKey, mode))
	users := make([]string, 0, len(b))
	for u := range b {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return b[users[i]] > b[users[j]] })

	entries := []domain.RankingEntry{}
	for i := offset; i < len(users) && len(entries) < limit; i++ {
		entries = append(entries, domain.RankingEntry{
			Rank: int64(i + 1), UserID: users[i], GameType: gameType,
			Period: period, PeriodKey: periodKey, Score: b[users[i]],
		})
	}
	return entries, nil
}

func (m *memStore) GetUserRank(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode, userID string) (*domain.UserRank, error) {
	b := m.bucket(m.key(gameType, period, periodKey, mode))
	score, ok := b[userID]
	if !ok {
		return nil, domain.ErrUserNotRanked
	}
	var rank int64 = 1
	for _, s := range b {
		if s > score {
			rank++
		}
	}
	return &domain.UserRank{Rank: rank, Score: score}, nil
}

func (m *memStore) CountAbove(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode, score int64) (int64, error) {
	var n int64
	for _, s := range m.bucket(m.key(gameType, period, periodKey, mode)) {
		if s > score {
			n++
		}
	}
	return n, nil
}

func (m *memStore) GetCount(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode) (int64, error) {
	return int64(len(m.bucket(m.key(gameType, period, periodKey, mode)))), nil
}

func (m *memStore) ReplaceBucket(ctx context.Context, gameType string, period domain.Period, periodKey string, mode domain.SortMode, scores map[string]int64) error {
	if m.scores == nil {
		m.scores = make(map[string]map[string]int64)
	}
	m.scores[m.key(gameType, period, periodKey, mode)] = scores
	return nil
}

// memRepo is a minimal in-memory system of record for routing tests
type memRepo struct {
	games []domain.GameResult
	duels []domain.DuelResult
}

func (m *memRepo) InsertGameResult(ctx context.Context, result domain.GameResult, playedAt time.Time) error {
	m.games = append(m.games, result)
	return nil
}

func (m *memRepo) ApplyGameToStats(ctx context.Context, result domain.GameResult) error { return nil }

func (m *memRepo) GetUserStats(ctx context.Context, userID string) ([]domain.UserStats, error) {
	return nil, nil
}

func (m *memRepo) GetTotalScore(ctx context.Context, userID string) (int64, error) {
	var total int64
	for _, g := range m.games {
		if g.UserID == userID {
			total += g.Score
		}
	}
	return total, nil
}

func (m *memRepo) GetTopGames(ctx context.Context, gameType string, start, end time.Time, limit, offset int) ([]domain.GameRecord, error) {
	return []domain.GameRecord{}, nil
}

func (m *memRepo) CountGames(ctx context.Context, gameType string, start, end time.Time) (int64, error) {
	return int64(len(m.games)), nil
}

func (m *memRepo) AggregateScores(ctx context.Context, gameType string, start, end time.Time, mode domain.SortMode) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (m *memRepo) MigrateGuestResults(ctx context.Context, guestID, userID string) (int64, error) {
	var migrated int64
	for i := range m.games {
		if m.games[i].UserID == guestID {
			m.games[i].UserID = userID
			migrated++
		}
	}
	return migrated, nil
}

func (m *memRepo) InsertDuelResult(ctx context.Context, result domain.DuelResult) error {
	m.duels = append(m.duels, result)
	return nil
}

func (m *memRepo) GetDuelResult(ctx context.Context, duelID string) (*domain.DuelResult, error) {
	for _, d := range m.duels {
		if d.DuelID == duelID {
			out := d
			return &out, nil
		}
	}
	return nil, domain.ErrDuelNotFound
}

func (m *memRepo) ListUserDuels(ctx context.Context, userID string, limit int) ([]domain.DuelResult, error) {
	return []domain.DuelResult{}, nil
}

func newTestHandler() (*Handler, *memRepo) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &memStore{}
	repo := &memRepo{}

	rankingSvc := service.NewRankingService(store, repo, &config.RankingConfig{DefaultLimit: 100, MaxLimit: 1000}, logger)
	gameSvc := service.NewGameService(rankingSvc, repo, gametype.NewRegistry(nil, logger), nil, logger)
	duelSvc := service.NewDuelService(repo, nil, &config.DuelConfig{
		BaseURL:       "https://geoquiz.example.com",
		DefaultLocale: "en",
		RoundCount:    5,
	}, logger)

	return NewHandler(gameSvc, rankingSvc, duelSvc, nil, logger), repo
}

func doRequest(t *testing.T, h *Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := newTestHandler()

	for _, path := range []string{"/health", "/ready"} {
		rec := doRequest(t, h, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.True(t, decodeResponse(t, rec).Success)
	}
}

func TestSubmitResult(t *testing.T) {
	h, repo := newTestHandler()

	target := domain.GeoPoint{Latitude: 47.3769, Longitude: 8.5417}
	sub := domain.GameSubmission{
		UserID:   "user-1",
		GameType: "world:cities",
		Rounds: []domain.RoundSubmission{
			{Target: &target, Guess: &target},
		},
	}

	rec := doRequest(t, h, http.MethodPost, "/api/v1/results", sub)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, decodeResponse(t, rec).Success)
	assert.Len(t, repo.games, 1)
}

func TestSubmitResultRejectsBadPayloads(t *testing.T) {
	h, _ := newTestHandler()

	// Malformed JSON
	req := httptest.NewRequest(http.MethodPost, "/api/v1/results", bytes.NewReader([]byte("{nope")))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown game type
	rec = doRequest(t, h, http.MethodPost, "/api/v1/results", domain.GameSubmission{
		UserID:   "user-1",
		GameType: "nonsense",
		Rounds:   []domain.RoundSubmission{{TimedOut: true}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No rounds
	rec = doRequest(t, h, http.MethodPost, "/api/v1/results", domain.GameSubmission{
		UserID:   "user-1",
		GameType: "world:cities",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRankingsAfterSubmission(t *testing.T) {
	h, _ := newTestHandler()

	target := domain.GeoPoint{Latitude: 10, Longitude: 10}
	rec := doRequest(t, h, http.MethodPost, "/api/v1/results", domain.GameSubmission{
		UserID:   "user-1",
		GameType: "world:cities",
		Rounds:   []domain.RoundSubmission{{Target: &target, Guess: &target}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/api/v1/rankings/world:cities?period=daily", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var entries []domain.RankingEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "user-1", entries[0].UserID)
	assert.Equal(t, int64(100), entries[0].Score)
}

func TestGetRankingsInvalidPeriod(t *testing.T) {
	h, _ := newTestHandler()

	rec := doRequest(t, h, http.MethodGet, "/api/v1/rankings/world:cities?period=fortnightly", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, decodeResponse(t, rec).Success)
}

func TestGetUserRankUnrankedReturnsNullData(t *testing.T) {
	h, _ := newTestHandler()

	rec := doRequest(t, h, http.MethodGet, "/api/v1/rankings/world:cities/player/nobody?period=daily", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Data)
}

func TestDuelLifecycle(t *testing.T) {
	h, repo := newTestHandler()

	// Create the challenge
	rec := doRequest(t, h, http.MethodPost, "/api/v1/duels", service.CreateDuelRequest{
		UserID:      "challenger-1",
		UserName:    "Phoenix1",
		GameType:    "world:cities",
		Score:       420,
		TimeSeconds: 95,
		GameID:      "game-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var invite service.DuelInvite
	require.NoError(t, json.Unmarshal(data, &invite))
	require.NotEmpty(t, invite.Token)

	// Inspect it
	rec = doRequest(t, h, http.MethodGet, "/api/v1/duels/challenge/"+invite.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Complete it
	rec = doRequest(t, h, http.MethodPost, "/api/v1/duels/challenge/"+invite.Token+"/complete", map[string]interface{}{
		"user_id":      "accepter-1",
		"score":        500,
		"time_seconds": 100,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.duels, 1)
	assert.Equal(t, domain.DuelSideAccepter, repo.duels[0].Winner)

	// Fetch the stored result
	rec = doRequest(t, h, http.MethodGet, "/api/v1/duels/"+repo.duels[0].DuelID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInspectDuelInvalidToken(t *testing.T) {
	h, _ := newTestHandler()

	rec := doRequest(t, h, http.MethodGet, "/api/v1/duels/challenge/garbage", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDuelNotFound(t *testing.T) {
	h, _ := newTestHandler()

	rec := doRequest(t, h, http.MethodGet, "/api/v1/duels/no-such-duel", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMigrateGuest(t *testing.T) {
	h, repo := newTestHandler()
	repo.games = append(repo.games, domain.GameResult{UserID: "guest-1", GameType: "world:cities", Score: 300})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/guests/guest-1/migrate", map[string]string{"user_id": "user-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", repo.games[0].UserID)

	// Migrating a guest onto itself is rejected
	rec = doRequest(t, h, http.MethodPost, "/api/v1/guests/guest-1/migrate", map[string]string{"user_id": "guest-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictRank(t *testing.T) {
	h, _ := newTestHandler()

	rec := doRequest(t, h, http.MethodGet, "/api/v1/rankings/world:cities/predict?score=450", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var prediction domain.RankPrediction
	require.NoError(t, json.Unmarshal(data, &prediction))
	assert.Equal(t, int64(1), prediction.PredictedRank)

	// Missing or malformed score is a client error
	rec = doRequest(t, h, http.MethodGet, "/api/v1/rankings/world:cities/predict", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doRequest(t, h, http.MethodGet, "/api/v1/rankings/world:cities/predict?score=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
