package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoquiz/internal/config"
	"github.com/geoquiz/internal/domain"
)

func newTestDuelService() (*DuelService, *fakeRepository, *fakeBroadcaster) {
	repo := newFakeRepository()
	hub := &fakeBroadcaster{}
	cfg := &config.DuelConfig{
		BaseURL:       "https://geoquiz.example.com",
		DefaultLocale: "en",
		RoundCount:    5,
	}
	return NewDuelService(repo, hub, cfg, testLogger()), repo, hub
}

func validDuelRequest() CreateDuelRequest {
	return CreateDuelRequest{
		UserID:      "challenger-1",
		UserName:    "Phoenix1",
		GameType:    "world:cities",
		Score:       420,
		TimeSeconds: 95,
		GameID:      "game-1",
	}
}

func TestCreateChallenge(t *testing.T) {
	svc, _, _ := newTestDuelService()

	invite, err := svc.CreateChallenge(context.Background(), validDuelRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, invite.Token)
	assert.NotEmpty(t, invite.Challenge.Seed)
	assert.Equal(t, "challenger-1", invite.Challenge.ChallengerID)
	assert.Equal(t, int64(420), invite.Challenge.ChallengerScore)
	assert.True(t, strings.HasPrefix(invite.URL, "https://geoquiz.example.com/en/duel/"))
	assert.Contains(t, invite.URL, invite.Token)

	// The round order is a permutation of the configured round count
	assert.Len(t, invite.RoundOrder, 5)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, invite.RoundOrder)
}

func TestCreateChallengeValidation(t *testing.T) {
	svc, _, _ := newTestDuelService()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateDuelRequest)
		want   error
	}{
		{"missing user id", func(r *CreateDuelRequest) { r.UserID = "" }, domain.ErrInvalidRequest},
		{"missing user name", func(r *CreateDuelRequest) { r.UserName = "" }, domain.ErrInvalidRequest},
		{"missing game id", func(r *CreateDuelRequest) { r.GameID = "" }, domain.ErrInvalidRequest},
		{"negative score", func(r *CreateDuelRequest) { r.Score = -1 }, domain.ErrInvalidRequest},
		{"negative time", func(r *CreateDuelRequest) { r.TimeSeconds = -1 }, domain.ErrInvalidRequest},
		{"bad game type", func(r *CreateDuelRequest) { r.GameType = "nonsense" }, domain.ErrUnknownGameType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validDuelRequest()
			tt.mutate(&req)
			_, err := svc.CreateChallenge(ctx, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestInspectChallengeDerivesSameRoundOrder(t *testing.T) {
	svc, _, _ := newTestDuelService()
	ctx := context.Background()

	invite, err := svc.CreateChallenge(ctx, validDuelRequest())
	require.NoError(t, err)

	inspected, err := svc.InspectChallenge(invite.Token)
	require.NoError(t, err)

	// Both sides of the duel see the identical challenge and round order
	assert.Equal(t, invite.Challenge, inspected.Challenge)
	assert.Equal(t, invite.RoundOrder, inspected.RoundOrder)
}

func TestInspectChallengeInvalidToken(t *testing.T) {
	svc, _, _ := newTestDuelService()

	for _, token := range []string{"", "garbage", "bm90IGpzb24"} {
		_, err := svc.InspectChallenge(token)
		assert.ErrorIs(t, err, domain.ErrInvalidChallenge, token)
	}
}

func TestCompleteChallenge(t *testing.T) {
	svc, repo, hub := newTestDuelService()
	ctx := context.Background()

	invite, err := svc.CreateChallenge(ctx, validDuelRequest())
	require.NoError(t, err)

	result, err := svc.CompleteChallenge(ctx, invite.Token, "accepter-1", 450, 120)
	require.NoError(t, err)

	assert.NotEmpty(t, result.DuelID)
	assert.False(t, result.ResolvedAt.IsZero())
	assert.Equal(t, domain.DuelSideAccepter, result.Winner)
	assert.Equal(t, "challenger-1", result.ChallengerID)
	assert.Equal(t, "accepter-1", result.AccepterID)

	// Persisted and broadcast
	require.Len(t, repo.duels, 1)
	assert.Equal(t, result.DuelID, repo.duels[0].DuelID)
	require.Len(t, hub.duelResults, 1)
	assert.Equal(t, result.DuelID, hub.duelResults[0].DuelID)
}

func TestCompleteChallengeValidation(t *testing.T) {
	svc, repo, _ := newTestDuelService()
	ctx := context.Background()

	invite, err := svc.CreateChallenge(ctx, validDuelRequest())
	require.NoError(t, err)

	_, err = svc.CompleteChallenge(ctx, "broken-token", "accepter-1", 100, 60)
	assert.ErrorIs(t, err, domain.ErrInvalidChallenge)

	_, err = svc.CompleteChallenge(ctx, invite.Token, "", 100, 60)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.CompleteChallenge(ctx, invite.Token, "accepter-1", -1, 60)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	assert.Empty(t, repo.duels)
}

func TestGetDuel(t *testing.T) {
	svc, _, _ := newTestDuelService()
	ctx := context.Background()

	invite, err := svc.CreateChallenge(ctx, validDuelRequest())
	require.NoError(t, err)
	completed, err := svc.CompleteChallenge(ctx, invite.Token, "accepter-1", 100, 60)
	require.NoError(t, err)

	got, err := svc.GetDuel(ctx, completed.DuelID)
	require.NoError(t, err)
	assert.Equal(t, completed.DuelID, got.DuelID)

	_, err = svc.GetDuel(ctx, "no-such-duel")
	assert.ErrorIs(t, err, domain.ErrDuelNotFound)
}

func TestListUserDuelsClampsLimit(t *testing.T) {
	svc, repo, _ := newTestDuelService()
	ctx := context.Background()

	_, err := svc.ListUserDuels(ctx, "user-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 20, repo.lastDuelLimit)

	_, err = svc.ListUserDuels(ctx, "user-1", 500)
	require.NoError(t, err)
	assert.Equal(t, 20, repo.lastDuelLimit)

	_, err = svc.ListUserDuels(ctx, "user-1", 50)
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastDuelLimit)
}
