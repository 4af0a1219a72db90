package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/geoquiz/internal/config"
	"github.com/geoquiz/internal/domain"
	"github.com/geoquiz/internal/duel"
	"github.com/geoquiz/internal/shuffle"
)

// CreateDuelRequest carries the challenger's finished leg
type CreateDuelRequest struct {
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	GameType    string `json:"game_type"`
	Score       int64  `json:"score"`
	TimeSeconds int64  `json:"time_seconds"`
	GameID      string `json:"game_id"`
}

// DuelInvite is a created or decoded challenge plus its derived round
// order. Both participants compute the same order from the seed.
type DuelInvite struct {
	Token      string               `json:"token"`
	URL        string               `json:"url,omitempty"`
	Challenge  domain.DuelChallenge `json:"challenge"`
	RoundOrder []int                `json:"round_order"`
}

// DuelService manages the duel challenge lifecycle
type DuelService struct {
	duels  DuelRepository
	hub    Broadcaster
	config *config.DuelConfig
	logger *slog.Logger
}

// NewDuelService creates a new duel service. hub may be nil.
func NewDuelService(duels DuelRepository, hub Broadcaster, cfg *config.DuelConfig, logger *slog.Logger) *DuelService {
	return &DuelService{
		duels:  duels,
		hub:    hub,
		config: cfg,
		logger: logger,
	}
}

// roundOrder derives the seeded permutation of round indices
func (s *DuelService) roundOrder(seed string) []int {
	order := make([]int, s.config.RoundCount)
	for i := range order {
		order[i] = i
	}
	return shuffle.Shuffle(order, seed)
}

// CreateChallenge encodes the challenger's result into a shareable token
// and link
func (s *DuelService) CreateChallenge(ctx context.Context, req CreateDuelRequest) (*DuelInvite, error) {
	if req.UserID == "" || req.UserName == "" || req.GameType == "" || req.GameID == "" {
		return nil, domain.ErrInvalidRequest
	}
	if req.Score < 0 || req.TimeSeconds < 0 {
		return nil, domain.ErrInvalidRequest
	}
	if _, err := domain.ParseGameType(req.GameType); err != nil {
		return nil, err
	}

	challenge := domain.DuelChallenge{
		Seed:             uuid.New().String(),
		GameType:         req.GameType,
		ChallengerID:     req.UserID,
		ChallengerName:   req.UserName,
		ChallengerScore:  req.Score,
		ChallengerTime:   req.TimeSeconds,
		ChallengerGameID: req.GameID,
	}
	token := duel.Encode(challenge)

	return &DuelInvite{
		Token:      token,
		URL:        duel.BuildChallengeURL(s.config.BaseURL, s.config.DefaultLocale, req.GameType, token),
		Challenge:  challenge,
		RoundOrder: s.roundOrder(challenge.Seed),
	}, nil
}

// InspectChallenge decodes an invitation token for the accepting side
func (s *DuelService) InspectChallenge(token string) (*DuelInvite, error) {
	challenge := duel.Decode(token)
	if challenge == nil {
		return nil, domain.ErrInvalidChallenge
	}
	return &DuelInvite{
		Token:      token,
		Challenge:  *challenge,
		RoundOrder: s.roundOrder(challenge.Seed),
	}, nil
}

// CompleteChallenge resolves a duel from the accepter's finished leg and
// persists the outcome
func (s *DuelService) CompleteChallenge(ctx context.Context, token, accepterID string, accepterScore, accepterTime int64) (*domain.DuelResult, error) {
	challenge := duel.Decode(token)
	if challenge == nil {
		return nil, domain.ErrInvalidChallenge
	}
	if accepterID == "" || accepterScore < 0 || accepterTime < 0 {
		return nil, domain.ErrInvalidRequest
	}

	result := duel.Resolve(*challenge, accepterID, accepterScore, accepterTime)
	result.DuelID = uuid.New().String()
	result.ResolvedAt = time.Now()

	if err := s.duels.InsertDuelResult(ctx, result); err != nil {
		return nil, fmt.Errorf("storing duel result: %w", err)
	}

	if s.hub != nil {
		s.hub.BroadcastDuelResolved(result)
	}

	s.logger.Info("duel resolved",
		"duel_id", result.DuelID,
		"winner", result.Winner,
		"challenger_score", result.ChallengerScore,
		"accepter_score", result.AccepterScore,
	)
	return &result, nil
}

// GetDuel retrieves a resolved duel by id
func (s *DuelService) GetDuel(ctx context.Context, duelID string) (*domain.DuelResult, error) {
	return s.duels.GetDuelResult(ctx, duelID)
}

// ListUserDuels returns a player's resolved duels, newest first
func (s *DuelService) ListUserDuels(ctx context.Context, userID string, limit int) ([]domain.DuelResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.duels.ListUserDuels(ctx, userID, limit)
}
