package scoring

import (
	"math"

	"github.com/geoquiz/internal/domain"
)

// MaxRoundScore is the score a perfect guess (distance zero) earns
const MaxRoundScore int64 = 100

// Score converts a round's distance into points using exponential decay:
// round(max * exp(-distance/scale)), clamped to [0, MaxRoundScore].
// Pure: the same distance and config always yield the same score.
func Score(distanceKm float64, cfg domain.GameTypeConfig) int64 {
	if distanceKm < 0 {
		distanceKm = 0
	}
	scale := cfg.ScoreScaleFactor
	if scale <= 0 {
		return 0
	}
	raw := float64(MaxRoundScore) * math.Exp(-distanceKm/scale)
	score := int64(math.Round(raw))
	if score < 0 {
		return 0
	}
	if score > MaxRoundScore {
		return MaxRoundScore
	}
	return score
}

// ScoreTimedOut scores a round that received no guess in time. The
// configured timeout penalty is a substitute distance, not a flat
// deduction: the round is scored as if the guess landed that far away.
func ScoreTimedOut(cfg domain.GameTypeConfig) int64 {
	return Score(cfg.TimeoutPenalty, cfg)
}
