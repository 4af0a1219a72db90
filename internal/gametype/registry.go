// Package gametype resolves scoring configuration per game type. The
// registry is built once at startup and is immutable afterwards, so it is
// safe for concurrent lookups without locking.
package gametype

import (
	"log/slog"

	"github.com/geoquiz/internal/domain"
	"github.com/geoquiz/internal/geo"
)

// categoryDefaults are the scoring parameters used when a variant has no
// explicit configuration. Country maps are small, world quizzes span the
// globe, image maps score on meters rather than kilometers.
var categoryDefaults = map[domain.GameTypeCategory]domain.GameTypeConfig{
	domain.CategoryCountry:  {ScoreScaleFactor: 50, TimeoutPenalty: 500},
	domain.CategoryWorld:    {ScoreScaleFactor: 2000, TimeoutPenalty: 20000},
	domain.CategoryPanorama: {ScoreScaleFactor: 2000, TimeoutPenalty: 20000},
	domain.CategoryImage:    {ScoreScaleFactor: 0.2, TimeoutPenalty: 2, PixelsPerTenMeters: geo.DefaultPixelsPerTenMeters},
}

// fallback is used for identifiers that do not even parse; a guess must
// always receive some score.
var fallback = domain.GameTypeConfig{ScoreScaleFactor: 2000, TimeoutPenalty: 20000}

// Registry looks up scoring configuration by game type identifier
type Registry struct {
	overrides map[string]domain.GameTypeConfig
	logger    *slog.Logger
}

// NewRegistry creates a registry with per-variant overrides, typically
// loaded from the configuration file
func NewRegistry(overrides map[string]domain.GameTypeConfig, logger *slog.Logger) *Registry {
	merged := make(map[string]domain.GameTypeConfig, len(overrides))
	for id, cfg := range overrides {
		if cfg.ScoreScaleFactor <= 0 {
			logger.Warn("ignoring game type override with non-positive scale factor", "game_type", id)
			continue
		}
		merged[id] = cfg
	}
	return &Registry{overrides: merged, logger: logger}
}

// Config resolves the scoring configuration for a game type identifier.
// Unknown identifiers fall back to their category default, or to the
// global default when the identifier does not parse.
func (r *Registry) Config(gameTypeID string) domain.GameTypeConfig {
	if cfg, ok := r.overrides[gameTypeID]; ok {
		return cfg
	}
	t, err := domain.ParseGameType(gameTypeID)
	if err != nil {
		r.logger.Warn("unknown game type, using default config", "game_type", gameTypeID)
		return fallback
	}
	return categoryDefaults[t.Category]
}
