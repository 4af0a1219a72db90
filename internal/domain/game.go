package domain

import (
	"fmt"
	"strings"
)

// GameTypeCategory is the closed set of quiz variants
type GameTypeCategory string

const (
	CategoryCountry  GameTypeCategory = "country"
	CategoryWorld    GameTypeCategory = "world"
	CategoryPanorama GameTypeCategory = "panorama"
	CategoryImage    GameTypeCategory = "image"
)

// GameType identifies a quiz variant, e.g. "country:switzerland" or "image:oldtown"
type GameType struct {
	Category GameTypeCategory
	Variant  string
}

// ParseGameType parses a "category:variant" identifier into its tagged form
func ParseGameType(s string) (GameType, error) {
	category, variant, ok := strings.Cut(s, ":")
	if !ok || variant == "" {
		return GameType{}, fmt.Errorf("%w: %q", ErrUnknownGameType, s)
	}
	switch GameTypeCategory(category) {
	case CategoryCountry, CategoryWorld, CategoryPanorama, CategoryImage:
		return GameType{Category: GameTypeCategory(category), Variant: variant}, nil
	default:
		return GameType{}, fmt.Errorf("%w: %q", ErrUnknownGameType, s)
	}
}

// String returns the canonical "category:variant" identifier
func (t GameType) String() string {
	return string(t.Category) + ":" + t.Variant
}

// IsImage reports whether the variant plays on a static image map
func (t GameType) IsImage() bool {
	return t.Category == CategoryImage
}

// GameTypeConfig carries the scoring parameters of a quiz variant
type GameTypeConfig struct {
	// ScoreScaleFactor controls how steeply points decay with distance (km)
	ScoreScaleFactor float64 `yaml:"score_scale_factor" json:"score_scale_factor"`
	// TimeoutPenalty is the distance (km) substituted when a round times out
	TimeoutPenalty float64 `yaml:"timeout_penalty" json:"timeout_penalty"`
	// PixelsPerTenMeters calibrates pixel distances on image maps
	PixelsPerTenMeters float64 `yaml:"pixels_per_ten_meters" json:"pixels_per_ten_meters"`
}

// GeoPoint is a WGS84 coordinate pair
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PixelPoint is a position on a static image map
type PixelPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Guess is a single completed round's outcome before scoring
type Guess struct {
	DistanceKm float64 `json:"distance_km"`
	GameType   string  `json:"game_type"`
}

// RoundSubmission is one round of a submitted game. Exactly one of
// (Target, Guess) or (TargetPx, GuessPx) is set unless the round timed out.
type RoundSubmission struct {
	Target   *GeoPoint   `json:"target,omitempty"`
	Guess    *GeoPoint   `json:"guess,omitempty"`
	TargetPx *PixelPoint `json:"target_px,omitempty"`
	GuessPx  *PixelPoint `json:"guess_px,omitempty"`
	TimedOut bool        `json:"timed_out,omitempty"`
}

// GameSubmission is a completed game reported by a client
type GameSubmission struct {
	UserID          string            `json:"user_id"`
	GameType        string            `json:"game_type"`
	DurationSeconds int64             `json:"duration_seconds"`
	Rounds          []RoundSubmission `json:"rounds"`
}

// RoundResult is the scored outcome of one round
type RoundResult struct {
	DistanceKm        float64 `json:"distance_km"`
	FormattedDistance string  `json:"formatted_distance"`
	Score             int64   `json:"score"`
	TimedOut          bool    `json:"timed_out,omitempty"`
}

// GameResult is the scored outcome of a full game
type GameResult struct {
	GameID                 string        `json:"game_id"`
	UserID                 string        `json:"user_id"`
	GameType               string        `json:"game_type"`
	Score                  int64         `json:"score"`
	TotalDistanceKm        float64       `json:"total_distance_km"`
	FormattedTotalDistance string        `json:"formatted_total_distance,omitempty"`
	DurationSeconds        int64         `json:"duration_seconds"`
	Rounds                 []RoundResult `json:"rounds"`
}
