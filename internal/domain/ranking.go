package domain

import "time"

// Period represents a ranking time window
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAllTime Period = "alltime"
)

// Periods lists every ranking window a game result contributes to
var Periods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime}

// Valid reports whether p is a known ranking period
func (p Period) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime:
		return true
	}
	return false
}

// SortMode selects how per-player bucket scores are aggregated
type SortMode string

const (
	// SortModeBest ranks players by their single best game in the bucket
	SortModeBest SortMode = "best"
	// SortModeTotal ranks players by their summed score in the bucket
	SortModeTotal SortMode = "total"
)

// Valid reports whether m is a known sort mode
func (m SortMode) Valid() bool {
	return m == SortModeBest || m == SortModeTotal
}

// RankingEntry is one row of a period leaderboard
type RankingEntry struct {
	Rank      int64  `json:"rank"`
	UserID    string `json:"user_id"`
	GameType  string `json:"game_type"`
	Period    Period `json:"period"`
	PeriodKey string `json:"period_key"`
	Score     int64  `json:"score"`
}

// RankingQuery selects a page of a period leaderboard
type RankingQuery struct {
	GameType  string   `json:"game_type"`
	Period    Period   `json:"period"`
	PeriodKey string   `json:"period_key,omitempty"`
	SortMode  SortMode `json:"sort_by,omitempty"`
	Limit     int      `json:"limit,omitempty"`
	Offset    int      `json:"offset,omitempty"`
}

// UserRank is a player's 1-based position and aggregate score in one bucket
type UserRank struct {
	Rank  int64 `json:"rank"`
	Score int64 `json:"score"`
}

// RankPrediction is the hypothetical rank an unsubmitted score would achieve
type RankPrediction struct {
	PredictedRank int64 `json:"predicted_rank"`
	TotalGames    int64 `json:"total_games"`
}

// GameRecord is one stored game row, used for per-game leaderboards
type GameRecord struct {
	Rank     int64     `json:"rank,omitempty"`
	GameID   string    `json:"game_id"`
	UserID   string    `json:"user_id"`
	GameType string    `json:"game_type"`
	Score    int64     `json:"score"`
	PlayedAt time.Time `json:"played_at"`
}

// UserStats is a player's cumulative record for one game type
type UserStats struct {
	UserID            string  `json:"user_id"`
	GameType          string  `json:"game_type"`
	TotalGames        int64   `json:"total_games"`
	TotalRounds       int64   `json:"total_rounds"`
	TotalDistanceKm   float64 `json:"total_distance_km"`
	TotalScore        int64   `json:"total_score"`
	BestScore         int64   `json:"best_score"`
	AverageDistanceKm float64 `json:"average_distance_km"`
}

// UserStatsSummary aggregates a player's record across all game types
type UserStatsSummary struct {
	UserID          string      `json:"user_id"`
	TotalGames      int64       `json:"total_games"`
	TotalRounds     int64       `json:"total_rounds"`
	TotalDistanceKm float64     `json:"total_distance_km"`
	TotalScore      int64       `json:"total_score"`
	BestScore       int64       `json:"best_score"`
	PerGameType     []UserStats `json:"per_game_type"`
}
