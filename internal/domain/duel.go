package domain

import "time"

// DuelSide identifies a duel participant
type DuelSide string

const (
	DuelSideChallenger DuelSide = "challenger"
	DuelSideAccepter   DuelSide = "accepter"
)

// DuelChallenge is an encoded duel invitation. The seed fixes the round
// order so both participants play an identical location sequence.
type DuelChallenge struct {
	Seed             string `json:"seed"`
	GameType         string `json:"gameType"`
	ChallengerID     string `json:"challengerId"`
	ChallengerName   string `json:"challengerName"`
	ChallengerScore  int64  `json:"challengerScore"`
	ChallengerTime   int64  `json:"challengerTime"`
	ChallengerGameID string `json:"challengerGameId"`
}

// DuelResult is the resolved outcome after both legs complete
type DuelResult struct {
	DuelID          string    `json:"duel_id"`
	GameType        string    `json:"game_type"`
	ChallengerID    string    `json:"challenger_id"`
	AccepterID      string    `json:"accepter_id"`
	ChallengerScore int64     `json:"challenger_score"`
	ChallengerTime  int64     `json:"challenger_time"`
	AccepterScore   int64     `json:"accepter_score"`
	AccepterTime    int64     `json:"accepter_time"`
	Winner          DuelSide  `json:"winner"`
	ResolvedAt      time.Time `json:"resolved_at"`
}
