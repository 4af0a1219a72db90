package duel

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/geoquiz/internal/domain"
)

// challengeWire mirrors domain.DuelChallenge with pointer fields so that
// missing or mistyped JSON keys are distinguishable after unmarshaling.
type challengeWire struct {
	Seed             *string `json:"seed"`
	GameType         *string `json:"gameType"`
	ChallengerID     *string `json:"challengerId"`
	ChallengerName   *string `json:"challengerName"`
	ChallengerScore  *int64  `json:"challengerScore"`
	ChallengerTime   *int64  `json:"challengerTime"`
	ChallengerGameID *string `json:"challengerGameId"`
}

// Encode serializes a challenge into a compact URL-safe token. The output
// uses the unpadded base64url alphabet: no '+', '/' or '=' characters.
func Encode(c domain.DuelChallenge) string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode is the inverse of Encode. It fails closed: any empty, malformed,
// incomplete or mistyped token yields nil, never an error or panic.
func Decode(token string) *domain.DuelChallenge {
	if token == "" {
		return nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil
	}

	var w challengeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil
	}
	if w.Seed == nil || w.GameType == nil || w.ChallengerID == nil ||
		w.ChallengerName == nil || w.ChallengerScore == nil ||
		w.ChallengerTime == nil || w.ChallengerGameID == nil {
		return nil
	}
	if *w.ChallengerScore < 0 || *w.ChallengerTime < 0 {
		return nil
	}

	return &domain.DuelChallenge{
		Seed:             *w.Seed,
		GameType:         *w.GameType,
		ChallengerID:     *w.ChallengerID,
		ChallengerName:   *w.ChallengerName,
		ChallengerScore:  *w.ChallengerScore,
		ChallengerTime:   *w.ChallengerTime,
		ChallengerGameID: *w.ChallengerGameID,
	}
}

// BuildChallengeURL assembles the shareable duel link. The game type is a
// path segment and may contain reserved characters (':'), so it is
// percent-encoded.
func BuildChallengeURL(baseURL, locale, gameType, token string) string {
	return fmt.Sprintf("%s/%s/duel/%s?challenge=%s",
		baseURL, locale, url.PathEscape(gameType), token)
}
