package duel

import "github.com/geoquiz/internal/domain"

// DetermineWinner resolves a completed duel. Higher score wins; on a score
// tie the lower time wins; on a complete tie the challenger wins. No draw
// is representable.
func DetermineWinner(challengerScore, challengerTime, accepterScore, accepterTime int64) domain.DuelSide {
	if challengerScore != accepterScore {
		if challengerScore > accepterScore {
			return domain.DuelSideChallenger
		}
		return domain.DuelSideAccepter
	}
	if accepterTime < challengerTime {
		return domain.DuelSideAccepter
	}
	return domain.DuelSideChallenger
}

// Resolve builds the stored result for a completed duel
func Resolve(challenge domain.DuelChallenge, accepterID string, accepterScore, accepterTime int64) domain.DuelResult {
	return domain.DuelResult{
		GameType:        challenge.GameType,
		ChallengerID:    challenge.ChallengerID,
		AccepterID:      accepterID,
		ChallengerScore: challenge.ChallengerScore,
		ChallengerTime:  challenge.ChallengerTime,
		AccepterScore:   accepterScore,
		AccepterTime:    accepterTime,
		Winner:          DetermineWinner(challenge.ChallengerScore, challenge.ChallengerTime, accepterScore, accepterTime),
	}
}
