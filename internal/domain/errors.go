package domain

import "errors"

// Domain errors
var (
	ErrUserNotRanked     = errors.New("user has no ranked entry in this bucket")
	ErrStatsNotFound     = errors.New("no stats recorded for user")
	ErrDuelNotFound      = errors.New("duel not found")
	ErrInvalidChallenge  = errors.New("invalid challenge token")
	ErrUnknownGameType   = errors.New("unknown game type")
	ErrInvalidPeriod     = errors.New("invalid ranking period")
	ErrInvalidSubmission = errors.New("invalid game submission")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInternalError     = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrUserNotRanked) || errors.Is(err, ErrStatsNotFound) || errors.Is(err, ErrDuelNotFound)
}
