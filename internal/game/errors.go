package game

import "errors"

// Rule violations. They describe a rejected action and are never retried.
var (
	ErrGameNotFound   = errors.New("game not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrGameFull       = errors.New("game is full")
	ErrNameTaken      = errors.New("name already taken")
	ErrInvalidName    = errors.New("invalid player name")
	ErrInvalidWord    = errors.New("word cannot be formed from hand")
	ErrInvalidTile    = errors.New("invalid tile")
	ErrCardNotInHand  = errors.New("tile not in hand")
	ErrWordNotOnBoard = errors.New("word not on board")
	ErrNotYourTurn    = errors.New("not your turn")
)

// ErrStorageFailure marks a transient persistence fault. It is the only retryable class.
var ErrStorageFailure = errors.New("storage failure")

// IsRuleViolation reports whether err is one of the rule violations above.
func IsRuleViolation(err error) bool {
	for _, target := range []error{
		ErrGameNotFound, ErrPlayerNotFound, ErrGameFull, ErrNameTaken, ErrInvalidName,
		ErrInvalidWord, ErrInvalidTile, ErrCardNotInHand, ErrWordNotOnBoard, ErrNotYourTurn,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
