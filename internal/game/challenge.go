package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/robalobadob/wordcards/internal/words"
)

// Challenge adjudicates challenger's claim that word on the board is not a real word.
//
// If the word is valid the challenger takes the penalty. Otherwise the first board
// entry for word is removed, its tiles go to the discard pile, and the player who
// played it takes the penalty. Scores count penalty points. When the author has
// already left the game nobody is penalized.
func (e *Engine) Challenge(ctx context.Context, st *State, challenger, word string) (ChallengeResult, error) {
	ci := st.PlayerIndex(strings.TrimSpace(challenger))
	if ci < 0 {
		return ChallengeResult{}, ErrPlayerNotFound
	}
	w, err := words.Normalize(word)
	if err != nil {
		return ChallengeResult{}, fmt.Errorf("%w: %q", ErrWordNotOnBoard, word)
	}
	bi := -1
	for i := range st.Board {
		if st.Board[i].Word == w {
			bi = i
			break
		}
	}
	if bi < 0 {
		return ChallengeResult{}, fmt.Errorf("%w: %s", ErrWordNotOnBoard, w)
	}
	entry := st.Board[bi]

	valid, err := e.validity.Valid(ctx, w)
	if err != nil {
		return ChallengeResult{}, fmt.Errorf("check %s: %w", w, err)
	}

	res := ChallengeResult{Word: w, Author: entry.Author, Valid: valid}
	if valid {
		st.Players[ci].Score += e.rules.ChallengePenalty
		res.Penalized = st.Players[ci].Name
		return res, nil
	}

	st.Board = append(st.Board[:bi], st.Board[bi+1:]...)
	st.DiscardPile = append(st.DiscardPile, entry.Tiles...)
	if ai := st.PlayerIndex(entry.Author); ai >= 0 {
		st.Players[ai].Score += e.rules.ChallengePenalty
		res.Penalized = entry.Author
	}
	return res, nil
}
