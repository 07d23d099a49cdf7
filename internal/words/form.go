// internal/words/form.go
//
// Word formation against a hand of tiles.
//
// A word is formable when every letter can be matched to a distinct tile, either
// a tile of the same letter or a wildcard. Matching exact letters first and falling
// back to wildcards is exact for this resource model: a wildcard can cover any
// letter, so spending it only when no exact tile is left never loses a solution.

package words

import (
	"errors"
	"strings"

	"github.com/robalobadob/wordcards/internal/tiles"
)

// ErrInvalidWord is returned by Normalize for empty or non-alphabetic words.
var ErrInvalidWord = errors.New("invalid word")

// Normalize trims and upper-cases w, and requires at least one letter A–Z.
func Normalize(w string) (string, error) {
	w = strings.ToUpper(strings.TrimSpace(w))
	if w == "" {
		return "", ErrInvalidWord
	}
	for i := 0; i < len(w); i++ {
		if w[i] < 'A' || w[i] > 'Z' {
			return "", ErrInvalidWord
		}
	}
	return w, nil
}

// CanForm reports whether word can be assembled from hand.
// The hand is not modified.
func CanForm(word string, hand []tiles.Tile) bool {
	_, _, ok := Consume(word, hand)
	return ok
}

// Consume matches each letter of word, in order, to one tile of hand.
// It returns the tiles used (one per letter, in word order) and what is left of the
// hand. ok is false when some letter has neither a matching tile nor a wildcard; in
// that case used and rest are nil.
func Consume(word string, hand []tiles.Tile) (used, rest []tiles.Tile, ok bool) {
	counts := tiles.Counts(hand)
	used = make([]tiles.Tile, 0, len(word))
	for _, r := range word {
		t := tiles.Tile(string(r))
		switch {
		case t != tiles.Wildcard && counts[t] > 0:
			counts[t]--
		case counts[tiles.Wildcard] > 0:
			t = tiles.Wildcard
			counts[tiles.Wildcard]--
		default:
			return nil, nil, false
		}
		used = append(used, t)
	}

	// Rebuild the remainder in original hand order.
	take := tiles.Counts(used)
	rest = make([]tiles.Tile, 0, len(hand)-len(used))
	for _, t := range hand {
		if take[t] > 0 {
			take[t]--
			continue
		}
		rest = append(rest, t)
	}
	return used, rest, true
}
