// internal/tiles/tiles.go
//
// Letter tile supply for a game.
// Responsibilities:
//   - Define the Tile value (A–Z or the '*' wildcard).
//   - Build the fixed 52-tile deck and shuffle it (uniform permutation).
//   - Deal tiles off the top of a pile.
//
// Notes:
//   - The top of a pile is index 0; every draw consumes from the front.
//   - Tiles have no identity beyond their face value.

package tiles

import (
	"errors"
	"math/rand"
	"strings"
)

// Tile is a single letter tile, or the wildcard.
type Tile string

// Wildcard substitutes for any single letter.
const Wildcard Tile = "*"

// DeckSize is the number of tiles in a freshly built deck.
const DeckSize = 52

// ErrInvalidTile is returned by Parse for anything that is not A–Z or '*'.
var ErrInvalidTile = errors.New("invalid tile")

// composition lists how many copies of each tile the deck holds.
var composition = []struct {
	letters string
	copies  int
}{
	{"AEI", 4},
	{"OU", 3},
	{"HLRSTW", 3},
	{"BCDFGJKMNPQVXYZ", 1},
	{string(Wildcard), 1},
}

// Standard returns the deck composition in a fixed, unshuffled order.
func Standard() []Tile {
	deck := make([]Tile, 0, DeckSize)
	for _, c := range composition {
		for _, r := range c.letters {
			for i := 0; i < c.copies; i++ {
				deck = append(deck, Tile(string(r)))
			}
		}
	}
	return deck
}

// Build returns the standard deck shuffled with rng.
// rng.Shuffle is a Fisher–Yates shuffle, so every permutation is equally likely.
func Build(rng *rand.Rand) []Tile {
	deck := Standard()
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

// Deal removes up to n tiles from the top of pile.
// It returns the dealt tiles and the remaining pile; both are fresh slices.
func Deal(pile []Tile, n int) (hand, rest []Tile) {
	if n < 0 {
		n = 0
	}
	if n > len(pile) {
		n = len(pile)
	}
	hand = append([]Tile{}, pile[:n]...)
	rest = append([]Tile{}, pile[n:]...)
	return hand, rest
}

// Parse converts user input into a Tile. Letters are upper-cased.
func Parse(s string) (Tile, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 1 {
		return "", ErrInvalidTile
	}
	if s == string(Wildcard) || (s[0] >= 'A' && s[0] <= 'Z') {
		return Tile(s), nil
	}
	return "", ErrInvalidTile
}

// Counts returns the multiset view of ts.
func Counts(ts []Tile) map[Tile]int {
	m := make(map[Tile]int, len(ts))
	for _, t := range ts {
		m[t]++
	}
	return m
}

// Remove deletes the first occurrence of t from ts.
// It reports false when t is not present.
func Remove(ts []Tile, t Tile) ([]Tile, bool) {
	for i, x := range ts {
		if x == t {
			out := make([]Tile, 0, len(ts)-1)
			out = append(out, ts[:i]...)
			return append(out, ts[i+1:]...), true
		}
	}
	return ts, false
}
