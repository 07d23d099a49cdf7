// internal/game/engine.go
//
// Turn engine for a single word-card game.
// Responsibilities:
//   - Create new games (shuffled deck, creator dealt a full hand).
//   - Validate and apply join / play / discard / exit, mutating the State in place.
//   - Rotate the turn and refill hands from the draw pile.
//   - Check the state invariants (tile conservation, seat bounds, hand sizes).
//
// Notes:
//   - The engine holds no per-game state; callers pass the State to mutate and are
//     responsible for serializing access and for discarding the State on error.
//   - Every method either returns an error having changed nothing, or succeeds.

package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"unicode/utf8"

	"github.com/robalobadob/wordcards/internal/tiles"
	"github.com/robalobadob/wordcards/internal/words"
)

const (
	defaultHandSize         = 10
	defaultMaxPlayers       = 4
	defaultChallengePenalty = 10
	maxNameLen              = 24
)

// WordValidity decides whether a challenged word is a real word.
type WordValidity interface {
	Valid(ctx context.Context, word string) (bool, error)
}

// Rules are the tunable game rules. Zero values take the defaults.
type Rules struct {
	StrictTurns      bool // Only the current player may play or discard.
	HandSize         int
	MaxPlayers       int
	ChallengePenalty int
}

// DefaultRules returns the standard rules with turn enforcement on.
func DefaultRules() Rules {
	return Rules{
		StrictTurns:      true,
		HandSize:         defaultHandSize,
		MaxPlayers:       defaultMaxPlayers,
		ChallengePenalty: defaultChallengePenalty,
	}
}

func (r Rules) withDefaults() Rules {
	if r.HandSize <= 0 {
		r.HandSize = defaultHandSize
	}
	if r.MaxPlayers <= 0 {
		r.MaxPlayers = defaultMaxPlayers
	}
	if r.ChallengePenalty <= 0 {
		r.ChallengePenalty = defaultChallengePenalty
	}
	return r
}

// Engine applies the game rules.
type Engine struct {
	rules    Rules
	validity WordValidity
}

// NewEngine constructs an Engine. validity adjudicates challenges.
func NewEngine(rules Rules, validity WordValidity) *Engine {
	return &Engine{rules: rules.withDefaults(), validity: validity}
}

// Rules returns the effective rules.
func (e *Engine) Rules() Rules { return e.rules }

// NewState builds a fresh game: a shuffled deck with creator dealt a full hand.
func (e *Engine) NewState(id, creator string, rng *rand.Rand) (*State, error) {
	name, err := normalizeName(creator)
	if err != nil {
		return nil, err
	}
	hand, pile := tiles.Deal(tiles.Build(rng), e.rules.HandSize)
	return &State{
		ID:          id,
		Players:     []Player{{Name: name, Hand: hand}},
		Board:       []BoardWord{},
		DrawPile:    pile,
		DiscardPile: []tiles.Tile{},
	}, nil
}

// Join seats a new player at the end of the turn order and deals them a hand.
func (e *Engine) Join(st *State, name string) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	if len(st.Players) >= e.rules.MaxPlayers {
		return ErrGameFull
	}
	if st.PlayerIndex(name) >= 0 {
		return ErrNameTaken
	}
	hand, rest := tiles.Deal(st.DrawPile, e.rules.HandSize)
	st.DrawPile = rest
	st.Players = append(st.Players, Player{Name: name, Hand: hand})
	return nil
}

// PlayWord places word on the board using tiles from name's hand.
// Exact letters are spent before wildcards. The turn then passes and the hand is
// refilled from the draw pile.
func (e *Engine) PlayWord(st *State, name, word string) error {
	idx, err := e.actor(st, name)
	if err != nil {
		return err
	}
	w, err := words.Normalize(word)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidWord, word)
	}
	p := &st.Players[idx]
	used, rest, ok := words.Consume(w, p.Hand)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidWord, w)
	}
	p.Hand = rest
	st.Board = append(st.Board, BoardWord{Word: w, Author: p.Name, Tiles: used})
	e.advance(st)
	e.refill(st, p, e.rules.HandSize-len(p.Hand))
	return nil
}

// Discard moves one tile from name's hand to the discard pile, passes the turn, and
// draws one replacement if the draw pile is not empty.
func (e *Engine) Discard(st *State, name, tile string) error {
	idx, err := e.actor(st, name)
	if err != nil {
		return err
	}
	t, err := tiles.Parse(tile)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTile, tile)
	}
	p := &st.Players[idx]
	hand, ok := tiles.Remove(p.Hand, t)
	if !ok {
		return fmt.Errorf("%w: %s", ErrCardNotInHand, t)
	}
	p.Hand = hand
	st.DiscardPile = append(st.DiscardPile, t)
	e.advance(st)
	e.refill(st, p, 1)
	return nil
}

// Exit removes name from the game. Their hand goes to the discard pile.
// empty reports that no players remain and the game should be deleted.
func (e *Engine) Exit(st *State, name string) (empty bool, err error) {
	idx := st.PlayerIndex(strings.TrimSpace(name))
	if idx < 0 {
		return false, ErrPlayerNotFound
	}
	st.DiscardPile = append(st.DiscardPile, st.Players[idx].Hand...)
	st.Players = append(st.Players[:idx], st.Players[idx+1:]...)

	if len(st.Players) == 0 {
		st.CurrentPlayerIndex = 0
		return true, nil
	}
	if st.CurrentPlayerIndex >= len(st.Players) {
		st.CurrentPlayerIndex = 0
	}
	return false, nil
}

// actor resolves the acting player's seat and enforces turn order when configured.
func (e *Engine) actor(st *State, name string) (int, error) {
	idx := st.PlayerIndex(strings.TrimSpace(name))
	if idx < 0 {
		return -1, ErrPlayerNotFound
	}
	if e.rules.StrictTurns && idx != st.CurrentPlayerIndex {
		return -1, fmt.Errorf("%w: waiting for %s", ErrNotYourTurn, st.CurrentPlayer())
	}
	return idx, nil
}

func (e *Engine) advance(st *State) {
	st.CurrentPlayerIndex = (st.CurrentPlayerIndex + 1) % len(st.Players)
}

// refill draws up to n tiles into p's hand, never past the hand size.
func (e *Engine) refill(st *State, p *Player, n int) {
	if room := e.rules.HandSize - len(p.Hand); n > room {
		n = room
	}
	drawn, rest := tiles.Deal(st.DrawPile, n)
	p.Hand = append(p.Hand, drawn...)
	st.DrawPile = rest
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return "", ErrInvalidName
	}
	return name, nil
}

// ErrInvariant is wrapped by Check when a state breaks an invariant.
var ErrInvariant = errors.New("invariant violated")

// Check verifies the state invariants.
func (e *Engine) Check(st *State) error {
	total := len(st.DrawPile) + len(st.DiscardPile)
	seen := make(map[string]bool, len(st.Players))
	for _, p := range st.Players {
		if len(p.Hand) > e.rules.HandSize {
			return fmt.Errorf("%w: %s holds %d tiles", ErrInvariant, p.Name, len(p.Hand))
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate player %s", ErrInvariant, p.Name)
		}
		if p.Score < 0 {
			return fmt.Errorf("%w: negative score for %s", ErrInvariant, p.Name)
		}
		seen[p.Name] = true
		total += len(p.Hand)
	}
	for _, b := range st.Board {
		if len(b.Tiles) != len(b.Word) {
			return fmt.Errorf("%w: board word %s has %d tiles", ErrInvariant, b.Word, len(b.Tiles))
		}
		total += len(b.Tiles)
	}
	if total != tiles.DeckSize {
		return fmt.Errorf("%w: %d tiles in play, want %d", ErrInvariant, total, tiles.DeckSize)
	}
	if len(st.Players) > e.rules.MaxPlayers {
		return fmt.Errorf("%w: %d players", ErrInvariant, len(st.Players))
	}
	if len(st.Players) > 0 && (st.CurrentPlayerIndex < 0 || st.CurrentPlayerIndex >= len(st.Players)) {
		return fmt.Errorf("%w: current player index %d", ErrInvariant, st.CurrentPlayerIndex)
	}
	return nil
}
