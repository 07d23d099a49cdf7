// internal/game/types.go
//
// Core type definitions for the word-card game engine.
// Defines:
//   - Player: a seat in the game with a private hand and a penalty score.
//   - BoardWord: a played word, who played it, and the tiles it consumed.
//   - State: the canonical record for one game session.
//
// The JSON tags are the persisted record layout shared by the stores and the API.

package game

import (
	"time"

	"github.com/robalobadob/wordcards/internal/tiles"
)

// Player holds one participant's state.
type Player struct {
	Name  string       `json:"name"`  // Unique among the game's current players.
	Score int          `json:"score"` // Penalty points from challenges.
	Hand  []tiles.Tile `json:"hand"`  // At most HandSize tiles.
}

// BoardWord is a word on the shared board.
type BoardWord struct {
	Word   string       `json:"word"`   // Upper-case letters as played.
	Author string       `json:"author"` // Name of the player who played it.
	Tiles  []tiles.Tile `json:"tiles"`  // Tiles consumed, one per letter; may include wildcards.
}

// State is the full record of a single game.
type State struct {
	ID                 string       `json:"id"`
	Version            int64        `json:"version"` // Incremented on every committed mutation.
	Players            []Player     `json:"players"` // Turn order.
	CurrentPlayerIndex int          `json:"currentPlayerIndex"`
	Board              []BoardWord  `json:"board"`
	DrawPile           []tiles.Tile `json:"drawPile"` // Top of the pile is index 0.
	DiscardPile        []tiles.Tile `json:"discardPile"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// ChallengeResult reports how a challenge was adjudicated.
type ChallengeResult struct {
	Word      string `json:"word"`
	Author    string `json:"author"`
	Valid     bool   `json:"valid"`
	Penalized string `json:"penalized,omitempty"` // Empty when the author already left.
}

// Words returns the played words in board order.
func (s *State) Words() []string {
	out := make([]string, len(s.Board))
	for i, b := range s.Board {
		out[i] = b.Word
	}
	return out
}

// PlayerIndex returns the seat of name, or -1.
func (s *State) PlayerIndex(name string) int {
	for i := range s.Players {
		if s.Players[i].Name == name {
			return i
		}
	}
	return -1
}

// CurrentPlayer returns the name of the player whose turn it is, or "" for an empty game.
func (s *State) CurrentPlayer() string {
	if len(s.Players) == 0 {
		return ""
	}
	return s.Players[s.CurrentPlayerIndex].Name
}

// Clone returns a deep copy; mutations on the copy never reach s.
func (s *State) Clone() *State {
	c := *s
	c.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		p.Hand = cloneTiles(p.Hand)
		c.Players[i] = p
	}
	c.Board = make([]BoardWord, len(s.Board))
	for i, b := range s.Board {
		b.Tiles = cloneTiles(b.Tiles)
		c.Board[i] = b
	}
	c.DrawPile = cloneTiles(s.DrawPile)
	c.DiscardPile = cloneTiles(s.DiscardPile)
	return &c
}

func cloneTiles(ts []tiles.Tile) []tiles.Tile {
	return append(make([]tiles.Tile, 0, len(ts)), ts...)
}
