package session

import (
	"context"

	"github.com/robalobadob/wordcards/internal/game"
)

// Join seats playerName in game id.
func (m *Manager) Join(ctx context.Context, id, playerName string) (*game.State, error) {
	return m.Mutate(ctx, id, func(_ context.Context, st *game.State) (bool, error) {
		return false, m.cfg.Engine.Join(st, playerName)
	})
}

// Play places word from playerName's hand on the board.
func (m *Manager) Play(ctx context.Context, id, playerName, word string) (*game.State, error) {
	return m.Mutate(ctx, id, func(_ context.Context, st *game.State) (bool, error) {
		return false, m.cfg.Engine.PlayWord(st, playerName, word)
	})
}

// Discard moves tile from playerName's hand to the discard pile.
func (m *Manager) Discard(ctx context.Context, id, playerName, tile string) (*game.State, error) {
	return m.Mutate(ctx, id, func(_ context.Context, st *game.State) (bool, error) {
		return false, m.cfg.Engine.Discard(st, playerName, tile)
	})
}

// Challenge adjudicates challengerName's challenge of word.
func (m *Manager) Challenge(ctx context.Context, id, challengerName, word string) (game.ChallengeResult, *game.State, error) {
	var res game.ChallengeResult
	st, err := m.Mutate(ctx, id, func(ctx context.Context, st *game.State) (bool, error) {
		r, err := m.cfg.Engine.Challenge(ctx, st, challengerName, word)
		res = r
		return false, err
	})
	if err != nil {
		return game.ChallengeResult{}, nil, err
	}
	return res, st, nil
}

// Exit removes playerName. deleted reports that the game ended with them.
func (m *Manager) Exit(ctx context.Context, id, playerName string) (deleted bool, st *game.State, err error) {
	st, err = m.Mutate(ctx, id, func(_ context.Context, st *game.State) (bool, error) {
		return m.cfg.Engine.Exit(st, playerName)
	})
	if err != nil {
		return false, nil, err
	}
	return st == nil, st, nil
}
