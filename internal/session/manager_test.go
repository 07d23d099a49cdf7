package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/robalobadob/wordcards/internal/game"
	"github.com/robalobadob/wordcards/internal/store"
	"github.com/robalobadob/wordcards/internal/tiles"
	"github.com/robalobadob/wordcards/internal/words"
)

func relaxed() game.Rules {
	r := game.DefaultRules()
	r.StrictTurns = false
	return r
}

func newManager(t *testing.T, st store.Store, rules game.Rules) *Manager {
	t.Helper()
	m := New(Config{
		Store:        st,
		Engine:       game.NewEngine(rules, words.Static(true)),
		RetryBackoff: time.Millisecond,
		Rand:         rand.New(rand.NewSource(1)),
		Logger:       zerolog.Nop(),
	})
	t.Cleanup(m.Close)
	return m
}

func tileCount(st *game.State) int {
	n := len(st.DrawPile) + len(st.DiscardPile)
	for _, p := range st.Players {
		n += len(p.Hand)
	}
	for _, b := range st.Board {
		n += len(b.Word)
	}
	return n
}

func firstLetter(hand []tiles.Tile) string {
	for _, t := range hand {
		if t != tiles.Wildcard {
			return string(t)
		}
	}
	return ""
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, store.NewMemoryStore(), game.DefaultRules())

	id, err := m.Create(ctx, "Alice")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	st, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, st.ID)
	assert.Equal(t, int64(1), st.Version)
	require.Len(t, st.Players, 1)
	assert.Len(t, st.Players[0].Hand, 10)
	assert.Len(t, st.DrawPile, 42)
	assert.False(t, st.CreatedAt.IsZero())

	_, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, game.ErrGameNotFound)

	_, err = m.Create(ctx, "")
	assert.ErrorIs(t, err, game.ErrInvalidName)
}

func TestGameFlow(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, store.NewMemoryStore(), game.DefaultRules())

	id, err := m.Create(ctx, "Alice")
	require.NoError(t, err)

	st, err := m.Join(ctx, id, "Bob")
	require.NoError(t, err)
	assert.Len(t, st.Players, 2)
	assert.Len(t, st.DrawPile, 32)

	_, err = m.Play(ctx, id, "Bob", "A")
	assert.ErrorIs(t, err, game.ErrNotYourTurn)

	word := firstLetter(st.Players[0].Hand)
	st, err = m.Play(ctx, id, "Alice", word)
	require.NoError(t, err)
	assert.Equal(t, []string{word}, st.Words())
	assert.Len(t, st.Players[0].Hand, 10)
	assert.Equal(t, 1, st.CurrentPlayerIndex)

	st, err = m.Discard(ctx, id, "Bob", string(st.Players[1].Hand[0]))
	require.NoError(t, err)
	assert.Len(t, st.Players[1].Hand, 10)
	assert.Len(t, st.DiscardPile, 1)
	assert.Equal(t, 0, st.CurrentPlayerIndex)
	assert.Equal(t, int64(4), st.Version)

	res, st, err := m.Challenge(ctx, id, "Bob", word)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, 10, st.Players[1].Score)

	got, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, st, got)
	assert.Equal(t, 52, tileCount(got))
}

func TestJoinBoundsAndExitCompaction(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, store.NewMemoryStore(), game.DefaultRules())

	id, err := m.Create(ctx, "p0")
	require.NoError(t, err)
	for i := 1; i < 4; i++ {
		_, err := m.Join(ctx, id, fmt.Sprintf("p%d", i))
		require.NoError(t, err)
	}
	before, err := m.Get(ctx, id)
	require.NoError(t, err)

	_, err = m.Join(ctx, id, "p4")
	assert.ErrorIs(t, err, game.ErrGameFull)
	after, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	for i := 0; i < 4; i++ {
		deleted, _, err := m.Exit(ctx, id, fmt.Sprintf("p%d", i))
		require.NoError(t, err)
		assert.Equal(t, i == 3, deleted)
	}
	_, err = m.Get(ctx, id)
	assert.ErrorIs(t, err, game.ErrGameNotFound)

	_, _, err = m.Exit(ctx, id, "p0")
	assert.ErrorIs(t, err, game.ErrGameNotFound)
}

// Every concurrent mutation must see all earlier ones: committed versions form an
// unbroken sequence and no discard is lost.
func TestConcurrentMutationsSameGame(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, store.NewMemoryStore(), relaxed())

	id, err := m.Create(ctx, "p0")
	require.NoError(t, err)
	names := []string{"p0", "p1", "p2", "p3"}
	for _, n := range names[1:] {
		_, err := m.Join(ctx, id, n)
		require.NoError(t, err)
	}

	const perPlayer = 5
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		versions = map[int64]bool{}
	)
	for _, name := range names {
		for i := 0; i < perPlayer; i++ {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				st, err := m.Mutate(ctx, id, func(_ context.Context, st *game.State) (bool, error) {
					p := st.Players[st.PlayerIndex(name)]
					return false, m.cfg.Engine.Discard(st, name, string(p.Hand[0]))
				})
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				versions[st.Version] = true
				mu.Unlock()
			}(name)
		}
	}
	wg.Wait()

	total := len(names) * perPlayer
	require.Len(t, versions, total)
	for v := int64(5); v < int64(5+total); v++ {
		assert.True(t, versions[v], "missing version %d", v)
	}

	st, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, st.DiscardPile, total)
	assert.Equal(t, 52, tileCount(st))
}

func TestConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, store.NewMemoryStore(), game.DefaultRules())

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]bool{}
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := m.Create(ctx, fmt.Sprintf("user%d", i))
			if assert.NoError(t, err) {
				mu.Lock()
				ids[id] = true
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, ids, 20)
}

func TestMutationsRunInSubmissionOrder(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, store.NewMemoryStore(), relaxed())
	id, err := m.Create(ctx, "Alice")
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = m.Mutate(ctx, id, func(context.Context, *game.State) (bool, error) {
			close(started)
			<-release
			return false, nil
		})
	}()
	<-started

	queued := func(n int) func() bool {
		return func() bool {
			m.mu.Lock()
			defer m.mu.Unlock()
			a := m.actors[id]
			return a != nil && len(a.reqs) == n
		}
	}

	var (
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Mutate(ctx, id, func(context.Context, *game.State) (bool, error) {
				order = append(order, i)
				return false, nil
			})
			assert.NoError(t, err)
		}(i)
		require.Eventually(t, queued(i+1), time.Second, time.Millisecond)
	}
	close(release)
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestDifferentGamesDoNotBlockEachOther(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, store.NewMemoryStore(), game.DefaultRules())
	slow, err := m.Create(ctx, "Alice")
	require.NoError(t, err)
	fast, err := m.Create(ctx, "Bob")
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = m.Mutate(ctx, slow, func(context.Context, *game.State) (bool, error) {
			close(started)
			<-release
			return false, nil
		})
	}()
	<-started
	defer close(release)

	done := make(chan error, 1)
	go func() {
		_, err := m.Join(ctx, fast, "Carol")
		done <- err
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("mutation on another game was blocked")
	}
}

func TestStorageFailureIsRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := store.NewMockStore(ctrl)
	m := newManager(t, mockStore, game.DefaultRules())

	base, err := m.cfg.Engine.NewState("g1", "Alice", rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	base.Version = 1

	mockStore.EXPECT().Load(gomock.Any(), "g1").
		DoAndReturn(func(context.Context, string) (*game.State, error) { return base.Clone(), nil }).
		Times(3)
	gomock.InOrder(
		mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk busy")),
		mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(store.ErrConflict),
		mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil),
	)

	st, err := m.Join(context.Background(), "g1", "Bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Version)
	assert.Len(t, st.Players, 2)
}

func TestStorageFailureExhaustedHasNoEffect(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := store.NewMockStore(ctrl)
	m := newManager(t, mockStore, game.DefaultRules())

	base, err := m.cfg.Engine.NewState("g1", "Alice", rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	base.Version = 1

	mockStore.EXPECT().Load(gomock.Any(), "g1").
		DoAndReturn(func(context.Context, string) (*game.State, error) { return base.Clone(), nil }).
		AnyTimes()
	mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk gone")).Times(3)

	updates, cancel := m.Subscribe("g1")
	defer cancel()

	_, err = m.Join(context.Background(), "g1", "Bob")
	assert.ErrorIs(t, err, game.ErrStorageFailure)

	select {
	case st := <-updates:
		t.Fatalf("uncommitted state published: version %d", st.Version)
	default:
	}
	assert.Len(t, base.Players, 1)
}

func TestRuleViolationIsNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := store.NewMockStore(ctrl)
	m := newManager(t, mockStore, game.DefaultRules())

	base, err := m.cfg.Engine.NewState("g1", "Alice", rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	base.Version = 1

	mockStore.EXPECT().Load(gomock.Any(), "g1").Return(base.Clone(), nil).Times(1)

	_, err = m.Play(context.Background(), "g1", "Zed", "CAT")
	assert.ErrorIs(t, err, game.ErrPlayerNotFound)
}

func TestLoadFailureIsStorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := store.NewMockStore(ctrl)
	m := newManager(t, mockStore, game.DefaultRules())

	mockStore.EXPECT().Load(gomock.Any(), "g1").Return(nil, errors.New("io timeout")).Times(4)

	_, err := m.Join(context.Background(), "g1", "Bob")
	assert.ErrorIs(t, err, game.ErrStorageFailure)
	_, err = m.Get(context.Background(), "g1")
	assert.ErrorIs(t, err, game.ErrStorageFailure)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, store.NewMemoryStore(), game.DefaultRules())
	id, err := m.Create(ctx, "Alice")
	require.NoError(t, err)

	updates, cancel := m.Subscribe(id)
	defer cancel()

	_, err = m.Join(ctx, id, "Bob")
	require.NoError(t, err)
	st := <-updates
	assert.Equal(t, int64(2), st.Version)
	assert.Len(t, st.Players, 2)

	// Only the latest state is kept for a slow reader.
	_, err = m.Join(ctx, id, "Carol")
	require.NoError(t, err)
	_, _, err = m.Exit(ctx, id, "Carol")
	require.NoError(t, err)
	st = <-updates
	assert.Equal(t, int64(4), st.Version)

	_, _, err = m.Exit(ctx, id, "Alice")
	require.NoError(t, err)
	<-updates
	_, _, err = m.Exit(ctx, id, "Bob")
	require.NoError(t, err)
	_, ok := <-updates
	assert.False(t, ok, "channel closes when the game is deleted")
}

func TestCancelledRequestHasNoEffect(t *testing.T) {
	m := newManager(t, store.NewMemoryStore(), game.DefaultRules())
	id, err := m.Create(context.Background(), "Alice")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Join(ctx, id, "Bob")
	assert.ErrorIs(t, err, context.Canceled)

	st, err := m.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, st.Players, 1)
}

func TestCancelWhileQueuedReturnsPromptly(t *testing.T) {
	m := newManager(t, store.NewMemoryStore(), game.DefaultRules())
	id, err := m.Create(context.Background(), "Alice")
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = m.Mutate(context.Background(), id, func(context.Context, *game.State) (bool, error) {
			close(started)
			<-release
			return false, nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.Join(ctx, id, "Bob")
		done <- err
	}()
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		a := m.actors[id]
		return a != nil && len(a.reqs) == 1
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled request stayed blocked behind the running mutation")
	}

	close(release)
	st, err := m.Join(context.Background(), id, "Carol")
	require.NoError(t, err)
	assert.Len(t, st.Players, 2, "cancelled join had no effect")
	assert.Equal(t, -1, st.PlayerIndex("Bob"))
}

func TestIdleActorsRetire(t *testing.T) {
	m := New(Config{
		Store:       store.NewMemoryStore(),
		Engine:      game.NewEngine(game.DefaultRules(), words.Static(true)),
		IdleTimeout: 10 * time.Millisecond,
		Logger:      zerolog.Nop(),
	})
	defer m.Close()

	ctx := context.Background()
	id, err := m.Create(ctx, "Alice")
	require.NoError(t, err)
	_, err = m.Join(ctx, id, "Bob")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.actors) == 0
	}, time.Second, 5*time.Millisecond)

	st, err := m.Join(ctx, id, "Carol")
	require.NoError(t, err)
	assert.Len(t, st.Players, 3)
}

func TestClose(t *testing.T) {
	m := New(Config{
		Store:  store.NewMemoryStore(),
		Engine: game.NewEngine(game.DefaultRules(), words.Static(true)),
		Logger: zerolog.Nop(),
	})
	id, err := m.Create(context.Background(), "Alice")
	require.NoError(t, err)
	_, err = m.Join(context.Background(), id, "Bob")
	require.NoError(t, err)

	m.Close()
	m.Close()
	_, err = m.Join(context.Background(), id, "Carol")
	assert.ErrorIs(t, err, ErrClosed)
}
