// internal/session/manager.go
//
// Session manager: the single choke point through which every game mutation runs.
//
// Responsibilities:
//   - Map game ids to states held in a store.Store.
//   - Serialize mutations per game on a dedicated actor goroutine (FIFO), so every
//     mutation sees all earlier ones and no update is lost.
//   - Apply each operation to a private copy and publish it only after a successful
//     Save, so readers never see a partial mutation.
//   - Retry storage failures and version conflicts a bounded number of times.
//
// Notes:
//   - Games never block each other; each has its own actor.
//   - An actor exits after IdleTimeout without work and is recreated on demand.

package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/robalobadob/wordcards/internal/game"
	"github.com/robalobadob/wordcards/internal/store"
)

// ErrClosed is returned for requests made after Close.
var ErrClosed = errors.New("session manager closed")

// Op mutates st in place. Returning deleted=true removes the game instead of saving it.
type Op func(ctx context.Context, st *game.State) (deleted bool, err error)

// Config wires a Manager. Store and Engine are required.
type Config struct {
	Store         store.Store
	Engine        *game.Engine
	RetryAttempts int           // Attempts per mutation; default 3.
	RetryBackoff  time.Duration // Linear backoff unit between attempts; default 50ms.
	IdleTimeout   time.Duration // Actor lifetime without work; default 5m.
	QueueSize     int           // Per-game request buffer; default 64.
	Rand          *rand.Rand    // Deck shuffling; default time-seeded.
	Logger        zerolog.Logger
	NewID         func() string    // Game ids; default uuid.NewString.
	Now           func() time.Time // Default time.Now.
}

func (c Config) withDefaults() Config {
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 50 * time.Millisecond
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Manager owns every live game's mutation path.
type Manager struct {
	cfg Config
	log zerolog.Logger

	mu     sync.Mutex        // guards actors, closed and actor.pending
	actors map[string]*actor // keyed by game id
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup

	rngMu sync.Mutex // *rand.Rand is not safe for concurrent use

	subsMu     sync.Mutex
	subs       map[string]map[*subscriber]struct{}
	subsClosed bool
}

type actor struct {
	id      string
	reqs    chan request
	pending int // requests counted in but not yet answered
}

type request struct {
	ctx   context.Context
	op    Op
	reply chan result
}

type result struct {
	st  *game.State
	err error
}

// New constructs a Manager from cfg.
func New(cfg Config) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:    cfg,
		log:    cfg.Logger.With().Str("component", "session").Logger(),
		actors: make(map[string]*actor),
		done:   make(chan struct{}),
		subs:   make(map[string]map[*subscriber]struct{}),
	}
}

// Create starts a new game with playerName as its first player and returns its id.
func (m *Manager) Create(ctx context.Context, playerName string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= m.cfg.RetryAttempts; attempt++ {
		id := m.cfg.NewID()
		m.rngMu.Lock()
		st, err := m.cfg.Engine.NewState(id, playerName, m.cfg.Rand)
		m.rngMu.Unlock()
		if err != nil {
			return "", err
		}
		now := m.cfg.Now().UTC()
		st.Version, st.CreatedAt, st.UpdatedAt = 1, now, now

		if lastErr = m.cfg.Store.Save(ctx, st); lastErr == nil {
			m.log.Info().Str("gameId", id).Str("player", st.Players[0].Name).Msg("game created")
			return id, nil
		}
		m.log.Warn().Err(lastErr).Str("gameId", id).Int("attempt", attempt).Msg("create game")
		if err := m.backoff(ctx, attempt); err != nil {
			return "", fmt.Errorf("%w: %v", game.ErrStorageFailure, err)
		}
	}
	return "", fmt.Errorf("%w: %v", game.ErrStorageFailure, lastErr)
}

// Get returns the latest committed state of id.
func (m *Manager) Get(ctx context.Context, id string) (*game.State, error) {
	st, err := m.cfg.Store.Load(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, game.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", game.ErrStorageFailure, err)
	}
	return st, nil
}

// Mutate runs op against game id after every mutation submitted before it.
// It returns the committed state, or nil when op deleted the game.
func (m *Manager) Mutate(ctx context.Context, id string, op Op) (*game.State, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	a, ok := m.actors[id]
	if !ok {
		a = &actor{id: id, reqs: make(chan request, m.cfg.QueueSize)}
		m.actors[id] = a
		m.wg.Add(1)
		go m.run(a)
	}
	a.pending++
	m.mu.Unlock()

	req := request{ctx: ctx, op: op, reply: make(chan result, 1)}
	select {
	case a.reqs <- req:
	case <-ctx.Done():
		m.finish(a)
		return nil, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res.st, res.err
	case <-ctx.Done():
		// The actor still answers into the buffered reply and rejects the
		// request if it has not started.
		return nil, ctx.Err()
	}
}

// Close stops accepting requests, answers queued ones with ErrClosed, waits
// for every actor to exit, and closes all subscriber channels.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.done)
	m.mu.Unlock()
	m.wg.Wait()

	m.subsMu.Lock()
	m.subsClosed = true
	for id, set := range m.subs {
		for sub := range set {
			sub.close()
		}
		delete(m.subs, id)
	}
	m.subsMu.Unlock()
}

// run is the actor loop for one game.
func (m *Manager) run(a *actor) {
	defer m.wg.Done()
	idle := time.NewTimer(m.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case req := <-a.reqs:
			req.reply <- m.apply(a.id, req)
			m.finish(a)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(m.cfg.IdleTimeout)

		case <-idle.C:
			if m.retire(a) {
				return
			}
			idle.Reset(m.cfg.IdleTimeout)

		case <-m.done:
			// pending can also drop without a send when a caller gives up while
			// the queue is full, so re-check instead of blocking on reqs.
			for !m.retire(a) {
				select {
				case req := <-a.reqs:
					req.reply <- result{err: ErrClosed}
					m.finish(a)
				case <-time.After(10 * time.Millisecond):
				}
			}
			return
		}
	}
}

func (m *Manager) finish(a *actor) {
	m.mu.Lock()
	a.pending--
	m.mu.Unlock()
}

// retire removes a from the actor map when nothing is pending for it.
func (m *Manager) retire(a *actor) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.pending > 0 {
		return false
	}
	if m.actors[a.id] == a {
		delete(m.actors, a.id)
	}
	return true
}

// apply runs one request with bounded retries on storage failures.
func (m *Manager) apply(id string, req request) result {
	if err := req.ctx.Err(); err != nil {
		return result{err: err}
	}
	var lastErr error
	for attempt := 1; attempt <= m.cfg.RetryAttempts; attempt++ {
		st, retry, err := m.attempt(req.ctx, id, req.op)
		if !retry {
			return result{st: st, err: err}
		}
		lastErr = err
		m.log.Warn().Err(err).Str("gameId", id).Int("attempt", attempt).Msg("mutation not committed")
		if err := m.backoff(req.ctx, attempt); err != nil {
			break
		}
	}
	return result{err: fmt.Errorf("%w: %v", game.ErrStorageFailure, lastErr)}
}

// attempt performs one load → apply → save cycle. retry reports a storage-level
// failure after which nothing was committed.
func (m *Manager) attempt(ctx context.Context, id string, op Op) (st *game.State, retry bool, err error) {
	cur, err := m.cfg.Store.Load(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, game.ErrGameNotFound
	}
	if err != nil {
		return nil, true, err
	}

	next := cur.Clone()
	deleted, err := op(ctx, next)
	if err != nil {
		return nil, false, err
	}

	if deleted {
		if err := m.cfg.Store.Delete(ctx, id); err != nil {
			return nil, true, err
		}
		m.log.Info().Str("gameId", id).Msg("game deleted")
		m.closeSubscribers(id)
		return nil, false, nil
	}

	if err := m.cfg.Engine.Check(next); err != nil {
		m.log.Error().Err(err).Str("gameId", id).Msg("rejected mutation")
		return nil, false, err
	}
	next.Version = cur.Version + 1
	next.UpdatedAt = m.cfg.Now().UTC()

	err = m.cfg.Store.Save(ctx, next)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, game.ErrGameNotFound
	}
	if err != nil {
		return nil, true, err
	}
	m.publish(id, next)
	return next.Clone(), false, nil
}

// backoff sleeps attempt*RetryBackoff unless ctx ends first.
func (m *Manager) backoff(ctx context.Context, attempt int) error {
	if attempt >= m.cfg.RetryAttempts {
		return nil
	}
	t := time.NewTimer(time.Duration(attempt) * m.cfg.RetryBackoff)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
