package session

import (
	"sync"

	"github.com/robalobadob/wordcards/internal/game"
)

// subscriber receives committed states for one game. The channel holds at most one
// state; a slow reader only ever misses intermediate versions, never the latest.
type subscriber struct {
	ch   chan *game.State
	once sync.Once
}

func (s *subscriber) close() { s.once.Do(func() { close(s.ch) }) }

// offer replaces any unread state with st. Never blocks.
func (s *subscriber) offer(st *game.State) {
	for {
		select {
		case s.ch <- st:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Subscribe returns a channel that receives every state committed for id from now
// on (latest wins), and a cancel func. The channel is closed by cancel or when the
// game is deleted or the Manager closes.
func (m *Manager) Subscribe(id string) (<-chan *game.State, func()) {
	sub := &subscriber{ch: make(chan *game.State, 1)}

	m.subsMu.Lock()
	if m.subsClosed {
		m.subsMu.Unlock()
		sub.close()
		return sub.ch, func() {}
	}
	set, ok := m.subs[id]
	if !ok {
		set = make(map[*subscriber]struct{})
		m.subs[id] = set
	}
	set[sub] = struct{}{}
	m.subsMu.Unlock()

	cancel := func() {
		m.subsMu.Lock()
		if set, ok := m.subs[id]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(m.subs, id)
			}
		}
		m.subsMu.Unlock()
		sub.close()
	}
	return sub.ch, cancel
}

// publish hands each subscriber of id its own copy of st.
func (m *Manager) publish(id string, st *game.State) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for sub := range m.subs[id] {
		sub.offer(st.Clone())
	}
}

func (m *Manager) closeSubscribers(id string) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for sub := range m.subs[id] {
		sub.close()
	}
	delete(m.subs, id)
}
