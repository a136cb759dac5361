// internal/store/memory.go
//
// In-memory session store keyed by userId.
// This is the live state behind the HTTP API: one active game per player,
// replaced wholesale when that player starts a new game.
//
// Characteristics:
//   - Concurrency-safe: an RWMutex guards the map, and each record has its own
//     mutex so moves on one session are applied one at a time.
//   - Subscribers receive a Snapshot after every successful Update or Save.
//     Delivery is latest-wins: a slow reader skips intermediate snapshots.
//   - Bounded: Prune drops idle and finished sessions, and Save evicts the
//     least recently active session once the store is full.
//   - State is lost when the process restarts; finished games are persisted
//     by the caller through the storage package.

package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robalobadob/rgb-alchemy/internal/game"
)

// ErrNotFound is returned for unknown user IDs.
var ErrNotFound = errors.New("store: session not found")

// Meta describes a session beyond the engine state.
type Meta struct {
	GameID    string    // Row ID in the games table.
	Daily     string    // Date key for daily games, empty otherwise.
	AccountID string    // Logged-in account that started the game, if any.
	StartedAt time.Time // When the session was created.
}

// Record pairs a live session with its metadata.
type Record struct {
	Meta
	Session *game.Session
}

// Store defines the session persistence interface used by the HTTP layer.
type Store interface {
	// Save installs rec as the active session for its user, replacing any other.
	Save(ctx context.Context, rec *Record) error

	// Get returns the metadata and a snapshot of a user's session.
	Get(ctx context.Context, userID string) (Meta, game.Snapshot, error)

	// Update runs fn with exclusive access to the user's session and returns
	// the snapshot taken afterwards. fn's error is returned as-is; the
	// snapshot is still valid and subscribers are only notified on success.
	Update(ctx context.Context, userID string, fn func(*Record) error) (game.Snapshot, error)

	// Subscribe streams snapshots for userID until cancel is called.
	Subscribe(userID string) (<-chan game.Snapshot, func())

	// Prune removes sessions untouched for longer than idle, and finished
	// sessions untouched for longer than endedIdle. It returns how many were
	// removed. A zero duration disables that rule.
	Prune(idle, endedIdle time.Duration) int

	// Len returns the number of active sessions.
	Len() int
}

// DefaultMaxSessions caps the live sessions held by NewMemoryStore.
const DefaultMaxSessions = 10000

// Option configures the memory store.
type Option func(*memory)

// WithMaxSessions caps the number of live sessions. n <= 0 means no cap.
func WithMaxSessions(n int) Option {
	return func(m *memory) { m.max = n }
}

// withClock replaces time.Now; used by tests.
func withClock(now func() time.Time) Option {
	return func(m *memory) { m.now = now }
}

type entry struct {
	mu  sync.Mutex
	rec *Record

	// Readable without mu so the map lock never waits on a session lock.
	lastActive atomic.Int64 // unix nanos
	ended      atomic.Bool
}

func (e *entry) touch(now time.Time) {
	e.lastActive.Store(now.UnixNano())
	e.ended.Store(e.rec.Session.Ended())
}

type memory struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	subs     map[string]map[chan game.Snapshot]struct{}
	max      int
	now      func() time.Time
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore(opts ...Option) Store {
	m := &memory{
		sessions: make(map[string]*entry),
		subs:     make(map[string]map[chan game.Snapshot]struct{}),
		max:      DefaultMaxSessions,
		now:      time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *memory) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.Session == nil {
		return errors.New("store: nil session")
	}
	uid := rec.Session.UserID()
	snap := rec.Session.Snapshot()

	e := &entry{rec: rec}
	e.touch(m.now())

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, replacing := m.sessions[uid]; !replacing && m.max > 0 && len(m.sessions) >= m.max {
		m.evictOldestLocked()
	}
	m.sessions[uid] = e
	m.publishLocked(uid, snap)
	return nil
}

func (m *memory) Get(ctx context.Context, userID string) (Meta, game.Snapshot, error) {
	e, ok := m.lookup(userID)
	if !ok {
		return Meta{}, game.Snapshot{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch(m.now())
	return e.rec.Meta, e.rec.Session.Snapshot(), nil
}

func (m *memory) Update(ctx context.Context, userID string, fn func(*Record) error) (game.Snapshot, error) {
	e, ok := m.lookup(userID)
	if !ok {
		return game.Snapshot{}, ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return game.Snapshot{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	err := fn(e.rec)
	snap := e.rec.Session.Snapshot()
	e.touch(m.now())

	// Publish before releasing e.mu so subscribers see moves in order.
	// Nothing holds m.mu while waiting for an entry lock.
	if err == nil {
		m.mu.RLock()
		if m.sessions[userID] == e {
			m.publishLocked(userID, snap)
		}
		m.mu.RUnlock()
	}
	return snap, err
}

func (m *memory) Subscribe(userID string) (<-chan game.Snapshot, func()) {
	ch := make(chan game.Snapshot, 1)
	m.mu.Lock()
	if m.subs[userID] == nil {
		m.subs[userID] = make(map[chan game.Snapshot]struct{})
	}
	m.subs[userID][ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs[userID], ch)
			if len(m.subs[userID]) == 0 {
				delete(m.subs, userID)
			}
			close(ch)
		})
	}
	return ch, cancel
}

func (m *memory) Prune(idle, endedIdle time.Duration) int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for uid, e := range m.sessions {
		age := now.Sub(time.Unix(0, e.lastActive.Load()))
		if (idle > 0 && age > idle) || (endedIdle > 0 && e.ended.Load() && age > endedIdle) {
			delete(m.sessions, uid)
			removed++
		}
	}
	return removed
}

// evictOldestLocked drops the least recently active session, preferring
// finished ones. Caller holds m.mu for writing.
func (m *memory) evictOldestLocked() {
	var (
		victim      string
		victimAt    int64
		victimEnded bool
		found       bool
	)
	for uid, e := range m.sessions {
		at, ended := e.lastActive.Load(), e.ended.Load()
		better := !found ||
			(ended && !victimEnded) ||
			(ended == victimEnded && at < victimAt)
		if better {
			victim, victimAt, victimEnded, found = uid, at, ended, true
		}
	}
	if found {
		delete(m.sessions, victim)
	}
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *memory) lookup(userID string) (*entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[userID]
	return e, ok
}

// publishLocked delivers snap to every subscriber of userID, replacing a
// pending undelivered snapshot. Caller holds m.mu (read or write).
func (m *memory) publishLocked(userID string, snap game.Snapshot) {
	for ch := range m.subs[userID] {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
