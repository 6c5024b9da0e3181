// Package store keeps the live register sessions, keyed by session id.
package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/toko-sayur-pos/internal/obs"
	"github.com/fairyhunter13/toko-sayur-pos/internal/pos"
	"github.com/fairyhunter13/toko-sayur-pos/internal/queue"
)

var (
	// ErrNotFound is returned for unknown or evicted session ids.
	ErrNotFound = errors.New("session not found")
	// ErrLimit is returned when the registry is full.
	ErrLimit = errors.New("session limit reached")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store closed")
)

type sessionState struct {
	loop     *queue.Loop
	lastSeen time.Time
}

// Options configure a Store.
type Options struct {
	MaxSessions int
	MailboxSize int
	Now         func() time.Time
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	Active  int    `json:"sessions_active"`
	Created uint64 `json:"sessions_created"`
	Evicted uint64 `json:"sessions_evicted"`
	queue.CounterValues
}

// Store owns every session loop. Loops are stopped when their session is
// deleted, evicted or the store is closed.
type Store struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     Options
	counters *queue.Counters

	mu     sync.RWMutex
	m      map[string]sessionState
	closed bool

	created atomic.Uint64
	evicted atomic.Uint64
}

// New returns an empty Store.
func New(opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		ctx:      ctx,
		cancel:   cancel,
		opts:     opts,
		counters: &queue.Counters{},
		m:        make(map[string]sessionState),
	}
}

// Create starts a new seeded session.
func (s *Store) Create() (*queue.Loop, error) {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.opts.MaxSessions > 0 && len(s.m) >= s.opts.MaxSessions {
		return nil, ErrLimit
	}
	l := queue.NewLoop(s.ctx, id, pos.NewState(), queue.Options{
		MailboxSize: s.opts.MailboxSize,
		Counters:    s.counters,
	})
	s.m[id] = sessionState{loop: l, lastSeen: s.opts.Now()}
	s.created.Add(1)
	obs.Logger.Info("session_created", "session_id", id, "sessions_active", len(s.m))
	return l, nil
}

// Get returns the session and marks it as used.
func (s *Store) Get(id string) (*queue.Loop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	st.lastSeen = s.opts.Now()
	s.m[id] = st
	return st.loop, nil
}

// Delete stops and forgets a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	st, ok := s.m[id]
	if ok {
		delete(s.m, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	st.loop.Stop()
	obs.Logger.Info("session_deleted", "session_id", id)
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Sweep stops sessions idle for longer than ttl and returns how many were
// evicted.
func (s *Store) Sweep(ttl time.Duration) int {
	cutoff := s.opts.Now().Add(-ttl)
	var stale []sessionState
	var ids []string
	s.mu.Lock()
	for id, st := range s.m {
		if st.lastSeen.Before(cutoff) {
			stale = append(stale, st)
			ids = append(ids, id)
			delete(s.m, id)
		}
	}
	active := len(s.m)
	s.mu.Unlock()

	for i, st := range stale {
		st.loop.Stop()
		obs.Logger.Info("session_evicted", "session_id", ids[i])
	}
	if n := len(stale); n > 0 {
		s.evicted.Add(uint64(n))
		obs.Logger.Info("sessions_swept", "evicted", n, "sessions_active", active)
	}
	return len(stale)
}

// RunSweeper evicts idle sessions every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, interval, ttl time.Duration) error {
	if interval <= 0 || ttl <= 0 {
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Sweep(ttl)
		}
	}
}

// Drain closes intake on every session and waits for admitted actions to
// finish, until ctx is done.
func (s *Store) Drain(ctx context.Context) bool {
	s.mu.RLock()
	loops := make([]*queue.Loop, 0, len(s.m))
	for _, st := range s.m {
		loops = append(loops, st.loop)
	}
	s.mu.RUnlock()

	for _, l := range loops {
		l.CloseIntake()
	}
	drained := true
	for _, l := range loops {
		if !l.DrainUntil(ctx) {
			drained = false
		}
	}
	return drained
}

// Close stops every session. Further Creates fail with ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	loops := make([]*queue.Loop, 0, len(s.m))
	for id, st := range s.m {
		loops = append(loops, st.loop)
		delete(s.m, id)
	}
	s.mu.Unlock()

	s.cancel()
	for _, l := range loops {
		<-l.Done()
	}
}

// Stats returns registry and action counters.
func (s *Store) Stats() Stats {
	return Stats{
		Active:        s.Len(),
		Created:       s.created.Load(),
		Evicted:       s.evicted.Load(),
		CounterValues: s.counters.Values(),
	}
}
