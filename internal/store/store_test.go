package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/fairyhunter13/toko-sayur-pos/internal/pos"
	"github.com/fairyhunter13/toko-sayur-pos/internal/queue"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestStoreCreateGetDelete(t *testing.T) {
	s := New(Options{})
	defer s.Close()

	l, err := s.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.Get(l.ID())
	if err != nil || got != l {
		t.Fatalf("get: %v", err)
	}
	if err := s.Delete(l.ID()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(l.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(l.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := l.Submit(context.Background(), pos.AddToCart(1, 1)); !errors.Is(err, queue.ErrClosed) {
		t.Fatalf("expected deleted session loop stopped, got %v", err)
	}
}

func TestStoreSessionsAreIsolated(t *testing.T) {
	s := New(Options{})
	defer s.Close()
	a, _ := s.Create()
	b, _ := s.Create()
	if a.ID() == b.ID() {
		t.Fatalf("expected distinct ids")
	}
	if _, err := a.Submit(context.Background(), pos.AddToCart(1, 10)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := b.Snapshot().Products[0].Stock; got != 50 {
		t.Fatalf("expected untouched stock 50 in other session, got %d", got)
	}
}

func TestStoreLimit(t *testing.T) {
	s := New(Options{MaxSessions: 2})
	defer s.Close()
	for i := 0; i < 2; i++ {
		if _, err := s.Create(); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	if _, err := s.Create(); !errors.Is(err, ErrLimit) {
		t.Fatalf("expected ErrLimit, got %v", err)
	}
}

func TestStoreSweepEvictsIdle(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := New(Options{Now: clk.Now})
	defer s.Close()

	idle, _ := s.Create()
	busy, _ := s.Create()
	clk.Advance(20 * time.Minute)
	if _, err := s.Get(busy.ID()); err != nil {
		t.Fatalf("get: %v", err)
	}
	clk.Advance(15 * time.Minute)

	if n := s.Sweep(30 * time.Minute); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if _, err := s.Get(idle.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected idle session evicted, got %v", err)
	}
	if _, err := s.Get(busy.ID()); err != nil {
		t.Fatalf("expected busy session kept: %v", err)
	}
	select {
	case <-idle.Done():
	default:
		t.Fatalf("expected evicted loop stopped")
	}
	st := s.Stats()
	if st.Active != 1 || st.Created != 2 || st.Evicted != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestStoreRunSweeperStops(t *testing.T) {
	s := New(Options{})
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.RunSweeper(ctx, 5*time.Millisecond, time.Hour) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("sweeper: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("sweeper did not stop")
	}
}

func TestStoreConcurrentCreates(t *testing.T) {
	s := New(Options{MaxSessions: 50})
	defer s.Close()
	var wg sync.WaitGroup
	var mu sync.Mutex
	var limited int
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Create(); errors.Is(err, ErrLimit) {
				mu.Lock()
				limited++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if s.Len() != 50 || limited != 50 {
		t.Fatalf("expected 50 sessions and 50 refusals, got %d and %d", s.Len(), limited)
	}
}

func TestStoreDrainAndClose(t *testing.T) {
	s := New(Options{})
	l, _ := s.Create()
	if _, err := l.Submit(context.Background(), pos.AddToCart(2, 1)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if !s.Drain(ctx) {
		t.Fatalf("expected drained")
	}
	if _, err := l.Submit(context.Background(), pos.AddToCart(2, 1)); !errors.Is(err, queue.ErrDraining) {
		t.Fatalf("expected intake closed, got %v", err)
	}
	if _, err := s.Get(l.ID()); err != nil {
		t.Fatalf("drained session must stay registered: %v", err)
	}
	s.Close()
	if _, err := s.Create(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if st := s.Stats(); st.Applied != 1 {
		t.Fatalf("expected 1 applied action, got %+v", st)
	}
}
