package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/fairyhunter13/toko-sayur-pos/internal/catalog"
	"github.com/fairyhunter13/toko-sayur-pos/internal/pos"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestLoop(t *testing.T) (*Loop, *Counters) {
	t.Helper()
	c := &Counters{}
	l := NewLoop(context.Background(), "s-test", pos.NewState(), Options{MailboxSize: 4, Counters: c})
	t.Cleanup(l.Stop)
	return l, c
}

func TestLoopSubmitAppliesAndVersions(t *testing.T) {
	l, c := newTestLoop(t)
	ctx := context.Background()

	if v := l.Snapshot().Version; v != 0 {
		t.Fatalf("expected seeded version 0, got %d", v)
	}
	rep, err := l.Submit(ctx, pos.AddToCart(1, 5))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rep.Result.Outcome != pos.Applied {
		t.Fatalf("expected applied, got %s", rep.Result.Outcome)
	}
	if rep.Snapshot.Version != 1 || rep.Snapshot.Products[0].Stock != 45 || len(rep.Snapshot.Cart) != 1 {
		t.Fatalf("unexpected snapshot: %+v", rep.Snapshot)
	}
	if got := l.Snapshot(); got.Version != 1 {
		t.Fatalf("expected committed version 1, got %d", got.Version)
	}

	rep, err = l.Submit(ctx, pos.AddToCart(1, 100))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rep.Result.Outcome != pos.InsufficientStock {
		t.Fatalf("expected insufficient_stock, got %s", rep.Result.Outcome)
	}
	if rep.Snapshot.Version != 1 {
		t.Fatalf("rejection must not bump version, got %d", rep.Snapshot.Version)
	}

	rep, _ = l.Submit(ctx, pos.RemoveFromCart(3))
	if rep.Result.Outcome != pos.Unchanged {
		t.Fatalf("expected unchanged, got %s", rep.Result.Outcome)
	}

	v := c.Values()
	if v.Applied != 1 || v.Rejected != 1 || v.Unchanged != 1 {
		t.Fatalf("unexpected counters: %+v", v)
	}
}

func TestLoopCheckoutReceipt(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("WIB", 7*3600))
	c := &Counters{}
	l := NewLoop(context.Background(), "s-receipt", pos.NewState(), Options{Counters: c, Now: func() time.Time { return fixed }})
	defer l.Stop()
	ctx := context.Background()

	if _, err := l.Submit(ctx, pos.AddToCart(1, 5)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := l.Submit(ctx, pos.AddToCart(2, 2)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	rep, err := l.Checkout(ctx, "")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if rep.Receipt == nil {
		t.Fatalf("expected receipt")
	}
	if rep.Receipt.Payment != catalog.PaymentCash {
		t.Fatalf("expected default payment Cash, got %q", rep.Receipt.Payment)
	}
	if rep.Receipt.Total.IntPart() != 23000 || len(rep.Receipt.Lines) != 2 {
		t.Fatalf("unexpected receipt: %+v", rep.Receipt)
	}
	if !rep.Receipt.SettledAt.Equal(fixed) || rep.Receipt.SettledAt.Location() != time.UTC {
		t.Fatalf("expected UTC settle time, got %v", rep.Receipt.SettledAt)
	}
	if rep.Receipt.ID == "" {
		t.Fatalf("expected receipt id")
	}
	if rep.Snapshot.Counters.Customers != 29 || len(rep.Snapshot.Cart) != 0 {
		t.Fatalf("unexpected snapshot after checkout: %+v", rep.Snapshot)
	}

	rep, err = l.Checkout(ctx, catalog.PaymentQRIS)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if rep.Result.Outcome != pos.Unchanged || rep.Receipt != nil {
		t.Fatalf("expected empty checkout to be a no-op, got %s", rep.Result.Outcome)
	}
	if c.Values().Checkouts != 1 {
		t.Fatalf("expected 1 checkout, got %d", c.Values().Checkouts)
	}
}

func TestLoopSerializesConcurrentSubmitters(t *testing.T) {
	l, c := newTestLoop(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if _, err := l.Submit(ctx, pos.AddToCart(1, 1)); err != nil {
					t.Errorf("submit: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	snap := l.Snapshot()
	if snap.Products[0].Stock != 0 {
		t.Fatalf("expected tomat stock 0, got %d", snap.Products[0].Stock)
	}
	if len(snap.Cart) != 1 || snap.Cart[0].Quantity != 50 {
		t.Fatalf("expected 50 reserved, got %+v", snap.Cart)
	}
	v := c.Values()
	if v.Applied != 50 || v.Rejected != 50 {
		t.Fatalf("expected 50 applied and 50 rejected, got %+v", v)
	}
	if snap.Version != 50 {
		t.Fatalf("expected version 50, got %d", snap.Version)
	}
}

func TestLoopShutdownIntake(t *testing.T) {
	l, _ := newTestLoop(t)
	l.CloseIntake()
	if !l.IsShuttingDown() {
		t.Fatalf("expected shutting down true")
	}
	_, err := l.Submit(context.Background(), pos.AddToCart(1, 1))
	if !errors.Is(err, ErrDraining) || !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrDraining, got %v", err)
	}
	select {
	case <-l.Done():
		t.Fatalf("closing intake must not stop the worker")
	default:
	}
}

func TestLoopStopped(t *testing.T) {
	l := NewLoop(context.Background(), "s-stop", pos.NewState(), Options{})
	l.Stop()
	l.Stop()
	select {
	case <-l.Done():
	default:
		t.Fatalf("expected done closed")
	}
	_, err := l.Submit(context.Background(), pos.Checkout())
	if !errors.Is(err, ErrClosed) || errors.Is(err, ErrDraining) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestLoopParentCancelStopsWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop(ctx, "s-parent", pos.NewState(), Options{})
	cancel()
	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop")
	}
	if _, err := l.Submit(context.Background(), pos.AddToCart(1, 1)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestLoopSubmitHonoursContext(t *testing.T) {
	l, _ := newTestLoop(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// either the send or ctx.Done can win; a cancelled caller never blocks
	_, err := l.Submit(ctx, pos.AddToCart(1, 1))
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoopDrain(t *testing.T) {
	l, _ := newTestLoop(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = l.Submit(ctx, pos.UpdateCartQuantity(1+i%5, i%3))
		}(i)
	}
	wg.Wait()
	ctxDrain, cancelDrain := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelDrain()
	if ok := l.DrainUntil(ctxDrain); !ok {
		t.Fatalf("expected drain true")
	}
	enq, proc := l.Metrics()
	if enq != 100 || proc != 100 {
		t.Fatalf("expected 100/100, got %d/%d", enq, proc)
	}
}

func TestLoopSubscribe(t *testing.T) {
	l, _ := newTestLoop(t)
	ch, cancel := l.Subscribe()
	defer cancel()

	first := <-ch
	if first.Version != 0 {
		t.Fatalf("expected initial version 0, got %d", first.Version)
	}
	if _, err := l.Submit(context.Background(), pos.AddToCart(2, 3)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case s := <-ch:
		if s.Version != 1 || s.Cart[0].Quantity != 3 {
			t.Fatalf("unexpected pushed snapshot: %+v", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot pushed")
	}

	// rejected actions publish nothing
	if _, err := l.Submit(context.Background(), pos.AddToCart(2, 999)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case s := <-ch:
		t.Fatalf("unexpected snapshot after rejection: v%d", s.Version)
	default:
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after cancel")
	}
}

func TestLoopSubscribeSlowReaderGetsLatest(t *testing.T) {
	l, _ := newTestLoop(t)
	ch, cancel := l.Subscribe()
	defer cancel()
	<-ch
	for i := 0; i < 3; i++ {
		if _, err := l.Submit(context.Background(), pos.AddToCart(3, 1)); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	s := <-ch
	if s.Version != 3 {
		t.Fatalf("expected latest version 3, got %d", s.Version)
	}
}

func TestLoopStopClosesSubscribers(t *testing.T) {
	l := NewLoop(context.Background(), "s-subs", pos.NewState(), Options{})
	ch, cancel := l.Subscribe()
	<-ch
	l.Stop()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed on stop")
	}
	cancel()

	late, _ := l.Subscribe()
	if _, ok := <-late; ok {
		t.Fatalf("expected closed channel from stopped loop")
	}
}
