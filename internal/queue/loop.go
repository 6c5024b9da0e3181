// Package queue runs each register session as a single worker goroutine
// that admits one action at a time from a bounded mailbox.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/toko-sayur-pos/internal/catalog"
	"github.com/fairyhunter13/toko-sayur-pos/internal/model"
	"github.com/fairyhunter13/toko-sayur-pos/internal/obs"
	"github.com/fairyhunter13/toko-sayur-pos/internal/pos"
)

var (
	// ErrClosed is returned for actions submitted to a stopped loop.
	ErrClosed = errors.New("session closed")
	// ErrDraining is returned once intake is closed while the loop is still
	// finishing admitted actions. It matches ErrClosed under errors.Is.
	ErrDraining = fmt.Errorf("%w: draining", ErrClosed)
)

// Reply is what the worker hands back for a committed or refused action.
type Reply struct {
	Result   pos.Result
	Receipt  *model.Receipt
	Snapshot model.Snapshot
}

type request struct {
	action  pos.Action
	payment string
	reply   chan Reply
}

// Options tune a Loop.
type Options struct {
	MailboxSize int
	Counters    *Counters
	Now         func() time.Time
}

// Loop owns one session's pos.State. Only its worker goroutine reads or
// writes the state; everyone else talks to it through Submit.
type Loop struct {
	id       string
	in       chan request
	counters *Counters
	now      func() time.Time
	seq      Sequencer

	state pos.State // worker goroutine only

	mu   sync.RWMutex
	snap model.Snapshot
	subs map[chan model.Snapshot]struct{}

	shuttingDown atomic.Bool
	enqueued     atomic.Uint64
	processed    atomic.Uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoop starts a worker for the session id beginning at state.
func NewLoop(parent context.Context, id string, state pos.State, opts Options) *Loop {
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = 16
	}
	if opts.Counters == nil {
		opts.Counters = &Counters{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(parent)
	l := &Loop{
		id:       id,
		in:       make(chan request, opts.MailboxSize),
		counters: opts.Counters,
		now:      opts.Now,
		state:    state,
		subs:     make(map[chan model.Snapshot]struct{}),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	l.snap = snapshotOf(id, 0, state)
	go l.run(ctx)
	return l
}

// ID returns the session id.
func (l *Loop) ID() string { return l.id }

// Submit queues a cart action and waits until the worker has applied or
// refused it. A context that ends after admission leaves the action to
// complete in the background.
func (l *Loop) Submit(ctx context.Context, a pos.Action) (Reply, error) {
	return l.submit(ctx, request{action: a})
}

// Checkout settles the cart, recording payment on the receipt.
func (l *Loop) Checkout(ctx context.Context, payment string) (Reply, error) {
	if payment == "" {
		payment = catalog.PaymentCash
	}
	return l.submit(ctx, request{action: pos.Checkout(), payment: payment})
}

func (l *Loop) submit(ctx context.Context, req request) (Reply, error) {
	if l.shuttingDown.Load() {
		select {
		case <-l.done:
			return Reply{}, ErrClosed
		default:
			return Reply{}, ErrDraining
		}
	}
	req.reply = make(chan Reply, 1)
	select {
	case l.in <- req:
		l.enqueued.Add(1)
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	case <-l.done:
		return Reply{}, ErrClosed
	}
	select {
	case rep := <-req.reply:
		return rep, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	case <-l.done:
		select {
		case rep := <-req.reply:
			return rep, nil
		default:
			return Reply{}, ErrClosed
		}
	}
}

// Snapshot returns the latest committed view of the session.
func (l *Loop) Snapshot() model.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

// Subscribe returns a channel that receives the current snapshot and then
// every newer one. Slow readers only ever see the latest version. The
// channel is closed by cancel or when the loop stops.
func (l *Loop) Subscribe() (<-chan model.Snapshot, func()) {
	ch := make(chan model.Snapshot, 1)
	l.mu.Lock()
	select {
	case <-l.done:
		l.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	ch <- l.snap
	l.subs[ch] = struct{}{}
	l.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if _, ok := l.subs[ch]; ok {
				delete(l.subs, ch)
				close(ch)
			}
		})
	}
}

// CloseIntake refuses further actions; queued ones still run.
func (l *Loop) CloseIntake() { l.shuttingDown.Store(true) }

// IsShuttingDown reports whether intake has been closed.
func (l *Loop) IsShuttingDown() bool { return l.shuttingDown.Load() }

// Metrics returns how many actions were admitted and processed.
func (l *Loop) Metrics() (enq, proc uint64) {
	return l.enqueued.Load(), l.processed.Load()
}

// DrainUntil blocks until every admitted action has been processed or ctx
// is done.
func (l *Loop) DrainUntil(ctx context.Context) bool {
	for {
		enq, proc := l.Metrics()
		if enq == proc {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-l.done:
			return false
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Stop ends the worker and waits for it to exit. Actions still in the
// mailbox are dropped and their callers get ErrClosed.
func (l *Loop) Stop() {
	l.shuttingDown.Store(true)
	l.cancel()
	<-l.done
}

// Done is closed once the worker has exited.
func (l *Loop) Done() <-chan struct{} { return l.done }

func (l *Loop) run(ctx context.Context) {
	defer func() {
		l.mu.Lock()
		close(l.done)
		for ch := range l.subs {
			delete(l.subs, ch)
			close(ch)
		}
		l.mu.Unlock()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-l.in:
			rep := l.apply(req)
			l.processed.Add(1)
			req.reply <- rep
		}
	}
}

// apply runs one action to completion against the worker-owned state.
func (l *Loop) apply(req request) Reply {
	next, res := pos.Apply(l.state, req.action)
	log := obs.Logger.With("session_id", l.id, "action", req.action.Kind.String(), "product_id", req.action.ProductID)

	switch {
	case res.Outcome.Rejected():
		l.counters.Rejected.Add(1)
		log.Info("cart_action_rejected", "outcome", string(res.Outcome), "quantity", req.action.Quantity, "reason", res.Err().Error())
		return Reply{Result: res, Snapshot: l.Snapshot()}
	case res.Outcome == pos.Unchanged:
		l.counters.Unchanged.Add(1)
		return Reply{Result: res, Snapshot: l.Snapshot()}
	}

	l.state = next
	snap := snapshotOf(l.id, l.seq.Next(), next)
	l.publish(snap)
	l.counters.Applied.Add(1)

	rep := Reply{Result: res, Snapshot: snap}
	if req.action.Kind == pos.KindCheckout {
		l.counters.Checkouts.Add(1)
		rep.Receipt = &model.Receipt{
			ID:        uuid.NewString(),
			Lines:     res.Settled,
			Total:     res.Total,
			Payment:   req.payment,
			SettledAt: l.now().UTC(),
		}
		log.Info("checkout_settled",
			"receipt_id", rep.Receipt.ID,
			"total", res.Total.String(),
			"lines", len(res.Settled),
			"payment", req.payment,
			"customers", next.Counters.Customers,
			"version", snap.Version,
		)
		return rep
	}
	log.Debug("cart_action_applied", "quantity", req.action.Quantity, "version", snap.Version)
	return rep
}

func (l *Loop) publish(s model.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snap = s
	for ch := range l.subs {
		select {
		case ch <- s:
		default:
			// replace the stale snapshot the reader has not picked up yet
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

func snapshotOf(id string, version uint64, s pos.State) model.Snapshot {
	c := s.Clone()
	return model.Snapshot{
		SessionID: id,
		Version:   version,
		Products:  c.Products,
		Cart:      c.Cart,
		CartTotal: s.CartTotal(),
		Counters:  c.Counters,
	}
}
