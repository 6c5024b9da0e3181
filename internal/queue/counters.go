package queue

import "sync/atomic"

// Counters aggregate action outcomes across every loop that shares them.
type Counters struct {
	Applied   atomic.Uint64
	Unchanged atomic.Uint64
	Rejected  atomic.Uint64
	Checkouts atomic.Uint64
}

// CounterValues is a point-in-time copy of Counters.
type CounterValues struct {
	Applied   uint64 `json:"actions_applied"`
	Unchanged uint64 `json:"actions_unchanged"`
	Rejected  uint64 `json:"actions_rejected"`
	Checkouts uint64 `json:"checkouts"`
}

// Values loads all counters.
func (c *Counters) Values() CounterValues {
	return CounterValues{
		Applied:   c.Applied.Load(),
		Unchanged: c.Unchanged.Load(),
		Rejected:  c.Rejected.Load(),
		Checkouts: c.Checkouts.Load(),
	}
}
