package queue

import "sync/atomic"

// Sequencer hands out snapshot versions. Version 0 is the seeded state.
type Sequencer struct{ n atomic.Uint64 }

// Next returns the next version.
func (s *Sequencer) Next() uint64 { return s.n.Add(1) }
