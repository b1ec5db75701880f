package snowflake

import (
	"fmt"
	"runtime"
	"sync"
)

// Generator issues IDs for one (worker, datacenter) pair. It is safe for
// concurrent use.
//
// When 4096 IDs have been issued within one millisecond the caller spins until
// the clock moves on. A clock that never advances blocks NextID forever.
type Generator struct {
	workerID     int64
	datacenterID int64
	clock        Clock

	mu            sync.Mutex
	lastTimestamp int64
	sequence      int64
}

type Option func(*Generator)

// WithClock replaces SystemClock.
func WithClock(c Clock) Option {
	return func(g *Generator) {
		g.clock = c
	}
}

func NewGenerator(workerID, datacenterID int64, opts ...Option) (*Generator, error) {
	if workerID < 0 || workerID > MaxWorkerID {
		return nil, fmt.Errorf("%w: worker id %d is not in [0, %d]", ErrInvalidArgument, workerID, MaxWorkerID)
	}
	if datacenterID < 0 || datacenterID > MaxDatacenterID {
		return nil, fmt.Errorf("%w: datacenter id %d is not in [0, %d]", ErrInvalidArgument, datacenterID, MaxDatacenterID)
	}

	g := &Generator{
		workerID:      workerID,
		datacenterID:  datacenterID,
		clock:         SystemClock,
		lastTimestamp: -1,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Generator) WorkerID() int64 { return g.workerID }

func (g *Generator) DatacenterID() int64 { return g.datacenterID }

// NextID returns a new ID, or an error wrapping ErrClockMovedBackwards or
// ErrTimestampOverflow. A failed call leaves the generator state untouched.
func (g *Generator) NextID() (ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.next()
}

// NextIDs issues n IDs under a single lock acquisition. On failure it returns
// the IDs issued before the error alongside it.
func (g *Generator) NextIDs(n int) ([]ID, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: count %d must be positive", ErrInvalidArgument, n)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]ID, 0, n)
	for range n {
		id, err := g.next()
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Decode is the package-level Decode; the receiver's own node ids play no part.
func (g *Generator) Decode(id ID) Meta {
	return Decode(id)
}

func (g *Generator) next() (ID, error) {
	now := g.clock.UnixMilli()
	if now < g.lastTimestamp {
		return 0, &ClockMovedBackwardsError{Last: g.lastTimestamp, Now: now}
	}

	var seq int64
	if now == g.lastTimestamp {
		seq = (g.sequence + 1) & MaxSequence
		if seq == 0 {
			now = g.tilNextMilli(g.lastTimestamp)
		}
	}

	offset := now - Epoch
	if offset < 0 || offset > MaxOffset {
		return 0, &TimestampOverflowError{Now: now}
	}

	g.lastTimestamp = now
	g.sequence = seq
	return compose(offset, g.datacenterID, g.workerID, seq), nil
}

func (g *Generator) tilNextMilli(last int64) int64 {
	now := g.clock.UnixMilli()
	for now <= last {
		runtime.Gosched()
		now = g.clock.UnixMilli()
	}
	return now
}
