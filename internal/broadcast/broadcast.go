// Package broadcast fans values out to a dynamic set of receivers.
package broadcast

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per-receiver buffer used when a Set has none configured.
const DefaultBuffer = 256

// Set delivers each sent value to every open Chan. Send never blocks: a
// receiver whose buffer is full misses the value and its drop count grows.
// The zero value is ready to use.
type Set[T any] struct {
	Buffer int

	lock sync.RWMutex
	set  map[chan T]*atomic.Uint64
}

func (cs *Set[T]) MakeChan() Chan[T] {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	if cs.set == nil {
		cs.set = make(map[chan T]*atomic.Uint64)
	}

	size := cs.Buffer
	if size <= 0 {
		size = DefaultBuffer
	}

	ch := make(chan T, size)
	dropped := new(atomic.Uint64)
	cs.set[ch] = dropped
	return Chan[T]{
		inner:   ch,
		dropped: dropped,
		cs:      cs,
	}
}

// Send offers val to every receiver and reports how many were skipped.
func (cs *Set[T]) Send(val T) (skipped int) {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	for ch, dropped := range cs.set {
		select {
		case ch <- val:
		default:
			dropped.Add(1)
			skipped++
		}
	}
	return
}

func (cs *Set[T]) Len() int {
	cs.lock.RLock()
	defer cs.lock.RUnlock()

	return len(cs.set)
}

func (cs *Set[T]) CloseAll() {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	for ch := range cs.set {
		close(ch)
	}

	clear(cs.set)
}

// remove reports whether ch was still registered.
func (cs *Set[T]) remove(ch chan T) bool {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	if _, ok := cs.set[ch]; !ok {
		return false
	}
	delete(cs.set, ch)
	return true
}

type Chan[T any] struct {
	inner   chan T
	dropped *atomic.Uint64
	cs      *Set[T]
}

func (ch *Chan[T]) Receiver() <-chan T {
	return ch.inner
}

// Dropped counts values this receiver missed because its buffer was full.
func (ch *Chan[T]) Dropped() uint64 {
	return ch.dropped.Load()
}

// Close unregisters the receiver. It is safe to call after CloseAll.
func (ch *Chan[T]) Close() {
	// Once removed from the set nothing else sends on inner, so closing is ours.
	if ch.cs.remove(ch.inner) {
		close(ch.inner)
	}
}
