package broadcast

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendReachesEveryReceiver(t *testing.T) {
	var cs Set[int]
	a := cs.MakeChan()
	b := cs.MakeChan()
	defer a.Close()
	defer b.Close()

	require.Equal(t, 0, cs.Send(7))
	assert.Equal(t, 7, <-a.Receiver())
	assert.Equal(t, 7, <-b.Receiver())
	assert.Equal(t, 2, cs.Len())
}

func TestSendDropsWhenFull(t *testing.T) {
	cs := Set[string]{Buffer: 1}
	ch := cs.MakeChan()
	defer ch.Close()

	assert.Equal(t, 0, cs.Send("first"))
	assert.Equal(t, 1, cs.Send("second"))
	assert.Equal(t, uint64(1), ch.Dropped())
	assert.Equal(t, "first", <-ch.Receiver())
}

func TestCloseUnregisters(t *testing.T) {
	var cs Set[int]
	ch := cs.MakeChan()
	ch.Close()

	assert.Equal(t, 0, cs.Len())
	_, ok := <-ch.Receiver()
	assert.False(t, ok)

	// no receivers left, nothing to skip
	assert.Equal(t, 0, cs.Send(1))
}

func TestCloseAfterCloseAll(t *testing.T) {
	var cs Set[int]
	ch := cs.MakeChan()
	cs.CloseAll()

	_, ok := <-ch.Receiver()
	assert.False(t, ok)
	assert.NotPanics(t, ch.Close)
}

func TestConcurrentSendAndClose(t *testing.T) {
	var cs Set[int]
	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := cs.MakeChan()
			for range 10 {
				cs.Send(1)
			}
			ch.Close()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, cs.Len())
}
