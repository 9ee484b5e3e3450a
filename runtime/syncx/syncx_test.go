package syncx

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMutexExcludesConcurrentAccess(t *testing.T) {
	m := NewMutex()
	counter := 0
	var wg sync.WaitGroup
	const n = 200
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Lock()
			counter++
			m.Unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, n, counter)
}

func TestMutexTryLockFailsWhileHeld(t *testing.T) {
	m := NewMutex()
	require.True(t, m.TryLock(), "expected first try-lock to succeed")
	require.False(t, m.TryLock(), "expected second try-lock to fail while held")
	m.Unlock()
	require.True(t, m.TryLock(), "expected try-lock to succeed after unlock")
}

func TestMutexReentrancyPanics(t *testing.T) {
	m := NewMutex()
	m.Lock()
	require.Panics(t, func() { m.Lock() }, "expected reentrant Lock to panic")
}

func TestChannelSendReceiveFIFO(t *testing.T) {
	c := NewChannel(4)
	for i := int32(0); i < 4; i++ {
		require.Truef(t, c.TrySend(i), "expected send %d to succeed within capacity", i)
	}
	require.False(t, c.TrySend(99), "expected send to fail once channel is full")
	for i := int32(0); i < 4; i++ {
		v, ok := c.TryReceive()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

func TestChannelReceiveAfterCloseDrainsThenFails(t *testing.T) {
	c := NewChannel(2)
	c.TrySend(1)
	c.Close()
	v, ok := c.Receive()
	require.True(t, ok, "expected a buffered value to be drained after close")
	require.Equal(t, int32(1), v)

	_, ok = c.Receive()
	require.False(t, ok, "expected receive on a closed, empty channel to fail")
}

func TestBarrierReleasesAllAtThreshold(t *testing.T) {
	const n = 8
	b := NewBarrier(n)
	var wg sync.WaitGroup
	var mu sync.Mutex
	arrived := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Wait()
			mu.Lock()
			arrived++
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, n, arrived)
}
