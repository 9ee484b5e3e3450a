package mailbox

import (
	"sync"
	"testing"
)

func TestSendReceiveFIFO(t *testing.T) {
	m := New(8, OverflowBlock)
	m.Send(1)
	m.Send(2)
	m.Send(3)
	for _, want := range []int32{1, 2, 3} {
		if got := m.Receive(); got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
	if !m.Empty() {
		t.Fatalf("expected mailbox to be empty after draining")
	}
}

func TestTryReceiveOnEmptyReturnsFalse(t *testing.T) {
	m := New(4, OverflowBlock)
	if _, ok := m.TryReceive(); ok {
		t.Fatalf("expected TryReceive to report false on an empty mailbox")
	}
}

func TestDropOverflowDiscardsSilently(t *testing.T) {
	m := New(2, OverflowDrop)
	m.Send(1)
	m.Send(2)
	m.Send(3) // dropped, mailbox already at capacity
	if m.Len() != 2 {
		t.Fatalf("expected len 2 after an over-capacity drop, got %d", m.Len())
	}
}

func TestPanicOverflowPanics(t *testing.T) {
	m := New(1, OverflowPanic)
	m.Send(1)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic on overflow")
		}
	}()
	m.Send(2)
}

func TestConcurrentSendersPreserveAllMessages(t *testing.T) {
	const n = 200
	m := New(n, OverflowBlock)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(tag int32) {
			defer wg.Done()
			m.Send(tag)
		}(int32(i))
	}
	wg.Wait()

	seen := make(map[int32]bool, n)
	for i := 0; i < n; i++ {
		tag := m.Receive()
		if seen[tag] {
			t.Fatalf("message %d received twice", tag)
		}
		seen[tag] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct messages, got %d", n, len(seen))
	}
}
