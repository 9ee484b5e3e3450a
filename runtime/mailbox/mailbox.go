// Package mailbox implements the lock-free multi-producer, single-consumer
// queue every ARNm process uses as its inbox. Generalized from
// original_source/arnm-lang/runtime/include/mailbox.h's ArnmMailbox (a
// head/tail pair of _Atomic(ArnmMessage*)) onto Go's sync/atomic.Pointer,
// which gives the same compare-and-swap enqueue without hand-rolled
// atomic intrinsics.
package mailbox

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/arnm-lang/arnm/internal/logx"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Overflow selects what Send does when a Mailbox is already at capacity,
// matching the three policies the runtime.mailbox_overflow config
// setting names.
type Overflow uint8

const (
	OverflowBlock Overflow = iota
	OverflowDrop
	OverflowPanic
)

// Message is one enqueued payload: ARNm's receive arms only ever carry a
// single i32 tag (internal/sema's "receive message shape" decision), so
// unlike the C runtime's ArnmMessage this has no separate data/size pair.
type Message struct {
	Tag  int32
	next atomic.Pointer[Message]
}

// Mailbox is a capacity-bounded MPSC queue: arbitrary sender goroutines
// call Send concurrently, only the owning process goroutine calls Receive
// or TryReceive.
type Mailbox struct {
	head     atomic.Pointer[Message] // dequeue side, consumer-only.
	tail     atomic.Pointer[Message] // enqueue side, CAS-contended.
	count    atomic.Int64
	capacity int64
	overflow Overflow

	waiters chan struct{} // signaled on every successful Send; Receive blocks on it.
}

// ---------------------
// ----- functions -----
// ---------------------

// New returns an empty Mailbox bounded to capacity messages under
// overflow's policy. A sentinel empty Message seeds head/tail the same way
// a Michael-Scott queue uses a dummy node to avoid a nil special case on
// the very first dequeue.
func New(capacity int, overflow Overflow) *Mailbox {
	sentinel := &Message{}
	m := &Mailbox{capacity: int64(capacity), overflow: overflow, waiters: make(chan struct{}, 1)}
	m.head.Store(sentinel)
	m.tail.Store(sentinel)
	return m
}

// Send enqueues tag. It is safe to call concurrently from many goroutines.
// Overflow behavior is governed by the Mailbox's configured policy: Block
// spins briefly yielding to the scheduler, Drop silently discards the
// message, and Panic aborts the sending goroutine — the same three
// outcomes the spec's error taxonomy lists for mailbox overflow.
func (m *Mailbox) Send(tag int32) {
	for m.count.Load() >= m.capacity {
		switch m.overflow {
		case OverflowDrop:
			logx.Get().Warn().Str("component", "mailbox").Str("capacity", fmt.Sprintf("%d", m.capacity)).Msg("dropping message: mailbox full")
			return
		case OverflowPanic:
			panic("mailbox overflow")
		default:
			// OverflowBlock: give the consumer a chance to drain before
			// retrying, without ever OS-blocking the sender.
			runtime.Gosched()
		}
	}

	n := &Message{Tag: tag}
	for {
		tail := m.tail.Load()
		next := tail.next.Load()
		if next == nil {
			if tail.next.CompareAndSwap(nil, n) {
				m.tail.CompareAndSwap(tail, n)
				m.count.Add(1)
				select {
				case m.waiters <- struct{}{}:
				default:
				}
				return
			}
		} else {
			// Another sender linked a node but hasn't advanced tail yet;
			// help it along before retrying our own CAS.
			m.tail.CompareAndSwap(tail, next)
		}
	}
}

// TryReceive dequeues the next message without blocking, returning
// ok=false if the mailbox is currently empty.
func (m *Mailbox) TryReceive() (tag int32, ok bool) {
	head := m.head.Load()
	next := head.next.Load()
	if next == nil {
		return 0, false
	}
	if m.head.CompareAndSwap(head, next) {
		m.count.Add(-1)
		return next.Tag, true
	}
	return 0, false
}

// Receive blocks the calling goroutine until a message is available, then
// dequeues and returns it. Unlike the C runtime's mailbox_receive (which
// parks the process with the scheduler), this blocks on a buffered
// notification channel — the Go scheduler's own goroutine parking takes
// the place of ARNm's explicit park/wake machinery here.
func (m *Mailbox) Receive() int32 {
	for {
		if tag, ok := m.TryReceive(); ok {
			return tag
		}
		<-m.waiters
	}
}

// Len returns the current number of queued messages.
func (m *Mailbox) Len() int { return int(m.count.Load()) }

// Empty reports whether the mailbox currently holds no messages.
func (m *Mailbox) Empty() bool { return m.count.Load() == 0 }
