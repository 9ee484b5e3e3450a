// Package syncx implements the scheduler-aware synchronization
// primitives generated programs link against: a deadlock-tracking
// mutex, a bounded channel, and a barrier. Generalized from
// original_source/arnm-lang/runtime/include/sync.h's ArnmMutex/
// ArnmChannel/ArnmBarrier — the key departure from pthread primitives
// that header documents is that a blocking acquire yields to the
// scheduler instead of OS-blocking, which this package keeps by
// spinning on runtime/process's cooperative Yield rather than any
// OS-level wait. Each type's exported state is guarded by a plain
// sync.Mutex, the same role sync.h's internal pthread_spinlock_t plays:
// protecting the struct's own bookkeeping from concurrent workers, which
// is a separate concern from the logical, scheduler-aware blocking the
// outer Lock/Send/Receive/Wait loops implement.
package syncx

import (
	"fmt"
	goruntime "runtime"
	"sync"

	"github.com/arnm-lang/arnm/runtime/process"
)

// yieldOrGosched cooperatively yields self if the caller is running
// inside a process's own goroutine, falling back to a plain
// runtime.Gosched for callers outside any process (as in this package's
// own tests) so a poll loop never busy-spins a whole OS thread.
func yieldOrGosched(self *process.Process) {
	if self != nil {
		self.Yield()
		return
	}
	goruntime.Gosched()
}

// ----------------------------
// ----- Mutex -----
// ----------------------------

// Mutex is a process-level lock: acquiring it when held yields to the
// scheduler and retries, never blocking the underlying OS thread.
// Ownership is tracked the way sync.h's ArnmMutex does, so a process
// that tries to relock a mutex it already owns is caught as a
// programmer error rather than silently deadlocking.
type Mutex struct {
	spin   sync.Mutex
	locked bool
	owner  *process.Process
}

// NewMutex returns an unlocked Mutex.
func NewMutex() *Mutex { return &Mutex{} }

// Lock acquires m, cooperatively yielding between attempts while m is
// held by another process. Matches arnm_mutex_lock's scheduler-aware
// blocking.
func (m *Mutex) Lock() {
	self := process.Current()
	for {
		switch m.tryLockOrOwner(self) {
		case lockAcquired:
			return
		case lockOwnedBySelf:
			panic("syncx: mutex reentrancy by owner")
		}
		yieldOrGosched(self)
	}
}

type lockResult int

const (
	lockAcquired lockResult = iota
	lockHeldByOther
	lockOwnedBySelf
)

func (m *Mutex) tryLockOrOwner(self *process.Process) lockResult {
	m.spin.Lock()
	defer m.spin.Unlock()
	if m.locked {
		if m.owner == self {
			return lockOwnedBySelf
		}
		return lockHeldByOther
	}
	m.locked = true
	m.owner = self
	return lockAcquired
}

// TryLock attempts to acquire m without blocking, matching
// arnm_mutex_try_lock.
func (m *Mutex) TryLock() bool {
	m.spin.Lock()
	defer m.spin.Unlock()
	if m.locked {
		return false
	}
	m.locked = true
	m.owner = process.Current()
	return true
}

// Unlock releases m. Matches arnm_mutex_unlock.
func (m *Mutex) Unlock() {
	m.spin.Lock()
	defer m.spin.Unlock()
	m.locked = false
	m.owner = nil
}

// ----------------------------
// ----- Channel -----
// ----------------------------

// Channel is a bounded, closable buffer for inter-process communication,
// generalized from ArnmChannel's circular buffer. Send/Receive poll and
// yield rather than OS-block, same rationale as Mutex.
type Channel struct {
	spin     sync.Mutex
	buffer   []int32
	capacity int
	head     int
	tail     int
	count    int
	closed   bool
}

// NewChannel returns an empty Channel bounded to capacity elements.
func NewChannel(capacity int) *Channel {
	return &Channel{buffer: make([]int32, capacity), capacity: capacity}
}

// Send blocks (cooperatively) until there is room in c or c is closed,
// matching arnm_channel_send. Returns false if c was or became closed
// before the value could be delivered.
func (c *Channel) Send(v int32) bool {
	self := process.Current()
	for {
		sent, closed := c.trySendState(v)
		if sent {
			return true
		}
		if closed {
			return false
		}
		yieldOrGosched(self)
	}
}

func (c *Channel) trySendState(v int32) (sent, closed bool) {
	c.spin.Lock()
	defer c.spin.Unlock()
	if c.closed {
		return false, true
	}
	if c.count == c.capacity {
		return false, false
	}
	c.buffer[c.tail] = v
	c.tail = (c.tail + 1) % c.capacity
	c.count++
	return true, false
}

// TrySend attempts a non-blocking send, matching arnm_channel_try_send.
func (c *Channel) TrySend(v int32) bool {
	sent, _ := c.trySendState(v)
	return sent
}

// Receive blocks until a value is available or c is closed and drained,
// matching arnm_channel_receive. ok is false once c is closed and empty.
func (c *Channel) Receive() (v int32, ok bool) {
	self := process.Current()
	for {
		v, ok, drained := c.tryReceiveState()
		if ok {
			return v, true
		}
		if drained {
			return 0, false
		}
		yieldOrGosched(self)
	}
}

func (c *Channel) tryReceiveState() (v int32, ok bool, drained bool) {
	c.spin.Lock()
	defer c.spin.Unlock()
	if c.count == 0 {
		return 0, false, c.closed
	}
	v = c.buffer[c.head]
	c.head = (c.head + 1) % c.capacity
	c.count--
	return v, true, false
}

// TryReceive attempts a non-blocking receive, matching
// arnm_channel_try_receive.
func (c *Channel) TryReceive() (int32, bool) {
	v, ok, _ := c.tryReceiveState()
	return v, ok
}

// Close marks c closed, unblocking every pending Send/Receive, matching
// arnm_channel_close.
func (c *Channel) Close() {
	c.spin.Lock()
	defer c.spin.Unlock()
	c.closed = true
}

// IsClosed reports whether c has been closed.
func (c *Channel) IsClosed() bool {
	c.spin.Lock()
	defer c.spin.Unlock()
	return c.closed
}

// Count returns the number of buffered values currently in c.
func (c *Channel) Count() int {
	c.spin.Lock()
	defer c.spin.Unlock()
	return c.count
}

// ----------------------------
// ----- Barrier -----
// ----------------------------

// Barrier holds count processes until threshold of them have arrived,
// generalized from ArnmBarrier's generation-counted design (so a
// barrier can be reused across multiple rounds without races between a
// round releasing and the next round's waiters arriving).
type Barrier struct {
	spin       sync.Mutex
	threshold  int
	count      int
	generation uint64
}

// NewBarrier returns a Barrier that releases once count processes have
// called Wait.
func NewBarrier(count int) *Barrier {
	if count <= 0 {
		panic(fmt.Sprintf("syncx: barrier threshold must be positive, got %d", count))
	}
	return &Barrier{threshold: count}
}

// Wait blocks the calling process until threshold processes have all
// called Wait, then releases them together, matching arnm_barrier_wait.
func (b *Barrier) Wait() {
	self := process.Current()

	b.spin.Lock()
	gen := b.generation
	b.count++
	released := b.count == b.threshold
	if released {
		b.count = 0
		b.generation++
	}
	b.spin.Unlock()

	if released {
		return
	}
	for {
		b.spin.Lock()
		cur := b.generation
		b.spin.Unlock()
		if cur != gen {
			return
		}
		yieldOrGosched(self)
	}
}
