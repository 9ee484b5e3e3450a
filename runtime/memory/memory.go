// Package memory implements ARNm's allocation layer: an ARC-style
// reference-counted object header for actor/struct records, a singly
// linked free-list pool for small fixed-size allocations, and a
// guard-paged stack allocator for process stacks. Generalized from
// original_source/arnm-lang/runtime/include/memory.h's
// ArnmObjectHeader/MemoryPool/stack_alloc onto Go, using
// golang.org/x/sys/unix for the guard page mmap/mprotect calls the
// standard library has no portable equivalent for.
package memory

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Destructor runs when an ARC object's refcount reaches zero, mirroring
// the C header's ArnmDestructor function pointer.
type Destructor func(payload []byte)

// Object is an ARC-managed allocation: a refcount plus an opaque payload
// buffer sized for one actor or struct record's fields (8 bytes per
// field, matching internal/ir's OpAllocRecord/OpFieldPtr convention).
type Object struct {
	refcount atomic.Int32
	dtor     Destructor
	Payload  []byte
}

// ---------------------
// ----- functions -----
// ---------------------

// Alloc allocates a new Object with size bytes of zeroed payload and an
// initial refcount of 1, the same convention arnm_arc_alloc documents.
func Alloc(size int, dtor Destructor) *Object {
	o := &Object{Payload: make([]byte, size), dtor: dtor}
	o.refcount.Store(1)
	return o
}

// Retain increments o's reference count.
func Retain(o *Object) {
	o.refcount.Add(1)
}

// Release decrements o's reference count, running its destructor (if any)
// once it reaches zero. Go's GC still owns the backing array — this is a
// deterministic-destruction discipline layered on top, for actors whose
// semantics (e.g. closing a held resource on its last reference) depend
// on a release happening at a known point rather than whenever the
// collector gets to it.
func Release(o *Object) {
	if o.refcount.Add(-1) == 0 {
		if o.dtor != nil {
			o.dtor(o.Payload)
		}
	}
}

// Refcount returns o's current reference count, for diagnostics and tests.
func Refcount(o *Object) int32 { return o.refcount.Load() }

// ----------------------------
// ----- Memory pool -----
// ----------------------------

// Pool is a free-list allocator for fixed-size blocks, grounded on the
// C runtime's pool_create/pool_alloc/pool_free — used by runtime/sched
// to recycle Process structs across spawn/exit cycles without handing
// every allocation to the Go heap.
type Pool struct {
	mu        sync.Mutex
	blockSize int
	free      [][]byte
}

// NewPool returns a Pool of blockSize-byte blocks, pre-populated with
// initialBlocks free blocks.
func NewPool(blockSize, initialBlocks int) *Pool {
	p := &Pool{blockSize: blockSize}
	for i := 0; i < initialBlocks; i++ {
		p.free = append(p.free, make([]byte, blockSize))
	}
	return p
}

// Get returns a block from the pool, allocating a fresh one if the pool is
// currently empty.
func (p *Pool) Get() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.free); n > 0 {
		b := p.free[n-1]
		p.free = p.free[:n-1]
		for i := range b {
			b[i] = 0
		}
		return b
	}
	return make([]byte, p.blockSize)
}

// Put returns b to the pool for reuse.
func (p *Pool) Put(b []byte) {
	if len(b) != p.blockSize {
		return
	}
	p.mu.Lock()
	p.free = append(p.free, b)
	p.mu.Unlock()
}

// ----------------------------
// ----- Guarded stacks -----
// ----------------------------

// Stack is a process stack backed by an mmap'd region with a PROT_NONE
// guard page below it, so a stack overflow faults immediately instead of
// silently corrupting an adjacent allocation.
type Stack struct {
	region []byte // guard page + usable stack, as returned by mmap.
	usable []byte // the slice callers actually use.
}

// AllocStack reserves size bytes of usable stack plus one guard page
// below it, matching the C runtime's stack_alloc.
func AllocStack(size int) (*Stack, error) {
	pageSize := unix.Getpagesize()
	total := pageSize + roundUp(size, pageSize)

	region, err := unix.Mmap(-1, 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("memory: mmap stack: %w", err)
	}
	if err := unix.Mprotect(region[:pageSize], unix.PROT_NONE); err != nil {
		unix.Munmap(region)
		return nil, fmt.Errorf("memory: mprotect guard page: %w", err)
	}
	return &Stack{region: region, usable: region[pageSize:]}, nil
}

// Bytes returns the stack's usable memory, growing toward index 0 as a
// conventional downward-growing x86-64/ARM stack does.
func (s *Stack) Bytes() []byte { return s.usable }

// Free releases the stack's backing mapping, matching stack_free.
func (s *Stack) Free() error {
	return unix.Munmap(s.region)
}

func roundUp(n, multiple int) int {
	if n%multiple == 0 {
		return n
	}
	return n + (multiple - n%multiple)
}
