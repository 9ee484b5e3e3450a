// Package process implements ARNm's lightweight process: an actor's state
// block, its mailbox, and the cooperative "context switch" the scheduler
// uses to hand control to and from it. Generalized from
// original_source/arnm-lang/runtime/include/process.h's ArnmProcess, with
// the hand-written-assembly context switch (arnm_context_switch, saving
// callee-saved registers per context.h) replaced by a synchronous
// hand-off over a pair of unbuffered channels — each Process owns a
// dedicated goroutine for its lifetime, and Yield/resume is just a
// channel rendezvous between that goroutine and whichever worker
// goroutine is driving it, which is what a context switch amounts to once
// the register-saving is delegated to the host language's own runtime.
package process

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/arnm-lang/arnm/internal/config"
	"github.com/arnm-lang/arnm/runtime/mailbox"
	"github.com/arnm-lang/arnm/runtime/memory"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// State mirrors the ProcState enum in process.h.
type State int32

const (
	StateReady State = iota
	StateRunning
	StateWaiting
	StateDead
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Process is one ARNm actor instance: a state block (addressed as offset 0
// the same way the C ArnmProcess puts actor_state first, "that is how
// self.field compiles" per the ABI contract notes), a mailbox, and the
// bookkeeping the scheduler needs to run and park it.
type Process struct {
	ActorState *memory.Object

	PID   uint64
	state atomic.Int32

	Mailbox *mailbox.Mailbox
	Stack   *memory.Stack

	WorkerID uint32
	RunCount atomic.Uint64

	entry func(*Process)

	resume chan struct{} // worker -> process: run now.
	parked chan struct{} // process -> worker: I've yielded or finished.
	done   bool
}

var nextPID atomic.Uint64

// ---------------------
// ----- functions -----
// ---------------------

// NextPID returns the next globally unique process id, matching
// proc_next_pid's monotonically increasing counter.
func NextPID() uint64 { return nextPID.Add(1) }

// New creates a process ready to run entry on its own goroutine, with a
// guard-paged stack sized per cfg and a state block of stateSize bytes.
// It does not start the goroutine; call Start for that.
func New(entry func(*Process), stateSize int, cfg *config.RuntimeConfig, overflow mailbox.Overflow) (*Process, error) {
	stack, err := memory.AllocStack(cfg.StackSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("process: allocate stack: %w", err)
	}
	p := &Process{
		PID:        NextPID(),
		ActorState: memory.Alloc(stateSize, nil),
		Mailbox:    mailbox.New(cfg.MailboxCapacity, overflow),
		Stack:      stack,
		entry:      entry,
		resume:     make(chan struct{}),
		parked:     make(chan struct{}),
	}
	p.state.Store(int32(StateReady))
	return p, nil
}

// State returns p's current lifecycle state.
func (p *Process) State() State { return State(p.state.Load()) }

func (p *Process) setState(s State) { p.state.Store(int32(s)) }

// Start launches p's dedicated goroutine. The goroutine blocks immediately
// on resume until the scheduler's worker loop calls Dispatch.
func (p *Process) Start() {
	go func() {
		bind(p)
		defer unbind()
		// Deferred so that Exit's runtime.Goexit still hands control back.
		defer func() {
			p.setState(StateDead)
			p.done = true
			p.parked <- struct{}{}
		}()
		<-p.resume
		p.setState(StateRunning)
		p.entry(p)
	}()
}

// Dispatch hands control to p and blocks until p yields back or finishes,
// the worker-side half of the channel rendezvous Yield performs from
// inside p's own goroutine.
func (p *Process) Dispatch() {
	p.resume <- struct{}{}
	<-p.parked
}

// Yield cooperatively hands control back to the worker driving p, resuming
// only once Dispatch is called again. Called from inside p's own
// goroutine — the ABI's arnm_yield.
func (p *Process) Yield() {
	p.setState(StateReady)
	p.parked <- struct{}{}
	<-p.resume
	p.setState(StateRunning)
}

// Exit marks p dead and ends its goroutine; the Dispatch that is running p
// returns, and the scheduler observes Done() and retires the process. Called from inside
// p's own goroutine — the ABI's arnm_exit.
func (p *Process) Exit() {
	p.setState(StateDead)
	runtime.Goexit()
}

// Done reports whether p's entry function has returned or called Exit.
func (p *Process) Done() bool { return p.done || p.State() == StateDead }

// ----------------------------
// ----- current process -----
// ----------------------------
//
// The C runtime keeps "the currently running process" in a
// _Thread_local; Go has no goroutine-local storage, so the same lookup is
// done by keying a map on the calling goroutine's runtime-assigned id,
// read the same way third-party goroutine-local-storage shims do (parsing
// the "goroutine N [...]" header runtime.Stack prints). Each Process owns
// exactly one goroutine for its whole lifetime, so the binding set up in
// Start's closure is stable for as long as the process exists.

var (
	currentMu sync.RWMutex
	current   = map[uint64]*Process{}
)

func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	fmt.Sscanf(string(buf[:n]), "goroutine %d ", &id)
	return id
}

func bind(p *Process) {
	id := goroutineID()
	currentMu.Lock()
	current[id] = p
	currentMu.Unlock()
}

func unbind() {
	id := goroutineID()
	currentMu.Lock()
	delete(current, id)
	currentMu.Unlock()
}

// Current returns the Process running on the calling goroutine, or nil if
// called from outside any process's goroutine. The ABI's arnm_self.
func Current() *Process {
	id := goroutineID()
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current[id]
}
