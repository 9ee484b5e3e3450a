// Package abi implements the runtime ABI generated code calls into:
// arnm_spawn, arnm_self, arnm_yield, arnm_exit, arnm_send, arnm_receive,
// arnm_try_receive, arnm_message_free, arnm_print_int, and
// arnm_panic_nomatch. internal/codegen/llvm and internal/codegen/x86 emit
// calls to these symbol names; this package is what those calls are
// checked against and, for any Go-hosted execution of generated
// programs, what they actually resolve to. Generalized from
// original_source/arnm-lang/runtime/ (mailbox.c/process.c/scheduler.c's
// top-level entry points) layered over runtime/process,
// runtime/mailbox, runtime/sched, and runtime/memory.
package abi

import (
	"fmt"
	"os"

	"github.com/arnm-lang/arnm/internal/config"
	"github.com/arnm-lang/arnm/internal/logx"
	"github.com/arnm-lang/arnm/runtime/mailbox"
	"github.com/arnm-lang/arnm/runtime/memory"
	"github.com/arnm-lang/arnm/runtime/process"
	"github.com/arnm-lang/arnm/runtime/sched"
)

// Message is the consumer-owned handle arnm_receive/arnm_try_receive
// return; its Tag sits at offset 0 in the C ArnmMessage layout, which is
// why internal/codegen's receive lowering loads directly through the
// returned pointer with no field offset.
type Message struct {
	Tag int32
}

// Runtime bundles a Scheduler with the config it was built from, giving
// arnm_spawn somewhere to enqueue new processes and arnm_print_int /
// overflow logging somewhere to read its mailbox policy from. A single
// process-wide Runtime backs the package-level ABI functions, the same
// way the C runtime has exactly one global Scheduler.
type Runtime struct {
	cfg   *config.RuntimeConfig
	sched *sched.Scheduler
}

var active *Runtime

// Init installs r as the runtime every package-level ABI call operates
// against and starts its scheduler. Must be called once before any
// generated program runs. cmd/arnmc only emits code and does not call it;
// an embedding host (or this package's tests) does.
func Init(cfg *config.RuntimeConfig) *Runtime {
	r := &Runtime{cfg: cfg, sched: sched.New(cfg)}
	r.sched.Start()
	active = r
	return r
}

// Shutdown stops the installed runtime's scheduler, blocking until every
// worker goroutine has exited.
func Shutdown() {
	if active != nil {
		active.sched.Shutdown()
		active = nil
	}
}

// Wait blocks until every process spawned against the installed runtime
// has finished — the Go-hosted equivalent of the C runtime's main thread
// joining all workers after _arnm_main returns.
func Wait() {
	if active != nil {
		active.sched.Wait()
	}
}

// RunID returns the installed runtime's log correlation id, or "" if no
// runtime is installed. The same id tags the scheduler's
// deadlock-advisory warnings, so a host that logs it can trace those
// warnings back to the run that produced them.
func RunID() string {
	if active == nil {
		return ""
	}
	return active.sched.RunID()
}

// Spawn implements arnm_spawn: creates a process running entry over a
// state block of stateSize bytes (seeded from argData, or zeroed if nil)
// and schedules it. Returns the process handle, whose first field is the
// state block (ActorState).
func Spawn(entry func(*process.Process), argData []byte, stateSize int) *process.Process {
	overflow := overflowPolicy(active.cfg.MailboxOverflow)
	p, err := process.New(entry, stateSize, active.cfg, overflow)
	if err != nil {
		logx.Get().Err(err).Str("component", "abi").Msg("arnm_spawn: process allocation failed")
		return nil
	}
	if argData != nil {
		copy(p.ActorState.Payload, argData)
	}
	active.sched.Spawn(p)
	return p
}

// Self implements arnm_self: the currently running process handle, or
// nil outside any process's goroutine.
func Self() *process.Process {
	return process.Current()
}

// Yield implements arnm_yield: cooperatively hands control back to the
// worker driving the calling process.
func Yield() {
	if p := process.Current(); p != nil {
		p.Yield()
	}
}

// Exit implements arnm_exit: terminates the calling process without
// returning to its caller.
func Exit() {
	if p := process.Current(); p != nil {
		p.Exit()
	}
}

// Send implements arnm_send: delivers tag to target's mailbox, returning
// 0 on success and non-zero on failure (a nil target, matching the C
// ABI's "failure" outcome for a dead or unknown handle).
func Send(target *process.Process, tag int32) int {
	if target == nil {
		return 1
	}
	target.Mailbox.Send(tag)
	if active != nil && target.State() == process.StateWaiting {
		active.sched.Wake(target)
	}
	return 0
}

// Receive implements arnm_receive: blocks the calling process until a
// message arrives, then returns it. Unlike the C runtime (which parks
// the process with the scheduler while it waits), this polls the
// mailbox and calls Yield between attempts, keeping suspension points
// syntactically visible at arnm_* call boundaries while letting the
// scheduler reschedule sibling processes in between.
func Receive() *Message {
	p := process.Current()
	if p == nil {
		return nil
	}
	for {
		if tag, ok := p.Mailbox.TryReceive(); ok {
			return &Message{Tag: tag}
		}
		p.Yield()
	}
}

// TryReceive implements arnm_try_receive: the non-blocking variant.
func TryReceive() *Message {
	p := process.Current()
	if p == nil {
		return nil
	}
	if tag, ok := p.Mailbox.TryReceive(); ok {
		return &Message{Tag: tag}
	}
	return nil
}

// MessageFree implements arnm_message_free. Go's GC reclaims the
// Message value itself; this exists so generated code's call sequence
// (receive, use, free) has a real symbol to call, matching the ABI
// contract codegen emits against.
func MessageFree(m *Message) {
	_ = m
}

// PrintInt implements arnm_print_int: a convenience debug print.
func PrintInt(i int32) {
	fmt.Println(i)
}

// PanicNoMatch implements arnm_panic_nomatch: a runtime abort with a
// diagnostic, for a receive whose arms covered none of the arrived tag.
func PanicNoMatch() {
	logx.Get().Err(fmt.Errorf("no receive arm matched")).Str("component", "abi").Msg("arnm_panic_nomatch")
	os.Exit(1)
}

// AllocRecord backs internal/codegen's arnm_alloc_record helper: a
// refcounted record/actor state block of size bytes.
func AllocRecord(size int) *memory.Object {
	return memory.Alloc(size, nil)
}

// AllocArray backs arnm_alloc_array: a refcounted flat array of elemSize
// bytes.
func AllocArray(elemCount, elemSize int) *memory.Object {
	return memory.Alloc(elemCount*elemSize, nil)
}

func overflowPolicy(name string) mailbox.Overflow {
	switch name {
	case "drop":
		return mailbox.OverflowDrop
	case "panic":
		return mailbox.OverflowPanic
	default:
		return mailbox.OverflowBlock
	}
}
