package process

import (
	"testing"
	"time"

	"github.com/arnm-lang/arnm/internal/config"
	"github.com/arnm-lang/arnm/runtime/mailbox"
)

func testCfg() *config.RuntimeConfig {
	return &config.RuntimeConfig{StackSizeBytes: 16 * 1024, MailboxCapacity: 8}
}

func TestNewProcessStartsReady(t *testing.T) {
	p, err := New(func(*Process) {}, 8, testCfg(), mailbox.OverflowBlock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Stack.Free()
	if p.State() != StateReady {
		t.Fatalf("expected a fresh process to be ready, got %s", p.State())
	}
}

func TestDispatchRunsEntryToCompletion(t *testing.T) {
	ran := false
	p, err := New(func(*Process) { ran = true }, 8, testCfg(), mailbox.OverflowBlock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Stack.Free()
	p.Start()
	p.Dispatch()
	if !ran {
		t.Fatalf("expected entry to have run")
	}
	if !p.Done() {
		t.Fatalf("expected process to be done after entry returns")
	}
}

func TestYieldReturnsControlAndResumes(t *testing.T) {
	steps := []string{}
	p, err := New(func(self *Process) {
		steps = append(steps, "a")
		self.Yield()
		steps = append(steps, "b")
	}, 8, testCfg(), mailbox.OverflowBlock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Stack.Free()
	p.Start()

	p.Dispatch()
	if len(steps) != 1 || steps[0] != "a" {
		t.Fatalf("expected one step before yield, got %v", steps)
	}
	if p.Done() {
		t.Fatalf("process should not be done after a mid-body yield")
	}

	p.Dispatch()
	if len(steps) != 2 || steps[1] != "b" {
		t.Fatalf("expected a second step after resuming, got %v", steps)
	}
	if !p.Done() {
		t.Fatalf("expected process to be done after resuming past its last statement")
	}
}

func TestCurrentResolvesToOwningProcess(t *testing.T) {
	seen := make(chan *Process, 1)
	p, err := New(func(self *Process) {
		seen <- Current()
	}, 8, testCfg(), mailbox.OverflowBlock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Stack.Free()
	p.Start()
	p.Dispatch()

	select {
	case got := <-seen:
		if got != p {
			t.Fatalf("expected Current() to resolve to the owning process")
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for entry to report Current()")
	}
}
