package sched

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arnm-lang/arnm/internal/config"
	"github.com/arnm-lang/arnm/runtime/mailbox"
	"github.com/arnm-lang/arnm/runtime/process"
)

func testCfg(workers int) *config.RuntimeConfig {
	return &config.RuntimeConfig{
		Workers:            workers,
		StackSizeBytes:     16 * 1024,
		MailboxCapacity:    8,
		DeadlockAdvisoryMs: 50,
	}
}

func newTestProcess(t *testing.T, cfg *config.RuntimeConfig, entry func(*process.Process)) *process.Process {
	t.Helper()
	p, err := process.New(entry, 8, cfg, mailbox.OverflowBlock)
	if err != nil {
		t.Fatalf("unexpected error creating process: %v", err)
	}
	t.Cleanup(func() { p.Stack.Free() })
	return p
}

func TestSpawnRunsEntryToCompletion(t *testing.T) {
	cfg := testCfg(2)
	s := New(cfg)
	s.Start()
	defer s.Shutdown()

	var ran atomic.Bool
	p := newTestProcess(t, cfg, func(*process.Process) { ran.Store(true) })
	s.Spawn(p)

	waitOrFail(t, s)
	if !ran.Load() {
		t.Fatalf("expected spawned process entry to run")
	}
}

func TestManyProcessesAcrossWorkersAllComplete(t *testing.T) {
	cfg := testCfg(4)
	s := New(cfg)
	s.Start()
	defer s.Shutdown()

	const n = 50
	var completed atomic.Int64
	for i := 0; i < n; i++ {
		p := newTestProcess(t, cfg, func(self *process.Process) {
			self.Yield()
			completed.Add(1)
		})
		s.Spawn(p)
	}

	waitOrFail(t, s)
	if completed.Load() != n {
		t.Fatalf("expected all %d processes to complete, got %d", n, completed.Load())
	}
}

func TestWakeReenqueuesParkedProcess(t *testing.T) {
	cfg := testCfg(1)
	s := New(cfg)
	s.Start()
	defer s.Shutdown()

	var mu sync.Mutex
	var woke bool
	p := newTestProcess(t, cfg, func(self *process.Process) {
		self.Yield()
		mu.Lock()
		woke = true
		mu.Unlock()
	})
	s.Spawn(p)

	time.Sleep(20 * time.Millisecond)
	s.Wake(p)

	waitOrFail(t, s)
	mu.Lock()
	defer mu.Unlock()
	if !woke {
		t.Fatalf("expected woken process to resume and complete")
	}
}

func waitOrFail(t *testing.T, s *Scheduler) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for scheduler to drain")
	}
}
