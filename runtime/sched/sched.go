// Package sched implements ARNm's M:N scheduler: a fixed pool of worker
// goroutines, each with a local run queue, stealing ready processes from
// its siblings or the global queue when its own is empty. Generalized
// from original_source/arnm-lang/runtime/include/scheduler.h's
// Scheduler/ArnmWorker/RunQueue/WaitQueue (pthread worker threads with
// spinlock-protected queues) onto golang.org/x/sync/errgroup, which
// supplies the "run N goroutines, propagate the first error, wait for
// all" bookkeeping the C runtime hand-rolls with pthread_create/_join.
package sched

import (
	"context"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/arnm-lang/arnm/internal/config"
	"github.com/arnm-lang/arnm/internal/logx"
	"github.com/arnm-lang/arnm/runtime/process"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// runQueue is a mutex-protected FIFO of ready processes. The C runtime
// uses a pthread_spinlock_t for the same purpose ("for simplicity; can
// optimize later", per scheduler.h) — a sync.Mutex is this port's
// equivalent plain, unoptimized choice.
type runQueue struct {
	mu    sync.Mutex
	items []*process.Process
}

func (q *runQueue) push(p *process.Process) {
	q.mu.Lock()
	q.items = append(q.items, p)
	q.mu.Unlock()
}

func (q *runQueue) pop() *process.Process {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	p := q.items[0]
	q.items = q.items[1:]
	return p
}

// stealHalf removes and returns up to half of q's queued items, for a
// sibling worker to steal from; stealing half (rather than one at a time)
// is the same amortization work-stealing schedulers like Go's own use.
func (q *runQueue) stealHalf() []*process.Process {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items) / 2
	if n == 0 {
		return nil
	}
	stolen := q.items[:n]
	q.items = q.items[n:]
	return stolen
}

func (q *runQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// worker is one OS-thread-equivalent goroutine driving a subset of
// processes cooperatively.
type worker struct {
	id    uint32
	local runQueue
	sched *Scheduler
}

// Scheduler owns the global run queue, the worker pool, and the
// wait/active process counters the C runtime's Scheduler struct tracks,
// used here to drive deadlock-advisory logging.
type Scheduler struct {
	cfg     *config.RuntimeConfig
	workers []*worker
	global  runQueue

	// runID tags every log line this scheduler instance emits, so a
	// program that starts and stops several runtimes in one process
	// (as the test suite does) can still tell one run's worker
	// diagnostics apart from another's.
	runID string

	activeProcs  sync.WaitGroup
	activeCount  int64
	waitingCount int64
	countMu      sync.Mutex

	shutdownCtx context.Context
	cancel      context.CancelFunc
	group       *errgroup.Group
}

// ---------------------
// ----- functions -----
// ---------------------

// New builds a Scheduler with cfg.Workers worker goroutines; 0 (or less)
// means one per CPU (runtime.NumCPU), capped at config.DefaultMaxWorkers.
func New(cfg *config.RuntimeConfig) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	s := &Scheduler{cfg: cfg, runID: uuid.NewString()[:8], shutdownCtx: gctx, cancel: cancel, group: group}

	n := cfg.Workers
	if n <= 0 {
		n = runtime.NumCPU()
		if n > config.DefaultMaxWorkers {
			n = config.DefaultMaxWorkers
		}
	}
	s.workers = make([]*worker, n)
	for i := range s.workers {
		s.workers[i] = &worker{id: uint32(i), sched: s}
	}
	return s
}

// Start launches every worker's dispatch loop. Each loop returns once
// Shutdown is called; processes still queued at that point are not run.
func (s *Scheduler) Start() {
	for _, w := range s.workers {
		w := w
		s.group.Go(func() error {
			w.loop()
			return nil
		})
	}
}

// Shutdown signals every worker to stop picking up new processes and
// blocks until they've all exited.
func (s *Scheduler) Shutdown() {
	s.cancel()
	s.group.Wait()
}

// Spawn starts p's goroutine and enqueues it on the least-loaded worker's
// local queue — a cheap stand-in for the C runtime's
// sched_enqueue_local/sched_enqueue split between a caller-pinned worker
// and the global queue.
func (s *Scheduler) Spawn(p *process.Process) {
	p.Start()
	s.countMu.Lock()
	s.activeCount++
	s.countMu.Unlock()
	s.activeProcs.Add(1)

	best := s.workers[0]
	for _, w := range s.workers[1:] {
		if w.local.len() < best.local.len() {
			best = w
		}
	}
	p.WorkerID = best.id
	best.local.push(p)
}

// Wait blocks until every spawned process has finished.
func (s *Scheduler) Wait() {
	s.activeProcs.Wait()
}

// RunID returns the short correlation id stamped on every log line this
// scheduler instance emits.
func (s *Scheduler) RunID() string {
	return s.runID
}

func (w *worker) loop() {
	log := logx.Get()
	idleSince := time.Time{}
	for {
		select {
		case <-w.sched.shutdownCtx.Done():
			return
		default:
		}

		p := w.next()
		if p == nil {
			if idleSince.IsZero() {
				idleSince = time.Now()
			} else if w.sched.cfg.DeadlockAdvisoryMs > 0 &&
				time.Since(idleSince) > time.Duration(w.sched.cfg.DeadlockAdvisoryMs)*time.Millisecond &&
				w.sched.activeCount > 0 {
				log.Warn().Str("component", "sched").Str("run_id", w.sched.runID).Str("worker", idToStr(w.id)).
					Msg("no runnable processes for longer than the deadlock-advisory window")
				idleSince = time.Now()
			}
			time.Sleep(time.Millisecond)
			continue
		}
		idleSince = time.Time{}
		if p.Done() {
			// Already retired; a Wake can queue a finished process again.
			continue
		}

		p.RunCount.Add(1)
		p.Dispatch()

		if p.Done() {
			w.sched.countMu.Lock()
			w.sched.activeCount--
			w.sched.countMu.Unlock()
			w.sched.activeProcs.Done()
			continue
		}
		if p.State() == process.StateReady {
			w.local.push(p)
		}
		// A process left in StateWaiting is not re-queued here; Wake
		// re-enqueues it. arnm_receive never sets StateWaiting: it polls
		// with Yield, so a receiving process comes back Ready above.
	}
}

// next pops a ready process from w's own queue, falling back to stealing
// half of a random sibling's queue, then the global queue — the same
// three-tier lookup order sched_next documents for the C scheduler.
func (w *worker) next() *process.Process {
	if p := w.local.pop(); p != nil {
		return p
	}
	siblings := w.sched.workers
	start := rand.Intn(len(siblings))
	for i := 0; i < len(siblings); i++ {
		sib := siblings[(start+i)%len(siblings)]
		if sib == w {
			continue
		}
		if stolen := sib.local.stealHalf(); len(stolen) > 0 {
			for _, p := range stolen[1:] {
				w.local.push(p)
			}
			return stolen[0]
		}
	}
	return w.sched.global.pop()
}

// Wake re-enqueues a parked process onto its last worker's local queue,
// called by runtime/abi once a message lands in that process's mailbox.
func (s *Scheduler) Wake(p *process.Process) {
	if int(p.WorkerID) < len(s.workers) {
		s.workers[p.WorkerID].local.push(p)
		return
	}
	s.global.push(p)
}

func idToStr(id uint32) string {
	const digits = "0123456789"
	if id == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for id > 0 {
		i--
		buf[i] = digits[id%10]
		id /= 10
	}
	return string(buf[i:])
}
