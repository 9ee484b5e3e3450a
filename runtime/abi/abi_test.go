package abi

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnm-lang/arnm/internal/config"
	"github.com/arnm-lang/arnm/runtime/process"
)

func testRuntime(t *testing.T) *Runtime {
	t.Helper()
	cfg := &config.RuntimeConfig{
		Workers:            2,
		StackSizeBytes:     16 * 1024,
		MailboxCapacity:    8,
		MailboxOverflow:    "block",
		DeadlockAdvisoryMs: 200,
	}
	r := Init(cfg)
	t.Cleanup(Shutdown)
	return r
}

func TestSpawnRunsEntry(t *testing.T) {
	testRuntime(t)
	ran := make(chan struct{})
	Spawn(func(*process.Process) { close(ran) }, nil, 8)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for spawned entry to run")
	}
	Wait()
}

func TestSelfInsideEntryMatchesHandle(t *testing.T) {
	testRuntime(t)
	selfCh := make(chan *process.Process, 1)
	p := Spawn(func(*process.Process) {
		selfCh <- Self()
	}, nil, 8)
	Wait()
	select {
	case got := <-selfCh:
		assert.Same(t, p, got, "expected arnm_self to resolve to the spawning process's handle")
	default:
		t.Fatalf("entry did not report Self()")
	}
}

func TestSendThenReceiveRoundTrips(t *testing.T) {
	testRuntime(t)
	var gotTag int32
	var mu sync.Mutex
	receiverDone := make(chan struct{})

	receiver := Spawn(func(*process.Process) {
		m := Receive()
		mu.Lock()
		gotTag = m.Tag
		mu.Unlock()
		close(receiverDone)
	}, nil, 8)

	Spawn(func(*process.Process) {
		if rc := Send(receiver, 42); rc != 0 {
			t.Errorf("expected arnm_send to succeed, got rc=%d", rc)
		}
	}, nil, 8)

	select {
	case <-receiverDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for receive to complete")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, int32(42), gotTag)
	Wait()
}

func TestSendToNilTargetFails(t *testing.T) {
	testRuntime(t)
	require.NotZero(t, Send(nil, 1), "expected arnm_send to a nil target to fail")
}

func TestTryReceiveOnEmptyMailboxReturnsNil(t *testing.T) {
	testRuntime(t)
	done := make(chan struct{})
	Spawn(func(*process.Process) {
		if TryReceive() != nil {
			t.Errorf("expected arnm_try_receive on an empty mailbox to return nil")
		}
		close(done)
	}, nil, 8)
	<-done
	Wait()
}

func TestRunIDIsStableWhileRuntimeInstalled(t *testing.T) {
	testRuntime(t)
	id := RunID()
	require.NotEmpty(t, id)
	require.Equal(t, id, RunID(), "RunID should not change while the same runtime is installed")
}

func TestRunIDEmptyWithoutInstalledRuntime(t *testing.T) {
	require.Empty(t, RunID())
}
