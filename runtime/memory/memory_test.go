package memory

import "testing"

func TestReleaseRunsDestructorAtZero(t *testing.T) {
	ran := false
	o := Alloc(8, func(payload []byte) { ran = true })
	Retain(o)
	Release(o)
	if ran {
		t.Fatalf("destructor should not run while refcount > 0")
	}
	Release(o)
	if !ran {
		t.Fatalf("expected destructor to run once refcount reaches zero")
	}
}

func TestRefcountTracksRetainRelease(t *testing.T) {
	o := Alloc(8, nil)
	if Refcount(o) != 1 {
		t.Fatalf("expected initial refcount 1, got %d", Refcount(o))
	}
	Retain(o)
	if Refcount(o) != 2 {
		t.Fatalf("expected refcount 2 after retain, got %d", Refcount(o))
	}
	Release(o)
	if Refcount(o) != 1 {
		t.Fatalf("expected refcount 1 after release, got %d", Refcount(o))
	}
}

func TestPoolReusesBlocks(t *testing.T) {
	p := NewPool(16, 2)
	b1 := p.Get()
	b1[0] = 0xFF
	p.Put(b1)
	b2 := p.Get()
	if b2[0] != 0 {
		t.Fatalf("expected a reused block to be zeroed, got %v", b2[0])
	}
}

func TestAllocStackGuardsBelow(t *testing.T) {
	s, err := AllocStack(4096)
	if err != nil {
		t.Fatalf("unexpected error allocating stack: %v", err)
	}
	defer s.Free()
	if len(s.Bytes()) < 4096 {
		t.Fatalf("expected at least 4096 usable bytes, got %d", len(s.Bytes()))
	}
	s.Bytes()[0] = 1
	s.Bytes()[len(s.Bytes())-1] = 1
}
