package presence

import (
	"fmt"
	"sort"
	"sync"
	"testing"
)

func TestRegisterAndConnectionsOf(t *testing.T) {
	r := NewRegistry()

	r.Register("acc-1", "conn-1")
	r.Register("acc-1", "conn-2")
	r.Register("acc-2", "conn-3")

	conns := r.ConnectionsOf("acc-1")
	sort.Strings(conns)
	if len(conns) != 2 || conns[0] != "conn-1" || conns[1] != "conn-2" {
		t.Errorf("expected [conn-1 conn-2], got %v", conns)
	}

	conns = r.ConnectionsOf("acc-2")
	if len(conns) != 1 || conns[0] != "conn-3" {
		t.Errorf("expected [conn-3], got %v", conns)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := NewRegistry()

	r.Register("acc-1", "conn-1")
	r.Register("acc-1", "conn-1")

	if got := r.ConnectionCount("acc-1"); got != 1 {
		t.Errorf("expected 1 connection, got %d", got)
	}
}

func TestUnregisterRemovesConnection(t *testing.T) {
	r := NewRegistry()

	r.Register("acc-1", "conn-1")
	r.Unregister("acc-1", "conn-1")

	if conns := r.ConnectionsOf("acc-1"); len(conns) != 0 {
		t.Errorf("expected no connections, got %v", conns)
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry()

	r.Register("acc-1", "conn-1")
	r.Register("acc-1", "conn-2")
	r.Unregister("acc-1", "conn-1")
	after := r.ConnectionsOf("acc-1")

	// Second removal of the same connection changes nothing.
	r.Unregister("acc-1", "conn-1")
	again := r.ConnectionsOf("acc-1")

	if len(after) != len(again) {
		t.Errorf("second unregister changed the set: %v vs %v", after, again)
	}
	if len(again) != 1 || again[0] != "conn-2" {
		t.Errorf("expected [conn-2], got %v", again)
	}
}

func TestUnregisterUnknownAccount(t *testing.T) {
	r := NewRegistry()

	// Must not panic or create an entry.
	r.Unregister("ghost", "conn-1")

	if conns := r.ConnectionsOf("ghost"); len(conns) != 0 {
		t.Errorf("expected empty set for unknown account, got %v", conns)
	}
}

func TestConnectionsOfReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.Register("acc-1", "conn-1")

	conns := r.ConnectionsOf("acc-1")
	conns[0] = "mutated"

	fresh := r.ConnectionsOf("acc-1")
	if len(fresh) != 1 || fresh[0] != "conn-1" {
		t.Errorf("registry state leaked through returned slice: %v", fresh)
	}
}

func TestConcurrentRegisterUnregister(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := fmt.Sprintf("conn-%d", i)
			r.Register("acc-1", conn)
			r.Unregister("acc-1", conn)
		}(i)
	}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Register("acc-2", fmt.Sprintf("conn-%d", i))
		}(i)
	}
	wg.Wait()

	if got := r.ConnectionCount("acc-1"); got != 0 {
		t.Errorf("expected acc-1 drained, got %d connections", got)
	}
	if got := r.ConnectionCount("acc-2"); got != 50 {
		t.Errorf("expected 50 connections for acc-2, got %d", got)
	}
}
