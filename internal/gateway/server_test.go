package gateway

import (
	"testing"

	"github.com/BenderTales/tales-chat-api/internal/msgcat"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	catalog, err := msgcat.New()
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	return NewServer(":0", nil, catalog)
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	srv := newTestServer(t)
	first := newSession("Alice", "", nil)
	second := newSession("Alice", "", nil)

	if !srv.register(first) {
		t.Fatal("first registration rejected")
	}
	if srv.register(second) {
		t.Fatal("duplicate name accepted")
	}
	srv.unregister(first)
	if !srv.register(second) {
		t.Fatal("name not released on unregister")
	}
}

func TestRosterLookups(t *testing.T) {
	srv := newTestServer(t)
	alice := newSession("Alice", "spawn", nil)
	bob := newSession("Bob", "spawn", nil)
	srv.register(alice)
	srv.register(bob)

	if len(srv.List()) != 2 {
		t.Fatalf("List = %d sessions", len(srv.List()))
	}
	if got := srv.FindByID(alice.ID()); got == nil || got.Name() != "Alice" {
		t.Fatalf("FindByID = %v", got)
	}
	if got := srv.FindByName("Bob"); got == nil || got.ID() != bob.ID() {
		t.Fatalf("FindByName = %v", got)
	}
	if srv.FindByName("Ghost") != nil {
		t.Fatal("unknown name resolved")
	}
	if !srv.IsConnected(alice) || srv.IsConnected(nil) {
		t.Fatal("IsConnected wrong")
	}
	srv.unregister(alice)
	if srv.IsConnected(alice) {
		t.Fatal("unregistered session still connected")
	}
}

func TestDistanceUsesZones(t *testing.T) {
	srv := newTestServer(t)
	alice := newSession("Alice", "spawn", nil)
	bob := newSession("Bob", "spawn", nil)
	carol := newSession("Carol", "nether", nil)
	drifter := newSession("Drifter", "", nil)
	for _, sess := range []*Session{alice, bob, carol, drifter} {
		srv.register(sess)
	}

	if d, ok := srv.Distance(alice, bob); !ok || d != 0 {
		t.Fatalf("same zone = (%v, %v)", d, ok)
	}
	if _, ok := srv.Distance(alice, carol); ok {
		t.Fatal("different zones comparable")
	}
	if _, ok := srv.Distance(alice, drifter); ok {
		t.Fatal("zoneless session comparable")
	}
}
