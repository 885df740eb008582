package gateway

import (
	"testing"
	"time"
)

func TestConnectionBindSession(t *testing.T) {
	conn := NewConnection(nil, 1, time.Second)
	defer func() { _ = conn.Close() }()

	code, pid := conn.Session()
	if code != "" || pid != "" {
		t.Errorf("fresh connection should be unbound, got %q/%q", code, pid)
	}

	conn.BindSession("A2C4E", "s1")
	code, pid = conn.Session()
	if code != "A2C4E" || pid != "s1" {
		t.Errorf("got %q/%q", code, pid)
	}
}

func TestWriteJSONAfterClose(t *testing.T) {
	conn := NewConnection(nil, 1, time.Second)
	if err := conn.Close(); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(map[string]string{"a": "b"}); err != ErrConnectionClosed {
		t.Errorf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	conn := NewConnection(nil, 1, time.Second)
	_ = conn.Close()
	if err := conn.Close(); err != nil {
		t.Errorf("second close returned %v", err)
	}
}

func TestConnRegistryInstanceMatchedUnregister(t *testing.T) {
	r := newConnRegistry()

	a := NewConnection(nil, 1, time.Second)
	defer func() { _ = a.Close() }()
	if err := r.register(a); err != nil {
		t.Fatal(err)
	}
	if r.count() != 1 {
		t.Fatalf("count = %d", r.count())
	}

	got, ok := r.get(a.ID())
	if !ok || got != a {
		t.Fatal("lookup failed")
	}

	// Unregistering a different instance must not evict the registered one.
	b := NewConnection(nil, 1, time.Second)
	defer func() { _ = b.Close() }()
	r.unregister(b)
	if r.count() != 1 {
		t.Errorf("unrelated unregister evicted a connection")
	}

	r.unregister(a)
	if r.count() != 0 {
		t.Errorf("count after unregister = %d", r.count())
	}
	r.unregister(a) // idempotent
}

func TestRegisterNilConnection(t *testing.T) {
	r := newConnRegistry()
	if err := r.register(nil); err != ErrNilConnection {
		t.Errorf("expected ErrNilConnection, got %v", err)
	}
}
