package fusefs

import (
	"sync"
	"testing"
)

func TestNewObjectIDNeverReturnsNull(t *testing.T) {
	for i := 0; i < 100; i++ {
		if id := NewObjectID(); id == ObjectIDNull {
			t.Fatalf("NewObjectID returned the null sentinel")
		}
	}
}

func TestNewObjectIDUnique(t *testing.T) {
	seen := make(map[ObjectID]bool)
	for i := 0; i < 1000; i++ {
		id := NewObjectID()
		if seen[id] {
			t.Fatalf("NewObjectID returned a duplicate id %v", id)
		}
		seen[id] = true
	}
}

func TestNewObjectIDConcurrentUnique(t *testing.T) {
	const n = 500
	ids := make(chan ObjectID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- NewObjectID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[ObjectID]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("concurrent NewObjectID calls produced a duplicate id %v", id)
		}
		seen[id] = true
	}
}

func TestObjectIDIdentityStableAcrossCalls(t *testing.T) {
	ident := NewObjectIDIdentity()
	first := ident.Owner()
	second := ident.Owner()
	if first != second {
		t.Errorf("expected ObjectIDIdentity.Owner() to be stable, got %v then %v", first, second)
	}
	if ObjectID(first) != ident.ObjectID() {
		t.Errorf("expected Owner() and ObjectID() to agree, got %v and %v", first, ident.ObjectID())
	}
}

func TestPidIdentityReturnsItsOwnPid(t *testing.T) {
	ident := NewPidIdentity(Pid(99))
	if got := ident.Owner(); got != Pid(99) {
		t.Errorf("expected Owner() 99, got %v", got)
	}
}
