package fusefs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func mustRange(t *testing.T, start, end uint64) Range {
	t.Helper()
	r, err := NewRange(start, end)
	if err != nil {
		t.Fatalf("NewRange(%d, %d) failed: %v", start, end, err)
	}
	return r
}

// Scenario 1: non-overlapping same-owner locks coexist as separate records.
func TestListScenarioNonOverlappingSameOwner(t *testing.T) {
	l := NewList[Pid]()
	ctx := context.Background()

	a := &Lock[Pid]{Owner: 1, Type: WRLCK, Range: mustRange(t, 0, 9), NonBlocking: true}
	b := &Lock[Pid]{Owner: 1, Type: WRLCK, Range: mustRange(t, 20, 29), NonBlocking: true}

	if err := l.SetLock(ctx, a); err != nil {
		t.Fatalf("SetLock a failed: %v", err)
	}
	if err := l.SetLock(ctx, b); err != nil {
		t.Fatalf("SetLock b failed: %v", err)
	}
	if got := l.Len(); got != 2 {
		t.Errorf("expected 2 records, got %d", got)
	}
}

// Scenario 2: adjacent same-type same-owner locks merge into one record.
func TestListScenarioAdjacentSameTypeMerges(t *testing.T) {
	l := NewList[Pid]()
	ctx := context.Background()

	a := &Lock[Pid]{Owner: 1, Type: WRLCK, Range: mustRange(t, 0, 9), NonBlocking: true}
	b := &Lock[Pid]{Owner: 1, Type: WRLCK, Range: mustRange(t, 10, 19), NonBlocking: true}

	if err := l.SetLock(ctx, a); err != nil {
		t.Fatalf("SetLock a failed: %v", err)
	}
	if err := l.SetLock(ctx, b); err != nil {
		t.Fatalf("SetLock b failed: %v", err)
	}

	snap := l.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected merge into 1 record, got %d: %+v", len(snap), snap)
	}
	if snap[0].Range.Start() != 0 || snap[0].Range.End() != 19 {
		t.Errorf("expected merged range [0,19], got %s", snap[0].Range)
	}
}

// Scenario 3: a different-type same-owner lock splits the existing record.
func TestListScenarioDifferentTypeSplits(t *testing.T) {
	l := NewList[Pid]()
	ctx := context.Background()

	whole := &Lock[Pid]{Owner: 1, Type: WRLCK, Range: mustRange(t, 0, 99), NonBlocking: true}
	if err := l.SetLock(ctx, whole); err != nil {
		t.Fatalf("SetLock whole failed: %v", err)
	}

	middle := &Lock[Pid]{Owner: 1, Type: RDLCK, Range: mustRange(t, 40, 59), NonBlocking: true}
	if err := l.SetLock(ctx, middle); err != nil {
		t.Fatalf("SetLock middle failed: %v", err)
	}

	snap := l.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 records after middle split, got %d: %+v", len(snap), snap)
	}
}

// Scenario 4: different-owner overlapping write locks conflict; TestLock
// reports the blocker's identity back into the probe.
func TestListScenarioConflictReportsBlocker(t *testing.T) {
	l := NewList[Pid]()
	ctx := context.Background()

	held := &Lock[Pid]{Owner: 1, Type: WRLCK, Range: mustRange(t, 0, 99), Pid: 111, NonBlocking: true}
	if err := l.SetLock(ctx, held); err != nil {
		t.Fatalf("SetLock held failed: %v", err)
	}

	probe := &Lock[Pid]{Owner: 2, Type: RDLCK, Range: mustRange(t, 50, 60)}
	l.TestLock(probe)

	if probe.Type != WRLCK {
		t.Errorf("expected probe to report WRLCK, got %v", probe.Type)
	}
	if probe.Owner != 1 || probe.Pid != 111 {
		t.Errorf("expected probe to report blocker identity, got owner=%v pid=%d", probe.Owner, probe.Pid)
	}
}

// Scenario 5: a non-blocking SetLock against a conflicting range fails
// immediately with ErrWouldBlock and never installs the record.
func TestListScenarioNonBlockingConflictFails(t *testing.T) {
	l := NewList[Pid]()
	ctx := context.Background()

	held := &Lock[Pid]{Owner: 1, Type: WRLCK, Range: mustRange(t, 0, 99), NonBlocking: true}
	if err := l.SetLock(ctx, held); err != nil {
		t.Fatalf("SetLock held failed: %v", err)
	}

	conflicting := &Lock[Pid]{Owner: 2, Type: WRLCK, Range: mustRange(t, 50, 150), NonBlocking: true}
	if err := l.SetLock(ctx, conflicting); !errors.Is(err, ErrWouldBlock) {
		t.Errorf("expected ErrWouldBlock, got %v", err)
	}
	if got := l.Len(); got != 1 {
		t.Errorf("expected conflicting lock to not be installed, list has %d records", got)
	}
}

// Scenario 6: Unlock releasing the middle of a held range splits it into
// two surviving records and wakes any waiter that now fits.
func TestListScenarioUnlockSplitWakesWaiter(t *testing.T) {
	l := NewList[Pid]()
	ctx := context.Background()

	whole := &Lock[Pid]{Owner: 1, Type: WRLCK, Range: mustRange(t, 0, 99), NonBlocking: true}
	if err := l.SetLock(ctx, whole); err != nil {
		t.Fatalf("SetLock whole failed: %v", err)
	}

	blockedDone := make(chan error, 1)
	go func() {
		blocked := &Lock[Pid]{Owner: 2, Type: WRLCK, Range: mustRange(t, 40, 49)}
		blockedDone <- l.SetLock(ctx, blocked)
	}()

	// Give the blocked goroutine a chance to register as a waiter.
	time.Sleep(20 * time.Millisecond)

	l.Unlock(&Lock[Pid]{Owner: 1, Range: mustRange(t, 40, 49)})

	if err := <-blockedDone; err != nil {
		t.Fatalf("blocked SetLock returned error: %v", err)
	}

	snap := l.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 records (two splits of owner 1 + owner 2's), got %d: %+v", len(snap), snap)
	}
}

func TestListReleaseOwnerDropsOnlyThatOwner(t *testing.T) {
	l := NewList[Pid]()
	ctx := context.Background()

	a := &Lock[Pid]{Owner: 1, Type: WRLCK, Range: mustRange(t, 0, 9), NonBlocking: true}
	b := &Lock[Pid]{Owner: 2, Type: WRLCK, Range: mustRange(t, 20, 29), NonBlocking: true}
	if err := l.SetLock(ctx, a); err != nil {
		t.Fatalf("SetLock a failed: %v", err)
	}
	if err := l.SetLock(ctx, b); err != nil {
		t.Fatalf("SetLock b failed: %v", err)
	}

	l.ReleaseOwner(1)

	snap := l.Snapshot()
	if len(snap) != 1 || snap[0].Owner != 2 {
		t.Fatalf("expected only owner 2's lock to survive, got %+v", snap)
	}
}

func TestListUnlockNonExistentIsNoop(t *testing.T) {
	l := NewList[Pid]()
	l.Unlock(&Lock[Pid]{Owner: 1, Range: mustRange(t, 0, 99)})
	if got := l.Len(); got != 0 {
		t.Errorf("expected empty list, got %d records", got)
	}
}
