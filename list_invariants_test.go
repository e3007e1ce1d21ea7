package fusefs

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// snapshotShape strips the parts of a Lock snapshot that Snapshot itself
// doesn't promise to preserve (NonBlocking, Pid) so invariant checks below
// compare only what P1-P5 actually constrain: owner, type, range.
type snapshotShape struct {
	Owner Pid
	Type  LockType
	Range Range
}

func shapesOf(snap []Lock[Pid]) []snapshotShape {
	out := make([]snapshotShape, len(snap))
	for i, l := range snap {
		out[i] = snapshotShape{Owner: l.Owner, Type: l.Type, Range: l.Range}
	}
	return out
}

// P1: records are grouped by owner - a given owner's records are contiguous.
func TestInvariantOwnerGrouping(t *testing.T) {
	l := NewList[Pid]()
	ctx := context.Background()

	locks := []*Lock[Pid]{
		{Owner: 1, Type: WRLCK, Range: mustRange(t, 0, 9), NonBlocking: true},
		{Owner: 2, Type: WRLCK, Range: mustRange(t, 100, 109), NonBlocking: true},
		{Owner: 1, Type: WRLCK, Range: mustRange(t, 200, 209), NonBlocking: true},
		{Owner: 3, Type: WRLCK, Range: mustRange(t, 300, 309), NonBlocking: true},
	}
	for _, lk := range locks {
		if err := l.SetLock(ctx, lk); err != nil {
			t.Fatalf("SetLock failed: %v", err)
		}
	}

	snap := l.Snapshot()
	seen := map[Pid]bool{}
	var lastOwner Pid
	haveLast := false
	for _, rec := range snap {
		if haveLast && rec.Owner != lastOwner && seen[rec.Owner] {
			t.Fatalf("owner %v's records are not contiguous: %+v", rec.Owner, shapesOf(snap))
		}
		seen[rec.Owner] = true
		lastOwner = rec.Owner
		haveLast = true
	}
}

// P2/P3: within an owner group, records are sorted ascending and adjacent
// same-type records are merged - verified via exact-shape comparison.
func TestInvariantSortedAndMergedWithinOwner(t *testing.T) {
	l := NewList[Pid]()
	ctx := context.Background()

	for _, rng := range [][2]uint64{{20, 29}, {0, 9}, {10, 19}} {
		lk := &Lock[Pid]{Owner: 1, Type: WRLCK, Range: mustRange(t, rng[0], rng[1]), NonBlocking: true}
		if err := l.SetLock(ctx, lk); err != nil {
			t.Fatalf("SetLock failed: %v", err)
		}
	}

	got := shapesOf(l.Snapshot())
	want := []snapshotShape{
		{Owner: 1, Type: WRLCK, Range: mustRange(t, 0, 29)},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(Range{})); diff != "" {
		t.Errorf("unexpected snapshot shape (-want +got):\n%s", diff)
	}
}

// P4: within an owner group, different-type records never overlap.
func TestInvariantDifferentTypesNeverOverlapSameOwner(t *testing.T) {
	l := NewList[Pid]()
	ctx := context.Background()

	whole := &Lock[Pid]{Owner: 1, Type: WRLCK, Range: mustRange(t, 0, 99), NonBlocking: true}
	if err := l.SetLock(ctx, whole); err != nil {
		t.Fatalf("SetLock failed: %v", err)
	}
	read := &Lock[Pid]{Owner: 1, Type: RDLCK, Range: mustRange(t, 30, 60), NonBlocking: true}
	if err := l.SetLock(ctx, read); err != nil {
		t.Fatalf("SetLock failed: %v", err)
	}

	snap := l.Snapshot()
	for i := range snap {
		for j := range snap {
			if i == j || snap[i].Owner != snap[j].Owner || snap[i].Type == snap[j].Type {
				continue
			}
			if snap[i].Range.OverlapsWith(snap[j].Range) {
				t.Fatalf("different-type same-owner records overlap: %+v vs %+v", snap[i], snap[j])
			}
		}
	}
}

// P5: records of different owners may overlap freely.
func TestInvariantDifferentOwnersMayOverlap(t *testing.T) {
	l := NewList[Pid]()
	ctx := context.Background()

	a := &Lock[Pid]{Owner: 1, Type: RDLCK, Range: mustRange(t, 0, 99), NonBlocking: true}
	b := &Lock[Pid]{Owner: 2, Type: RDLCK, Range: mustRange(t, 50, 149), NonBlocking: true}
	if err := l.SetLock(ctx, a); err != nil {
		t.Fatalf("SetLock a failed: %v", err)
	}
	if err := l.SetLock(ctx, b); err != nil {
		t.Fatalf("SetLock b failed: %v", err)
	}

	snap := l.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected both owners' records to coexist, got %+v", snap)
	}
}

// P6: a list with no records at all is a valid, empty steady state.
func TestInvariantEmptyListIsValid(t *testing.T) {
	l := NewList[Pid]()
	if diff := cmp.Diff([]snapshotShape{}, shapesOf(l.Snapshot()), cmpopts.EquateEmpty(), cmp.AllowUnexported(Range{})); diff != "" {
		t.Errorf("unexpected non-empty snapshot (-want +got):\n%s", diff)
	}
}
