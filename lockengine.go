package fusefs

import (
	"context"
	"sync"
)

// List is the per-inode ordered collection of Lock records — the lock
// engine itself. The following ordering invariants hold after every
// successful TestLock/SetLock/Unlock:
//
//  1. Locks are grouped by owner; a given owner's records are contiguous.
//  2. Within an owner group, records are sorted by ascending start.
//  3. Within an owner group, adjacent/overlapping same-type records are
//     merged into one.
//  4. Within an owner group, different-type records never overlap.
//  5. Records of different owners may overlap freely.
//
// A single sync.RWMutex serializes all three operations: TestLock takes
// the read side, SetLock and Unlock take the write side. It must never be
// held across a wait — SetLock's retry loop drops it before suspending a
// blocked waiter and re-acquires it on wake.
type List[O comparable] struct {
	mu    sync.RWMutex
	locks []*Lock[O]
}

// NewList returns an empty lock list.
func NewList[O comparable]() *List[O] {
	return &List[O]{}
}

// TestLock probes whether probe would conflict with anything already
// held. If a conflicting record is found, probe is overwritten (owner,
// type, range — waiters untouched) with that record's identity, the same
// contract fcntl's F_GETLK has. If nothing conflicts, probe.Type is set
// to UNLCK. TestLock never blocks.
func (l *List[O]) TestLock(probe *Lock[O]) {
	engineLog.WithFields(logFields("TestLock", probe)).Debug("testing lock")

	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, existing := range l.locks {
		if existing.ConflictWith(probe) {
			probe.resetBy(existing)
			return
		}
	}
	probe.Type = UNLCK
}

// SetLock installs new into the list, blocking (unless new.NonBlocking is
// set) until no conflicting record remains. ctx governs the blocking
// wait; a nil ctx waits with no deadline, matching the engine's "no
// timeout" contract. There is exactly one suspension point: between
// dropping the write lock and the waiter's Wait call below; nothing else
// in the engine blocks.
func (l *List[O]) SetLock(ctx context.Context, new *Lock[O]) error {
	engineLog.WithFields(logFields("SetLock", new)).Debug("setting lock")

	for {
		l.mu.Lock()

		conflict := l.findConflict(new)
		if conflict == nil {
			l.insert(new)
			l.mu.Unlock()
			return nil
		}

		if new.NonBlocking {
			l.mu.Unlock()
			return ErrWouldBlock
		}

		engineLog.Warn("no deadlock detection: blocking set_lock may wait indefinitely")
		waiter := NewWaiter()
		conflict.enqueueWaiter(waiter)
		l.mu.Unlock()

		if err := waiter.Wait(ctx); err != nil {
			return err
		}
		// Woken; re-probe for conflict rather than assuming priority —
		// a fresh set_lock caller may have slipped in ahead of us.
	}
}

func (l *List[O]) findConflict(new *Lock[O]) *Lock[O] {
	for _, existing := range l.locks {
		if existing.ConflictWith(new) {
			return existing
		}
	}
	return nil
}

// insert installs new into the list, restoring the ordering/merging
// invariants it temporarily violates. Precondition: the write lock is
// held and new does not conflict with anything in the list.
func (l *List[O]) insert(new *Lock[O]) {
	firstSameOwner := -1
	for i, existing := range l.locks {
		if existing.sameOwnerAs(new) {
			firstSameOwner = i
			break
		}
	}
	if firstSameOwner < 0 {
		l.locks = append([]*Lock[O]{new}, l.locks...)
		return
	}

	l.locks = insertAt(l.locks, firstSameOwner, new)
	preIdx := firstSameOwner
	nextIdx := preIdx + 1

	for nextIdx < len(l.locks) {
		pre := l.locks[preIdx]
		next := l.locks[nextIdx]

		if !next.sameOwnerAs(pre) {
			break
		}

		if next.sameTypeAs(pre) {
			switch {
			case pre.Range.InFrontOf(next.Range):
				return
			case next.Range.InFrontOf(pre.Range):
				l.locks[preIdx], l.locks[nextIdx] = l.locks[nextIdx], l.locks[preIdx]
				preIdx++
				nextIdx++
			default:
				// Merge pre into next and drop pre. Removing at preIdx
				// shifts everything after it down by one, so the merged
				// record (formerly at nextIdx) now sits at preIdx; the
				// cursor values themselves are left unchanged.
				next.mergeRangeWith(pre)
				pre.drop()
				l.locks = removeAt(l.locks, preIdx)
			}
			continue
		}

		// Different type: split/replace.
		switch {
		case pre.Range.InFrontOfOrAdjacentBefore(next.Range):
			return
		case next.Range.InFrontOfOrAdjacentBefore(pre.Range):
			l.locks[preIdx], l.locks[nextIdx] = l.locks[nextIdx], l.locks[preIdx]
			preIdx++
			nextIdx++
		case pre.Range.LeftOverlapsWith(next.Range):
			next.SetStart(pre.Range.End() + 1)
			return
		case pre.Range.MiddleOverlapsWith(next.Range):
			right := next.clone()
			right.SetStart(pre.Range.End() + 1)
			next.SetEnd(pre.Range.Start() - 1)
			l.locks[preIdx], l.locks[nextIdx] = l.locks[nextIdx], l.locks[preIdx]
			l.locks = insertAt(l.locks, nextIdx+1, right)
			return
		case pre.Range.RightOverlapsWith(next.Range):
			next.SetEnd(pre.Range.Start() - 1)
			l.locks[preIdx], l.locks[nextIdx] = l.locks[nextIdx], l.locks[preIdx]
			preIdx++
			nextIdx++
		default:
			// pre fully covers next: new lock replaces the old one.
			next.drop()
			l.locks = removeAt(l.locks, nextIdx)
		}
	}
}

// Unlock clears new's range from whatever new's owner currently holds,
// splitting and shrinking existing records as needed. Any record that
// shrinks or is removed wakes its waiters automatically (see Lock.SetStart
// / Lock.SetEnd / Lock.drop).
func (l *List[O]) Unlock(unlk *Lock[O]) {
	engineLog.WithFields(logFields("Unlock", unlk)).Debug("unlocking")

	l.mu.Lock()
	defer l.mu.Unlock()

	skip := 0
	for {
		idx := -1
		for i := skip; i < len(l.locks); i++ {
			existing := l.locks[i]
			if existing.sameOwnerAs(unlk) && existing.Range.OverlapsWith(unlk.Range) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}

		existing := l.locks[idx]
		switch {
		case unlk.Range.LeftOverlapsWith(existing.Range):
			existing.SetStart(unlk.Range.End() + 1)
			return
		case unlk.Range.MiddleOverlapsWith(existing.Range):
			right := existing.clone()
			right.SetStart(unlk.Range.End() + 1)
			existing.SetEnd(unlk.Range.Start() - 1)
			l.locks = insertAt(l.locks, idx+1, right)
			return
		case unlk.Range.RightOverlapsWith(existing.Range):
			existing.SetEnd(unlk.Range.Start() - 1)
			skip = idx + 1
		default:
			existing.drop()
			l.locks = removeAt(l.locks, idx)
			skip = idx
		}
	}
}

// ReleaseOwner drops every record held by owner, waking their waiters.
// Used by the inode fd-close teardown path (see Inode.Close).
func (l *List[O]) ReleaseOwner(owner O) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.locks[:0:0]
	for _, existing := range l.locks {
		if existing.Owner == owner {
			existing.drop()
			continue
		}
		kept = append(kept, existing)
	}
	l.locks = kept
}

// Len reports how many records the list currently holds. Used by the
// inode-table teardown path to decide whether an inode entry can be
// forgotten once an owner's locks are released.
func (l *List[O]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.locks)
}

// Snapshot returns a shallow copy of the current records, in list order,
// for inspection (tests, invariant checks, debugging). The waiter queues
// of the originals are not copied into the snapshot's clones.
func (l *List[O]) Snapshot() []Lock[O] {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Lock[O], len(l.locks))
	for i, existing := range l.locks {
		out[i] = *existing.clone()
	}
	return out
}

func insertAt[T any](s []T, idx int, v T) []T {
	s = append(s, v)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func removeAt[T any](s []T, idx int) []T {
	return append(s[:idx], s[idx+1:]...)
}

func logFields[O comparable](op string, lk *Lock[O]) map[string]interface{} {
	return map[string]interface{}{
		"op":    op,
		"owner": lk.Owner,
		"type":  lk.Type.String(),
		"range": lk.Range.String(),
	}
}
