package fusefs

import "fmt"

// LockType is the kind of a Lock record, mirroring fcntl's F_RDLCK/F_WRLCK/
// F_UNLCK codes (see fcntl.go for the wire values).
type LockType int

const (
	RDLCK LockType = iota
	WRLCK
	UNLCK
)

func (t LockType) String() string {
	switch t {
	case RDLCK:
		return "RDLCK"
	case WRLCK:
		return "WRLCK"
	case UNLCK:
		return "UNLCK"
	default:
		return "UNKNOWN"
	}
}

// Lock is one byte-range lock record, generic over the owner-identity
// type O: Pid for traditional POSIX range locks keyed by process id, or
// (at the FUSE boundary, see locks.go, for both the POSIX and the BSD
// flock family) the plain uint64 lock-owner token the kernel hands us.
//
// A Lock of type UNLCK never resides in a list; UNLCK only appears as an
// input to Unlock or as the "no conflict" result of TestLock.
type Lock[O comparable] struct {
	Owner O
	Type  LockType
	Range Range

	// Pid is metadata copied into/out of the fcntl boundary struct's
	// l_pid; it plays no part in conflict detection, which is keyed
	// entirely on Owner (see ConflictWith).
	Pid int32

	// NonBlocking decides SetLock's behavior on conflict: carried on the
	// lock itself rather than threaded through every call, so
	// LockBuilder.Build is the one place that defaults it.
	NonBlocking bool

	waiters *waiterQueue
}

// ConflictWith reports whether l and other conflict: different owners,
// overlapping ranges, and at least one of them a write lock. Locks from
// the same owner never conflict — POSIX semantics let a process replace
// or merge its own state freely.
func (l *Lock[O]) ConflictWith(other *Lock[O]) bool {
	if l.Owner == other.Owner {
		return false
	}
	if !l.Range.OverlapsWith(other.Range) {
		return false
	}
	return l.Type == WRLCK || other.Type == WRLCK
}

func (l *Lock[O]) sameOwnerAs(other *Lock[O]) bool {
	return l.Owner == other.Owner
}

func (l *Lock[O]) sameTypeAs(other *Lock[O]) bool {
	return l.Type == other.Type
}

// mergeRangeWith extends l's range to also cover other's. It is only ever
// called by lockengine.go once it has already confirmed the two ranges are
// adjacent or overlapping; a failure here means that precondition was
// violated somewhere upstream, which is an engine bug, not a recoverable
// condition.
func (l *Lock[O]) mergeRangeWith(other *Lock[O]) {
	if _, err := l.Range.Merge(other.Range); err != nil {
		panic(fmt.Sprintf("fusefs: merge of non-adjacent ranges: %v", err))
	}
}

// SetStart delegates to Range.SetStart and wakes every waiter if the
// range shrank — they may now fit in a range that previously conflicted
// with them.
func (l *Lock[O]) SetStart(newStart uint64) {
	report, err := l.Range.SetStart(newStart)
	if err != nil {
		panic(fmt.Sprintf("fusefs: invalid new start: %v", err))
	}
	if report == RangeShrink {
		l.dequeueAndWakeAllWaiters()
	}
}

// SetEnd delegates to Range.SetEnd and wakes every waiter if the range
// shrank.
func (l *Lock[O]) SetEnd(newEnd uint64) {
	report, err := l.Range.SetEnd(newEnd)
	if err != nil {
		panic(fmt.Sprintf("fusefs: invalid new end: %v", err))
	}
	if report == RangeShrink {
		l.dequeueAndWakeAllWaiters()
	}
}

// enqueueWaiter lazily creates the waiter queue on first blocker, then
// enqueues w onto it.
func (l *Lock[O]) enqueueWaiter(w *Waiter) {
	if l.waiters == nil {
		l.waiters = newWaiterQueue()
	}
	l.waiters.resetAndEnqueue(w)
}

func (l *Lock[O]) dequeueAndWakeAllWaiters() int {
	if l.waiters == nil {
		return 0
	}
	return l.waiters.dequeueAndWakeAll()
}

// resetBy overwrites owner, type, range, and pid from other, leaving l's
// own waiter queue untouched. Used only by TestLock to report the
// blocking lock's identity back into the caller's probe.
func (l *Lock[O]) resetBy(other *Lock[O]) {
	l.Owner = other.Owner
	l.Type = other.Type
	l.Range = other.Range
	l.Pid = other.Pid
}

// clone produces a value copy used to rewrite list entries — owner, type,
// range, and pid, but never the waiter queue. The queue belongs
// exclusively to the record installed in the list; cloning it would let
// two records wake each other's blockers.
func (l *Lock[O]) clone() *Lock[O] {
	return &Lock[O]{
		Owner:       l.Owner,
		Type:        l.Type,
		Range:       l.Range,
		Pid:         l.Pid,
		NonBlocking: l.NonBlocking,
	}
}

// drop wakes every waiter still queued on l. Called whenever a record is
// removed from a list (merged away or fully overwritten by insert, fully
// unlocked, or released by ReleaseOwner); the waiter queue has no
// independent lifetime past this point.
func (l *Lock[O]) drop() {
	l.dequeueAndWakeAllWaiters()
}

func (l *Lock[O]) String() string {
	return fmt.Sprintf("Lock{owner=%v type=%s range=%s pid=%d}", l.Owner, l.Type, l.Range, l.Pid)
}
