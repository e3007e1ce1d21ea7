package fusefs

import (
	"context"
	"errors"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// LockManager manages file locks for the FUSE filesystem.
//
// It provides:
//   - BSD-style flock (whole-file locks)
//   - POSIX locks (byte-range locks)
//   - Per-file lock tracking
//
// Both families are backed by the same generic lock list engine (see
// lockengine.go), keyed by path rather than a real inode number — absfs
// doesn't reliably hand out stable inode numbers, so path is the
// practical substitute, same as the rest of this package's caches. flock
// and POSIX locks live in independent tables, matching the kernel's own
// rule that the two lock families never conflict with each other.
//
// All methods are thread-safe.
type LockManager struct {
	// POSIX byte-range locks (fcntl F_SETLK/F_SETLKW), owner = lock-owner
	// token handed to us by the kernel.
	posixInodes *InodeTable[uint64]

	// BSD-style flock, modeled as a single whole-file Lock per owner —
	// LOCK_SH becomes RDLCK, LOCK_EX becomes WRLCK, and the engine's
	// existing same-owner/merge rules give flock's upgrade, downgrade,
	// and idempotent-relock behavior for free.
	flockInodes *InodeTable[uint64]

	// stats records lock conflicts and waits; nil is valid and simply
	// disables the counters (used by tests that construct a LockManager
	// directly).
	stats *statsCollector
}

// NewLockManager creates a new lock manager. stats may be nil.
func NewLockManager(stats *statsCollector) *LockManager {
	return &LockManager{
		posixInodes: NewInodeTable[uint64](),
		flockInodes: NewInodeTable[uint64](),
		stats:       stats,
	}
}

func (lm *LockManager) recordConflict() {
	if lm.stats != nil {
		lm.stats.recordLockConflict()
	}
}

func (lm *LockManager) recordWait() {
	if lm.stats != nil {
		lm.stats.recordLockWait()
	}
}

// Getlk tests for a POSIX lock (F_GETLK).
func (lm *LockManager) Getlk(path string, owner uint64, lk *fuse.FileLock) syscall.Errno {
	rng, empty, err := fuseRangeToEngineRange(lk.Start, lk.End)
	if err != nil {
		return mapEngineError(err)
	}
	if empty {
		lk.Typ = syscall.F_UNLCK
		return 0
	}

	typ, err := lockTypeFromFUSE(lk.Typ)
	if err != nil {
		return mapEngineError(err)
	}

	probe := &Lock[uint64]{Owner: owner, Type: typ, Range: rng}
	lm.posixInodes.Get(path).Locks().TestLock(probe)

	if probe.Type == UNLCK {
		lk.Typ = syscall.F_UNLCK
		return 0
	}

	lk.Typ = fuseTypeFromLock(probe.Type)
	lk.Start = probe.Range.Start()
	lk.End = engineEndToFUSE(probe.Range.End())
	lk.Pid = uint32(probe.Pid)
	return 0
}

// Setlk sets or clears a POSIX lock (F_SETLK, non-blocking). FUSE never
// truly suspends the calling goroutine here: the kernel itself retries
// F_SETLKW by re-issuing the request, so every engine call this method
// makes is built with NonBlocking set. Real suspension — for a caller
// that can afford to wait and wants the request canceled if its context
// is — lives in setlkCtx, used by fuseFileHandle.Setlkw.
func (lm *LockManager) Setlk(path string, owner uint64, lk *fuse.FileLock) syscall.Errno {
	if lk.Typ == syscall.F_UNLCK {
		return lm.unlockPosix(path, owner, lk)
	}
	return lm.setlkCtx(context.Background(), path, owner, lk, true)
}

// Setlkw sets or clears a POSIX lock (F_SETLKW). Kept non-blocking for
// the same reason Setlk is: FUSE's own retry loop is what provides the
// "blocking" behavior at this layer when called directly. Callers that
// hold a real context and want genuine suspension should go through
// fuseFileHandle.Setlkw instead, which calls setlkCtx with
// nonBlocking=false.
func (lm *LockManager) Setlkw(path string, owner uint64, lk *fuse.FileLock) syscall.Errno {
	return lm.Setlk(path, owner, lk)
}

// setlkCtx is the real implementation shared by Setlk and the FUSE
// handle's blocking Setlkw. When nonBlocking is false, ctx governs how
// long the caller is willing to suspend — it is forwarded straight to
// the engine's single suspension point.
func (lm *LockManager) setlkCtx(ctx context.Context, path string, owner uint64, lk *fuse.FileLock, nonBlocking bool) syscall.Errno {
	rng, empty, err := fuseRangeToEngineRange(lk.Start, lk.End)
	if err != nil {
		return mapEngineError(err)
	}
	if empty {
		return 0
	}

	typ, err := lockTypeFromFUSE(lk.Typ)
	if err != nil {
		return mapEngineError(err)
	}

	newLock := &Lock[uint64]{
		Owner:       owner,
		Type:        typ,
		Range:       rng,
		Pid:         int32(lk.Pid),
		NonBlocking: nonBlocking,
	}

	list := lm.posixInodes.Get(path).Locks()
	if !nonBlocking {
		// Probe without blocking first, so a wait is recorded only when
		// a conflicting record is actually found.
		newLock.NonBlocking = true
		err = list.SetLock(ctx, newLock)
		if !errors.Is(err, ErrWouldBlock) {
			return mapEngineError(err)
		}
		lm.recordWait()
		newLock.NonBlocking = false
	}
	err = list.SetLock(ctx, newLock)
	if errors.Is(err, ErrWouldBlock) {
		lm.recordConflict()
	}
	return mapEngineError(err)
}

// unlockPosix removes a POSIX lock.
func (lm *LockManager) unlockPosix(path string, owner uint64, lk *fuse.FileLock) syscall.Errno {
	rng, empty, err := fuseRangeToEngineRange(lk.Start, lk.End)
	if err != nil {
		return mapEngineError(err)
	}
	if empty {
		return 0
	}
	lm.posixInodes.Get(path).Locks().Unlock(&Lock[uint64]{Owner: owner, Range: rng})
	return 0
}

// Flock acquires or releases a BSD-style flock.
func (lm *LockManager) Flock(path string, owner uint64, flags uint32) syscall.Errno {
	if flags&syscall.LOCK_UN != 0 {
		return lm.flockUnlock(path, owner)
	}

	typ := RDLCK
	if flags&syscall.LOCK_EX != 0 {
		typ = WRLCK
	}

	whole, err := NewRange(0, OffsetMax)
	if err != nil {
		return mapEngineError(err)
	}

	newLock := &Lock[uint64]{Owner: owner, Type: typ, Range: whole, NonBlocking: true}
	list := lm.flockInodes.Get(path).Locks()

	err = list.SetLock(context.Background(), newLock)
	if err == nil {
		return 0
	}
	if errors.Is(err, ErrWouldBlock) {
		lm.recordConflict()
		if flags&syscall.LOCK_NB != 0 {
			return syscall.EWOULDBLOCK
		}
		return syscall.EAGAIN
	}
	return mapEngineError(err)
}

// flockUnlock releases a flock for the given owner.
func (lm *LockManager) flockUnlock(path string, owner uint64) syscall.Errno {
	whole, err := NewRange(0, OffsetMax)
	if err != nil {
		return mapEngineError(err)
	}
	lm.flockInodes.Get(path).Locks().Unlock(&Lock[uint64]{Owner: owner, Range: whole})
	return 0
}

// ReleaseOwner releases all locks held by an owner, in both families
// (called on file close).
func (lm *LockManager) ReleaseOwner(owner uint64) {
	lm.flockInodes.ReleaseOwnerEverywhere(owner)
	lm.posixInodes.ReleaseOwnerEverywhere(owner)
}

// rangesOverlap checks if two half-open byte ranges overlap, using
// FUSE's own [start, end) convention with end == ^uint64(0) meaning "to
// EOF". Kept as a standalone helper independent of the Range engine type
// because it operates directly on the wire convention fuse.FileLock
// uses, not the closed-interval convention Range does.
func (lm *LockManager) rangesOverlap(start1, end1, start2, end2 uint64) bool {
	if end1 == 0xFFFFFFFFFFFFFFFF {
		end1 = ^uint64(0)
	}
	if end2 == 0xFFFFFFFFFFFFFFFF {
		end2 = ^uint64(0)
	}
	return start1 < end2 && start2 < end1
}

// Getlk implements POSIX lock testing.
func (fh *fuseFileHandle) Getlk(ctx context.Context, owner uint64, lk *fuse.FileLock, flags uint32, out *fuse.FileLock) syscall.Errno {
	fh.node.fusefs.stats.recordOperation()

	*out = *lk
	return fh.node.fusefs.lockManager.Getlk(fh.node.path, owner, out)
}

// Setlk implements POSIX lock acquisition (non-blocking).
func (fh *fuseFileHandle) Setlk(ctx context.Context, owner uint64, lk *fuse.FileLock, flags uint32) syscall.Errno {
	fh.node.fusefs.stats.recordOperation()

	return fh.node.fusefs.lockManager.Setlk(fh.node.path, owner, lk)
}

// Setlkw implements POSIX lock acquisition (blocking). Unlike
// LockManager.Setlkw, this goes through setlkCtx with nonBlocking=false:
// the calling goroutine genuinely suspends on conflict, waking either
// when the conflicting record clears or when ctx is canceled (the kernel
// cancels in-flight requests on F_SETLKW interruption).
func (fh *fuseFileHandle) Setlkw(ctx context.Context, owner uint64, lk *fuse.FileLock, flags uint32) syscall.Errno {
	fh.node.fusefs.stats.recordOperation()

	if lk.Typ == syscall.F_UNLCK {
		return fh.node.fusefs.lockManager.unlockPosix(fh.node.path, owner, lk)
	}
	return fh.node.fusefs.lockManager.setlkCtx(ctx, fh.node.path, owner, lk, false)
}

// Flock implements BSD-style file locking.
func (fh *fuseFileHandle) Flock(ctx context.Context, owner uint64, flags uint32) syscall.Errno {
	fh.node.fusefs.stats.recordOperation()

	return fh.node.fusefs.lockManager.Flock(fh.node.path, owner, flags)
}

// Ensure fuseFileHandle implements locking interfaces
var _ fs.FileGetlker = (*fuseFileHandle)(nil)
var _ fs.FileSetlker = (*fuseFileHandle)(nil)
var _ fs.FileSetlkwer = (*fuseFileHandle)(nil)

// Note: Flock is implemented but FileFflocker interface may not be in all go-fuse versions
