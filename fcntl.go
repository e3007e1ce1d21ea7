package fusefs

import (
	"fmt"
	"math"

	"golang.org/x/sys/unix"
)

// Pid is the owner identity for the traditional fcntl byte-range lock
// family: the id of the process holding the lock, as reported in
// struct flock's l_pid field.
type Pid int32

// Whence codes for FcntlLock.Whence, matching fcntl(2)'s SEEK_* values.
// Sourced from golang.org/x/sys/unix rather than hand-rolled, same as
// the rest of the pack reaches for unix's syscall-numbering constants
// instead of redeclaring them.
const (
	SeekSet uint16 = unix.SEEK_SET
	SeekCur uint16 = unix.SEEK_CUR
	SeekEnd uint16 = unix.SEEK_END
)

// fcntl(2) lock-type wire codes, shared by both boundary adapters this
// file provides: the raw fcntl(2) struct below, and FUSE's own
// fuse.FileLock representation (see lockTypeFromFUSE/fuseTypeFromLock),
// which uses the identical F_RDLCK/F_WRLCK/F_UNLCK numbering.
const (
	fcntlRDLCK uint16 = unix.F_RDLCK
	fcntlWRLCK uint16 = unix.F_WRLCK
	fcntlUNLCK uint16 = unix.F_UNLCK
)

// FcntlLock is the bit-compatible layout of the fcntl(2) F_GETLK/F_SETLK
// control structure (struct flock / c_flock), field order preserved:
// type, whence, start, length, pid. Only this struct and the functions
// around it know about the wire format; the engine itself works in
// absolute Range values.
type FcntlLock struct {
	Type   uint16
	Whence uint16
	Start  int64
	Len    int64
	Pid    int32
}

// lockTypeFromWire is the single source of truth for translating a wire
// lock-type code into a LockType; both the raw fcntl(2) struct and FUSE's
// fuse.FileLock (via lockTypeFromFUSE) go through it.
func lockTypeFromWire(t uint16) (LockType, error) {
	switch t {
	case fcntlRDLCK:
		return RDLCK, nil
	case fcntlWRLCK:
		return WRLCK, nil
	case fcntlUNLCK:
		return UNLCK, nil
	default:
		return 0, fmt.Errorf("%w: invalid lock type %d", ErrInvalidArgument, t)
	}
}

// wireFromLockType is lockTypeFromWire's inverse, the single source of
// truth both CopyOutFcntlLock and FUSE's fuseTypeFromLock convert through.
func wireFromLockType(t LockType) uint16 {
	switch t {
	case RDLCK:
		return fcntlRDLCK
	case WRLCK:
		return fcntlWRLCK
	default:
		return fcntlUNLCK
	}
}

// lockTypeFromFUSE adapts a fuse.FileLock's 32-bit lock-type field (it
// uses the same F_RDLCK/F_WRLCK/F_UNLCK numbering as fcntl(2)) through
// lockTypeFromWire rather than re-implementing the switch.
func lockTypeFromFUSE(t uint32) (LockType, error) {
	return lockTypeFromWire(uint16(t))
}

// fuseTypeFromLock is the reverse of lockTypeFromFUSE.
func fuseTypeFromLock(t LockType) uint32 {
	return uint32(wireFromLockType(t))
}

// fuseRangeToEngineRange converts a fuse.FileLock's half-open [start,end)
// range (end == OffsetMax meaning "to EOF") into the engine's closed
// [start,end] Range. A zero-length range (end <= start, and not the EOF
// sentinel) locks nothing; the engine has no representation for an empty
// range, so callers are told to treat it as a no-op instead of building
// one.
func fuseRangeToEngineRange(start, end uint64) (rng Range, empty bool, err error) {
	if end != OffsetMax && end <= start {
		return Range{}, true, nil
	}
	engineEnd := end
	if end != OffsetMax {
		engineEnd = end - 1
	}
	rng, err = NewRange(start, engineEnd)
	return rng, false, err
}

// engineEndToFUSE is the reverse half of fuseRangeToEngineRange's end
// conversion.
func engineEndToFUSE(engineEnd uint64) uint64 {
	if engineEnd == OffsetMax {
		return OffsetMax
	}
	return engineEnd + 1
}

// FileRef resolves SEEK_CUR/SEEK_END against a file's current state. The
// lock engine never touches a real file itself, only this narrow view of
// one, so whence resolution can be tested without a filesystem backing it.
type FileRef interface {
	Position() (int64, error)
	Size() (int64, error)
}

// ResolveFcntlLock is the boundary adapter between the raw fcntl(2)
// control structure and the engine's absolute Lock[Pid]: it resolves
// l_whence/l_start/l_len against the target file into a closed byte
// range, exactly as fcntl(2)'s F_GETLK/F_SETLK/F_SETLKW semantics require.
func ResolveFcntlLock(raw FcntlLock, file FileRef, owner Pid, nonBlocking bool) (*Lock[Pid], error) {
	typ, err := lockTypeFromWire(raw.Type)
	if err != nil {
		return nil, err
	}

	start, err := resolveWhence(raw.Whence, raw.Start, file)
	if err != nil {
		return nil, err
	}

	rng, err := rangeFromStartAndLen(start, raw.Len)
	if err != nil {
		return nil, err
	}

	return NewLockBuilder[Pid]().
		Owner(owner).
		Type(typ).
		WithRange(rng).
		Pid(raw.Pid).
		NonBlocking(nonBlocking).
		Build()
}

func resolveWhence(whence uint16, lStart int64, file FileRef) (int64, error) {
	switch whence {
	case SeekSet:
		return lStart, nil
	case SeekCur:
		pos, err := file.Position()
		if err != nil {
			return 0, err
		}
		return checkedAdd(pos, lStart)
	case SeekEnd:
		size, err := file.Size()
		if err != nil {
			return 0, err
		}
		return checkedAdd(size, lStart)
	default:
		return 0, fmt.Errorf("%w: invalid whence %d", ErrInvalidArgument, whence)
	}
}

func checkedAdd(a, b int64) (int64, error) {
	sum := a + b
	// Overflow iff the operands share a sign but the sum doesn't.
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, fmt.Errorf("%w: start overflow", ErrOverflow)
	}
	return sum, nil
}

// rangeFromStartAndLen implements fcntl(2)'s l_len interpretation:
// len > 0 locks [start, start+len-1]; len == 0 locks to EOF; len < 0
// locks the len bytes preceding start (i.e. [start+len, start-1]).
func rangeFromStartAndLen(start int64, length int64) (Range, error) {
	if start < 0 {
		return Range{}, fmt.Errorf("%w: negative start %d", ErrInvalidArgument, start)
	}

	var s, e int64
	switch {
	case length > 0:
		end, err := checkedAddOverflow(start, length-1)
		if err != nil {
			return Range{}, fmt.Errorf("%w: end overflow", ErrOverflow)
		}
		s, e = start, end
	case length == 0:
		return NewRange(uint64(start), OffsetMax)
	default:
		e = start - 1
		newStart := start + length
		if newStart < 0 {
			return Range{}, fmt.Errorf("%w: negative start after length %d", ErrInvalidArgument, length)
		}
		s = newStart
	}
	return NewRange(uint64(s), uint64(e))
}

func checkedAddOverflow(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, fmt.Errorf("%w: end overflow", ErrOverflow)
	}
	return a + b, nil
}

// CopyOutFcntlLock is the reverse of ResolveFcntlLock: it emits the
// fcntl(2) struct fields describing lock's current state, as F_GETLK
// would write back into the caller's struct flock. When lock.Type is
// UNLCK, only Type is set (whence/start/len/pid are left at their zero
// value), matching the source's behavior of leaving those fields
// untouched for a "no conflict" result.
func CopyOutFcntlLock(lock *Lock[Pid]) FcntlLock {
	out := FcntlLock{Type: wireFromLockType(lock.Type)}
	if lock.Type == UNLCK {
		return out
	}
	out.Whence = SeekSet
	out.Start = int64(lock.Range.Start())
	if lock.Range.End() == OffsetMax {
		out.Len = 0
	} else {
		out.Len = int64(lock.Range.Len())
	}
	out.Pid = lock.Pid
	return out
}
