package fusefs

import (
	"errors"
	"syscall"
)

// Error taxonomy for the lock engine (component D/C of the range-lock
// design). Every error the engine itself returns wraps exactly one of
// these, so callers can dispatch with errors.Is rather than string
// matching.
var (
	// ErrInvalidArgument covers a bad whence, bad length, bad type code, a
	// missing mandatory builder field, or a SetStart/SetEnd that would
	// invert a range.
	ErrInvalidArgument = errors.New("fusefs: invalid argument")

	// ErrOverflow covers arithmetic on a whence-relative start/end that
	// exceeds the representable offset range.
	ErrOverflow = errors.New("fusefs: overflow")

	// ErrWouldBlock is returned by a non-blocking SetLock against a
	// conflicting range; it is the engine's EAGAIN-equivalent.
	ErrWouldBlock = errors.New("fusefs: would block")

	// ErrWaiterInterrupted wraps whatever error a blocked waiter's Wait
	// returned (for example, context cancellation). The engine surfaces it
	// unchanged; it never retries on behalf of the caller.
	ErrWaiterInterrupted = errors.New("fusefs: waiter interrupted")
)

// mapEngineError translates an engine error into the syscall.Errno a
// caller sitting at the fcntl/FUSE boundary should return, mirroring the
// table in errors.go but specific to the lock engine's own taxonomy.
func mapEngineError(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrWouldBlock):
		return syscall.EAGAIN
	case errors.Is(err, ErrOverflow):
		return syscall.EOVERFLOW
	case errors.Is(err, ErrInvalidArgument):
		return syscall.EINVAL
	case errors.Is(err, ErrWaiterInterrupted):
		return syscall.EINTR
	default:
		return mapError(err)
	}
}
