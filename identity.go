package fusefs

import (
	"io"
	"os"
)

// SeekerSizer is the minimal slice of absfs.File (io.Seeker plus Stat)
// the fcntl boundary needs to resolve SEEK_CUR/SEEK_END. absfs.File
// satisfies it directly.
type SeekerSizer interface {
	io.Seeker
	Stat() (os.FileInfo, error)
}

// fileRefAdapter wraps a SeekerSizer (an absfs.File, in practice) as a
// FileRef, the narrow collaborator fcntl.go's whence resolution depends
// on. Seeking 0 bytes relative to the current position is the standard
// trick for reading a file's current offset without moving it.
type fileRefAdapter struct {
	f SeekerSizer
}

// NewFileRef adapts an absfs.File (or anything with the same Seek/Stat
// shape) into a FileRef.
func NewFileRef(f SeekerSizer) FileRef {
	return &fileRefAdapter{f: f}
}

func (a *fileRefAdapter) Position() (int64, error) {
	return a.f.Seek(0, io.SeekCurrent)
}

func (a *fileRefAdapter) Size() (int64, error) {
	info, err := a.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ProcessIdentity mints the owner identity a new Lock is built with.
// Two families share the engine: traditional fcntl range locks keyed by
// pid, and BSD flock/FUSE locks keyed by an opaque ObjectID-like token.
// Both are exposed behind this one interface so callers on either side
// of the boundary build locks the same way.
type ProcessIdentity interface {
	Owner() Pid
}

// pidIdentity is the straightforward case: the caller already knows its
// pid (from the fcntl struct flock itself, or from the kernel request
// that carried it).
type pidIdentity Pid

func NewPidIdentity(pid Pid) ProcessIdentity { return pidIdentity(pid) }

func (p pidIdentity) Owner() Pid { return Pid(p) }

// objectIDIdentity mints a fresh ObjectID when it is constructed, then
// returns that same id on every Owner call: a flock-style
// lock owner is assigned once per open file description (from a
// process-global counter) and reused for as long as that description
// lives.
type objectIDIdentity struct {
	id ObjectID
}

// NewObjectIDIdentity mints a new ObjectID-backed identity.
func NewObjectIDIdentity() *objectIDIdentity {
	return &objectIDIdentity{id: NewObjectID()}
}

func (o *objectIDIdentity) Owner() Pid { return Pid(o.id) }

// ObjectID returns the identity's underlying, stable ObjectID.
func (o *objectIDIdentity) ObjectID() ObjectID { return o.id }
