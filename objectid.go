package fusefs

import (
	"fmt"
	"sync/atomic"
)

// objectIDHalfRange is the point at which a runaway (or extremely long-lived)
// counter is assumed to have overflowed rather than merely grown large. It
// exists purely to catch the bug early; legitimate use never gets close.
const objectIDHalfRange = ^uint64(0) / 2

var nextObjectID uint64

// ObjectID is a process-independent owner identity, minted for lock
// families that have no natural pid-like owner to key on (see
// ProcessIdentity). It is comparable and zero-valued as ObjectIDNull,
// which no call to NewObjectID ever returns.
type ObjectID uint64

// ObjectIDNull is a sentinel id that NewObjectID never produces.
const ObjectIDNull ObjectID = 0

// NewObjectID mints a fresh, process-wide unique id.
//
// Panics if the monotonic counter passes half its value space; at that
// point concurrent racing increments could plausibly have wrapped, and an
// engine invariant (every minted id is unique) can no longer be trusted.
func NewObjectID() ObjectID {
	id := atomic.AddUint64(&nextObjectID, 1)
	if id > objectIDHalfRange {
		panic(fmt.Sprintf("fusefs: object id counter exceeded half range (%d)", id))
	}
	return ObjectID(id)
}

func (id ObjectID) String() string {
	return fmt.Sprintf("oid:%d", uint64(id))
}
