package fusefs

import "sync"

// Inode is the per-file lock-list hook: exactly one List[O] per inode,
// created the first time something tries to lock that inode and freed
// along with it. It is generic over whichever owner identity the
// caller's lock family uses, so the same Inode[O] backs both the
// fcntl-Pid family and the flock/FUSE ObjectID-ish family.
type Inode[O comparable] struct {
	mu   sync.Mutex
	list *List[O]
}

// NewInode returns an inode hook with no lock list yet allocated.
func NewInode[O comparable]() *Inode[O] {
	return &Inode[O]{}
}

// Locks lazily allocates and returns the inode's lock list. Safe to call
// concurrently; the list, once created, is reused for the inode's
// lifetime.
func (n *Inode[O]) Locks() *List[O] {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.list == nil {
		n.list = NewList[O]()
	}
	return n.list
}

// HasLocks reports whether a lock list has ever been allocated for this
// inode, without allocating one. Useful for close-time teardown paths
// that want to skip work on files that were never locked.
func (n *Inode[O]) HasLocks() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.list != nil
}

// Close drops every lock owner holds on this inode, waking any waiters
// still suspended on those records — the lock-state teardown a closing
// file description triggers for its owner. Other owners' locks stay in
// place. Safe to call on an inode whose list was never allocated.
func (n *Inode[O]) Close(owner O) {
	n.mu.Lock()
	list := n.list
	n.mu.Unlock()
	if list == nil {
		return
	}
	list.ReleaseOwner(owner)
}

// InodeTable is a path-keyed registry of Inode hooks. Advisory locks are
// conceptually scoped to an inode, but absfs does not reliably expose
// stable inode numbers, so this engine keys on path instead, matching
// the rest of this package's caches.
type InodeTable[O comparable] struct {
	mu     sync.Mutex
	inodes map[string]*Inode[O]
}

// NewInodeTable returns an empty table.
func NewInodeTable[O comparable]() *InodeTable[O] {
	return &InodeTable[O]{inodes: make(map[string]*Inode[O])}
}

// Get returns the inode hook for path, creating one if this is the first
// time path has been seen.
func (t *InodeTable[O]) Get(path string) *Inode[O] {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.inodes[path]
	if !ok {
		n = NewInode[O]()
		t.inodes[path] = n
	}
	return n
}

// Forget drops the table's entry for path entirely, after releasing
// owner's locks on it. Call this once a file's last handle closes so an
// unbounded stream of distinct files doesn't leak inode entries forever.
func (t *InodeTable[O]) Forget(path string, owner O) {
	t.mu.Lock()
	n, ok := t.inodes[path]
	delete(t.inodes, path)
	t.mu.Unlock()
	if ok {
		n.Close(owner)
	}
}

// ReleaseOwnerEverywhere releases owner's locks on every inode in the
// table, dropping any inode entry left with no locks at all afterward.
// Unlike the single-path Forget, which drops its entry unconditionally,
// an entry that still holds another owner's locks is kept.
func (t *InodeTable[O]) ReleaseOwnerEverywhere(owner O) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for path, n := range t.inodes {
		n.Close(owner)
		if !n.HasLocks() || n.Locks().Len() == 0 {
			delete(t.inodes, path)
		}
	}
}
