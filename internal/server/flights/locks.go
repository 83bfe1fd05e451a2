package flights

import "sync"

// UserLocks serializes file operations per username across connections.
// Entries are dropped once nobody holds or waits for them.
type UserLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[string]*userLock)}
}

// Lock blocks until name is free and returns the matching unlock func.
func (l *UserLocks) Lock(name string) func() {
	l.mu.Lock()
	ul, ok := l.locks[name]
	if !ok {
		ul = &userLock{}
		l.locks[name] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()

	return func() {
		ul.mu.Unlock()

		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, name)
		}
		l.mu.Unlock()
	}
}

func (l *UserLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
