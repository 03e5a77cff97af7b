package community

import "sync"

// communityLocks hands out one mutex per community so that the persist then
// fan-out sequence of a community never interleaves.
type communityLocks struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newCommunityLocks() *communityLocks {
	return &communityLocks{locks: make(map[string]*refMutex)}
}

// lock blocks until communityID is free and returns its unlock function.
func (l *communityLocks) lock(communityID string) func() {
	l.mu.Lock()
	m, ok := l.locks[communityID]
	if !ok {
		m = &refMutex{}
		l.locks[communityID] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()

		l.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(l.locks, communityID)
		}
		l.mu.Unlock()
	}
}
