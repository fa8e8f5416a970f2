package memory

import "sync"

// sessionLocks is a keyed mutex registry: one lock per session id, owned by
// the store instance that created it. Writes to the same session serialize;
// different sessions proceed concurrently. Locks are never evicted; the
// set of live sessions is small and bounded by the agent runtime.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the session's mutex and returns the unlock function.
func (s *sessionLocks) acquire(sessionID string) func() {
	s.mu.Lock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
