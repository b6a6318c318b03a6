package interview

import "sync"

// sessionLocks serializes engine entry points per session so a rapid
// double-submission of the same answer cannot race the checkpoint
// read-modify-write cycle. Contenders fail fast instead of queueing: the
// second submission of a consumed answer should be rejected, not applied
// after the first completes.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sync.Mutex)}
}

// tryLock acquires the session's lock without blocking. It returns the
// unlock function and true, or nil and false when another call holds it.
func (l *sessionLocks) tryLock(id string) (func(), bool) {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	if !m.TryLock() {
		return nil, false
	}
	return m.Unlock, true
}

// forget drops the lock entry for a deleted session. Callers must hold the
// session's lock when calling.
func (l *sessionLocks) forget(id string) {
	l.mu.Lock()
	delete(l.locks, id)
	l.mu.Unlock()
}
