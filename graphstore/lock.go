package graphstore

import "sync"

// We have observed that two concurrent Neo4j transactions against the same
// database might interleave in ways that would make a Load see a partially
// appended log. To enforce that Load never runs concurrently with an
// Append, logWRMutex adapts sync.RWMutex to the locking discipline this
// package needs: multiple concurrent Append calls (to different projects)
// are permitted, but a Load must be exclusive of every Append. The zero
// value is an unlocked mutex.
type logWRMutex sync.RWMutex

// WLock locks wr for an Append. Multiple appenders may hold this
// simultaneously; it should not be used for recursive locking.
func (wr *logWRMutex) WLock() { (*sync.RWMutex)(wr).RLock() }

// WUnlock undoes a single WLock call.
func (wr *logWRMutex) WUnlock() { (*sync.RWMutex)(wr).RUnlock() }

// Lock locks wr exclusively for a Load, blocking until no Append holds it.
func (wr *logWRMutex) Lock() { (*sync.RWMutex)(wr).Lock() }

// Unlock undoes a single Lock call.
func (wr *logWRMutex) Unlock() { (*sync.RWMutex)(wr).Unlock() }
