// Package payloadrt holds the payload's process-wide singleton state and
// its module-attach/detach lifecycle: detours have no user-visible
// context to thread a Connection or mapping table through, so both live
// as package-level state guarded by locks that are held only while a
// value is copied in or out, never across a call that could re-enter them.
package payloadrt

import (
	"sync"

	"github.com/maroider/asbestos-go/ipc"
	"github.com/maroider/asbestos-go/vfs"
)

// connState holds the optional Connection back to the controller,
// protected by a mutex acquired only via a try-lock that retries until
// successful. The lock is held just long enough to read or swap the
// pointer and is released before any message is written, so an
// intercepted call made while logging never finds the lock held by its
// own thread. The spin does not make the lock re-entrant: a thread that
// already held it would spin forever.
var connState struct {
	mu   sync.Mutex
	conn *ipc.Connection
}

// WithConn runs fn with the current Connection, retrying acquisition of
// the lock until it succeeds instead of blocking. fn may itself be
// invoked from inside a detour wrapper on any host thread.
func WithConn(fn func(*ipc.Connection)) {
	for !connState.mu.TryLock() {
	}
	conn := connState.conn
	connState.mu.Unlock()
	fn(conn)
}

// SetConn publishes a new Connection, replacing any previous one.
// Called once during bootstrap.
func SetConn(conn *ipc.Connection) {
	for !connState.mu.TryLock() {
	}
	connState.conn = conn
	connState.mu.Unlock()
}

// TakeConn removes and returns the current Connection, used during
// detach/initialization-failure so the caller owns the only reference
// while sending a final message.
func TakeConn() *ipc.Connection {
	for !connState.mu.TryLock() {
	}
	conn := connState.conn
	connState.conn = nil
	connState.mu.Unlock()
	return conn
}

// mappingsState holds the mapping table published once at bootstrap and
// read by every intercepted call thereafter. Its lock is held only while
// copying the table out, never across a trampoline call.
var mappingsState struct {
	mu       sync.Mutex
	mappings vfs.Mappings
}

// SetMappings publishes the process-wide mapping table.
func SetMappings(m vfs.Mappings) {
	mappingsState.mu.Lock()
	mappingsState.mappings = m
	mappingsState.mu.Unlock()
}

// Mappings returns the current process-wide mapping table. Detour
// wrappers call this once per intercepted invocation, then resolve
// against the returned slice without holding any lock across the
// trampoline call.
func Mappings() vfs.Mappings {
	mappingsState.mu.Lock()
	defer mappingsState.mu.Unlock()
	return mappingsState.mappings
}
