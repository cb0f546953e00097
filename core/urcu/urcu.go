// Package urcu implements read-copy-update protected containers.
//
// Readers never block: they register an epoch marker on a lock-free chain and
// traverse shared structure through atomic pointer loads. A single writer at a
// time mutates the structure under a mutex and retires unlinked elements onto
// the same chain. A retired element is reclaimed by whichever goroutine
// unlocks last among those that could still observe it.
package urcu

import (
	"errors"

	"github.com/usnistgov/rcuguard/core/logging"
)

var logger = logging.New("urcu")

// Errors.
var (
	ErrReleasedHandle = errors.New("urcu: access through released or moved handle")
	ErrUnlockedGuard  = errors.New("urcu: unlock of a guard that is not locked")
	ErrForeignGuard   = errors.New("urcu: guard does not belong to this object")
	ErrGuardOutlived  = errors.New("urcu: guard outlived the list")
)

// Guard is an epoch marker obtained from a Guardable lock method.
// It must be passed back to the matching unlock method exactly once.
type Guard interface {
	// Active reports whether the marker is still registered.
	Active() bool
}

// Guardable is implemented by objects that coordinate their own RCU access discipline.
//
// RcuReadLock must not block. RcuWriteLock registers an epoch marker and then
// acquires exclusive writer access. RcuWriteUnlock releases writer access
// before deregistering the epoch marker.
type Guardable interface {
	RcuReadLock() Guard
	RcuReadUnlock(g Guard)
	RcuWriteLock() Guard
	RcuWriteUnlock(g Guard)
}
