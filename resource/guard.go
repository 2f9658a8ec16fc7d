package resource

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrCollision is returned when a guard is requested while it is held in a
// conflicting mode. It is transient: the caller decides whether to retry.
var ErrCollision = errors.New("resource collision")

// CollisionError describes which guard collided.
type CollisionError struct {
	Resource string
	// Write is true when the failed request asked for exclusive access.
	Write bool
}

func (e *CollisionError) Error() string {
	mode := "read"
	if e.Write {
		mode = "write"
	}
	if e.Resource == "" {
		return fmt.Sprintf("%s: %s access denied", ErrCollision, mode)
	}
	return fmt.Sprintf("%s: %s access to %q denied", ErrCollision, mode, e.Resource)
}

// Is makes errors.Is(err, ErrCollision) hold.
func (e *CollisionError) Is(target error) bool { return target == ErrCollision }

const writerHeld = -1

// Guard is a non-blocking reader/writer guard.
//
// Readers share the guard; a writer needs it exclusively. A request that
// conflicts with the current holder fails immediately with a CollisionError
// instead of waiting. The zero value is an unheld guard.
type Guard struct {
	// Name is reported in collision errors.
	Name string

	// state is the number of readers, or writerHeld.
	state atomic.Int32
}

// NewGuard returns a guard reporting name in its errors.
func NewGuard(name string) *Guard {
	return &Guard{Name: name}
}

// TryRLock acquires shared access.
func (g *Guard) TryRLock() error {
	for {
		cur := g.state.Load()
		if cur == writerHeld {
			return &CollisionError{Resource: g.Name}
		}
		if g.state.CompareAndSwap(cur, cur+1) {
			return nil
		}
	}
}

// RUnlock releases shared access.
func (g *Guard) RUnlock() {
	for {
		cur := g.state.Load()
		if cur <= 0 {
			panic("resource: RUnlock of guard not held for reading")
		}
		if g.state.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// TryLock acquires exclusive access.
func (g *Guard) TryLock() error {
	if g.state.CompareAndSwap(0, writerHeld) {
		return nil
	}
	return &CollisionError{Resource: g.Name, Write: true}
}

// Unlock releases exclusive access.
func (g *Guard) Unlock() {
	if !g.state.CompareAndSwap(writerHeld, 0) {
		panic("resource: Unlock of guard not held for writing")
	}
}

// Read runs fn under shared access.
func (g *Guard) Read(fn func() error) error {
	if err := g.TryRLock(); err != nil {
		return err
	}
	defer g.RUnlock()
	return fn()
}

// Write runs fn under exclusive access.
func (g *Guard) Write(fn func() error) error {
	if err := g.TryLock(); err != nil {
		return err
	}
	defer g.Unlock()
	return fn()
}
