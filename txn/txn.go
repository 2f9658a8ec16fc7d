// Package txn serializes store mutations through a single worker.
//
// Transactions are queued in submission order and executed one at a time
// by one goroutine, the only writer the pipeline introduces. Readers keep
// using store snapshots and never wait for the pipeline. A transaction that
// fails is rolled back and its handle reports RolledBack; the worker then
// moves on to the next one.
package txn

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cosh/fallen-8-core-sub000/store"
)

var (
	// ErrClosed is returned by Enqueue after Close.
	ErrClosed = errors.New("transaction manager closed")

	// ErrElementNotFound fails a transaction whose target element is absent
	// or removed.
	ErrElementNotFound = errors.New("element not found")

	// ErrMissingEndpoint fails an edge creation whose source or target is
	// absent or removed.
	ErrMissingEndpoint = errors.New("edge endpoint not found")
)

// State is the lifecycle state of a transaction.
type State int32

const (
	// NotExist is reported for unknown ids and for records released after
	// a trim.
	NotExist State = iota
	// Enqueued transactions wait for or are being run by the worker.
	Enqueued
	// Finished transactions executed successfully.
	Finished
	// RolledBack transactions failed and were rolled back.
	RolledBack
)

func (s State) String() string {
	switch s {
	case NotExist:
		return "not_exist"
	case Enqueued:
		return "enqueued"
	case Finished:
		return "finished"
	case RolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether s is Finished or RolledBack.
func (s State) Terminal() bool {
	return s == Finished || s == RolledBack
}

// Transaction is a unit of work run by the worker.
type Transaction interface {
	// TryExecute applies the transaction. A non-nil error, or a panic,
	// fails it.
	TryExecute(ctx context.Context, s *store.Store) error

	// Rollback undoes whatever TryExecute managed to apply. It must be
	// safe to call when TryExecute applied nothing.
	Rollback(ctx context.Context, s *store.Store)
}

// Kinded is implemented by transactions that report a kind for logs and
// metrics.
type Kinded interface {
	Kind() string
}

// KindOf returns the kind of tx, or its Go type for transactions that do
// not implement Kinded.
func KindOf(tx Transaction) string {
	if k, ok := tx.(Kinded); ok {
		return k.Kind()
	}
	return fmt.Sprintf("%T", tx)
}

// releaser is implemented by transactions after whose success the manager
// forgets every terminal record.
type releaser interface {
	releasesRecords() bool
}

// Handle tracks one enqueued transaction.
type Handle struct {
	id    string
	tx    Transaction
	state atomic.Int32
	err   error
	done  chan struct{}
}

func newHandle(id string, tx Transaction) *Handle {
	h := &Handle{id: id, tx: tx, done: make(chan struct{})}
	h.state.Store(int32(Enqueued))
	return h
}

// ID returns the transaction id.
func (h *Handle) ID() string { return h.id }

// Transaction returns the transaction the handle tracks.
func (h *Handle) Transaction() Transaction { return h.tx }

// State returns the current state.
func (h *Handle) State() State { return State(h.state.Load()) }

// Done is closed once the transaction reached a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the failure of a RolledBack transaction.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the transaction is terminal or ctx is done.
func (h *Handle) Wait(ctx context.Context) (State, error) {
	select {
	case <-h.done:
		return h.State(), nil
	case <-ctx.Done():
		return h.State(), ctx.Err()
	}
}

func (h *Handle) complete(state State, err error) {
	h.err = err
	h.state.Store(int32(state))
	close(h.done)
}
