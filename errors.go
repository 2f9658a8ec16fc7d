package fallen8

import (
	"errors"
	"fmt"

	"github.com/cosh/fallen-8-core-sub000/index"
	"github.com/cosh/fallen-8-core-sub000/resource"
	"github.com/cosh/fallen-8-core-sub000/txn"
)

var (
	// ErrUnknownAlgorithm is returned for a path algorithm that is not
	// registered.
	ErrUnknownAlgorithm = errors.New("unknown shortest path algorithm")

	// ErrUnknownIndexKind is returned by CreateIndex for an unregistered
	// index kind.
	ErrUnknownIndexKind = errors.New("unknown index kind")

	// ErrIndexExists is returned by CreateIndex when the name is taken.
	ErrIndexExists = errors.New("index already exists")

	// ErrClosed is returned by operations on a closed engine.
	ErrClosed = errors.New("fallen8: closed")

	// ErrIndexMaintenance is returned by Trim when an index could not be
	// rebuilt under the new ids. Such indices are dropped.
	ErrIndexMaintenance = errors.New("index maintenance failed")

	// ErrCollision aliases resource.ErrCollision. Index operations and the
	// index registry fail with it instead of waiting for a conflicting
	// holder; it is safe to retry.
	ErrCollision = resource.ErrCollision
)

// TransactionError reports a transaction submitted by the engine itself
// that was rolled back.
//
// The original underlying error can be accessed via errors.Unwrap.
type TransactionError struct {
	ID    string
	Kind  string
	cause error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s (%s) rolled back: %v", e.ID, e.Kind, e.cause)
}

func (e *TransactionError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, index.ErrUnknownKind) {
		return fmt.Errorf("%w: %w", ErrUnknownIndexKind, err)
	}
	if errors.Is(err, txn.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return err
}
