package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error that satisfies `errors.Is(err, ErrNotFound)`.
var ErrNotFound = os.ErrNotExist

// BlobStore holds named, immutable savegame blobs.
//
// Writing a name that already exists replaces the blob as a whole; readers
// never observe a partially written blob.
type BlobStore interface {
	// Put writes data under name atomically.
	Put(ctx context.Context, name string, data []byte) error

	// Get returns the blob stored under name.
	Get(ctx context.Context, name string) ([]byte, error)

	// Delete removes name. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the sorted names that start with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
