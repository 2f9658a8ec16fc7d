// Package blobstore holds the destinations savegames are written to.
//
// A BlobStore reads and writes whole named blobs and must be safe for
// concurrent use. Names are flat; a slash in a name is only a convention
// some backends map to directories or key prefixes.
//
// Backends:
//
//   - MemoryStore keeps blobs in the process.
//   - LocalStore writes files below a root directory, taking a flock on it
//     while writing.
//   - CachingStore puts a bounded read cache in front of another store.
//   - minio.Store and s3.Store write to object storage, and s3.CommitStore
//     guards the CURRENT pointer with DynamoDB.
//
// Get returns ErrNotFound for unknown names. Delete of an unknown name
// succeeds.
package blobstore
