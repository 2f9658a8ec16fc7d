package store

import "errors"

var (
	// ErrCorrupt is returned when a mutation finds a structural invariant
	// violated, for example an edge whose endpoint is not a vertex. The
	// mutation is discarded.
	ErrCorrupt = errors.New("store corruption detected")

	// ErrAborted is returned when an Interceptor vetoes a mutation.
	ErrAborted = errors.New("mutation aborted")

	// ErrInvalidDump is returned by Load for inconsistent input.
	ErrInvalidDump = errors.New("invalid element dump")
)
