// Package fallen8 provides an embeddable in-memory property graph engine.
//
// The engine keeps vertices and edges in a copy-on-write element store:
// readers work on immutable snapshots and never block, while every mutation
// builds a private draft and publishes it with one atomic swap. Batched
// writes go through a single-writer transaction pipeline; scans, index
// lookups and path searches run concurrently with it.
//
// # Quick Start
//
//	f8 := fallen8.New(fallen8.WithLogger(fallen8.NewTextLogger(slog.LevelInfo)))
//	defer f8.Close()
//
//	alice, _ := f8.CreateVertex(store.VertexDefinition{
//	    Label:      "person",
//	    Properties: model.PropertiesOf(map[string]any{"name": "alice", "age": 31}),
//	})
//	bob, _ := f8.CreateVertex(store.VertexDefinition{Label: "person"})
//	_, _, _ = f8.CreateEdge(store.EdgeDefinition{SourceID: alice.ID, TargetID: bob.ID, Label: "knows"})
//
// Batched writes are queued and executed in submission order:
//
//	h, _ := f8.EnqueueTransaction(&txn.CreateVertices{Definitions: defs})
//	state, _ := h.Wait(ctx)
//
// Scans return the matching live elements ordered by id:
//
//	adults, _ := f8.GraphScan(ctx, "age", model.Int(18), model.OpGreaterEqual)
//
// # Indices
//
// Indices are created by kind ("DictionaryIndex", "SingleValueIndex",
// "RangeIndex", "FulltextIndex", "SpatialIndex") and filled by the caller.
// The engine keeps them consistent with the store: removed elements are
// dropped from every index, a trim rebuilds every index through the id
// remapping and a reset drops all of them.
//
// Index operations never wait for each other. An operation that conflicts
// with one in progress fails immediately with an error matching
// ErrCollision; callers decide whether to retry.
//
// # Shortest Paths
//
//	paths, _ := f8.CalculateShortestPath(ctx, shortestpath.DefaultAlgorithm, shortestpath.Request{
//	    SourceID: alice.ID, TargetID: bob.ID, MaxDepth: 4, MaxResults: 10,
//	})
//
// # Persistence
//
// Save and Open write and read savegames through a persistence.Manager on
// any blobstore.BlobStore (memory, local directory, MinIO, S3):
//
//	mgr := persistence.NewManager(blobstore.NewLocalStore("./data"))
//	name, _ := f8.Save(ctx, mgr)
//	_, _ = f8.Open(ctx, mgr, "")
package fallen8
