// Package store implements the element store: a dense, copy-on-write
// sequence of vertices and edges addressed by ElementID.
//
// Architecture:
//   - Elements live in fixed-size chunks (4096 slots) referenced from a
//     directory. A Snapshot bundles a directory with the id allocator and the
//     vertex/edge counters and is published through an atomic pointer.
//   - Readers load the current Snapshot and never block. A Snapshot never
//     changes after publication.
//   - Writers are serialized. A mutation works on a draft that copies only
//     the chunks it touches, and publishes the draft in one atomic store.
//     A mutation that fails discards its draft, so the published graph is
//     exactly the graph before the call.
//   - Removal tombstones elements; Trim drops tombstones and renumbers ids.
package store
