// Package model defines the data model shared by every fallen8 package.
//
// # Identity
//
//   - ElementID: dense, store-assigned identifier of a vertex or edge (int32).
//     Ids are stable until the next trim, which renumbers live elements.
//
// # Values
//
//   - Value: small typed value used for properties and index keys
//   - Properties: immutable key/value bag attached to every element
//   - Operator: comparison operator used by graph and index scans
//
// # Elements
//
//   - GraphElement: fields common to vertices and edges
//   - Vertex: element plus outgoing/incoming edge lists grouped by label
//   - Edge: element plus the ids of its source and target vertex
//
// Elements are immutable once published by the store. Every mutation
// produces a new element value, so a reader holding a snapshot never observes
// a partial update.
package model
