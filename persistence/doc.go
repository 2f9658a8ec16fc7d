// Package persistence reads and writes savegames: a framed, optionally
// compressed encoding of a graph's elements, id counter and index contents.
//
// A savegame is self-describing. Its header records the format version,
// the codec that encoded the document and the compression applied to it,
// plus a CRC32 of the encoded bytes, so files written with any supported
// combination can be read back.
//
// The Manager stores savegames in a blobstore.BlobStore and maintains a
// CURRENT pointer naming the newest one.
package persistence
