// Package index provides secondary indices mapping property values to
// element ids.
//
// All implementations satisfy Index:
//
//   - DictionaryIndex: exact match, a key holds a set of ids
//   - SingleValueIndex: exact match, a key holds one id and re-adding replaces it
//   - RangeIndex: DictionaryIndex plus LowerThan, GreaterThan and Between
//   - FulltextIndex: text keys ranked by BM25 through TryQuery
//   - SpatialIndex: point keys with region, nearest and distance queries
//
// Implementations are selected by name through New, which consults a
// static registry populated at init time.
//
// # Concurrency
//
// Each index carries a resource.Guard. Reads share it and writes need it
// exclusively, but neither waits: a conflicting request fails at once with
// an error matching resource.ErrCollision and the caller decides whether to
// retry.
package index
