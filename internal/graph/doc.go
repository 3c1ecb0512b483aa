// Package graph holds the multi-layer adjacency of an HNSW index.
//
// Each published node owns one neighbor list per level 0..Level. Lists are
// immutable Links snapshots swapped in with atomic pointers: readers never
// lock and never observe a half-written list, writers serialize on the
// owning node's mutex. A Layer is the view of all nodes present at one level.
//
// The entry point is stored as an atomic snapshot and changed only under a
// dedicated mutex, so "is this the new max level" checks and updates are
// strictly ordered.
package graph
