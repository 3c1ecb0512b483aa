// Package hnsw implements Hierarchical Navigable Small World graphs.
//
// HNSW provides approximate nearest neighbor search with high recall and
// sub-linear query time. This implementation is built as a benchmark fixture
// for concurrent insert and query throughput:
//
// # Features
//
//   - Per-node locks for edge mutation, ordered by node id
//   - Lock-free search path over copy-on-write neighbor lists
//   - Reciprocal edges: pruning removes both directions of a dropped edge
//   - Diversity-aware neighbor selection with fill-up
//   - Seedable, lock-free level generator
//   - Logical deletes (tombstones) and bitmap-filtered search
//
// # Parameters
//
//   - M: Max connections per node on levels > 0 (default: 16)
//   - M0: Max connections per node on level 0 (default: 2*M)
//   - EFConstruction: Construction beam width (default: 200)
//   - LevelMultiplier: Level distribution scale (default: 1/ln(M))
//
// # Reference
//
// Malkov & Yashunin, "Efficient and robust approximate nearest neighbor search
// using Hierarchical Navigable Small World graphs", IEEE TPAMI 2018.
package hnsw
