// Package model defines core types shared across hnswbench packages.
//
// # Identity Types
//
//   - NodeID: dense, monotonically assigned identifier of a stored vector (uint32)
//
// NodeIDs are never reused within the lifetime of one index, even after a
// logical delete.
package model
