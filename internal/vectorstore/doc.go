// Package vectorstore owns the raw dense vectors of an index.
//
// # Architecture
//
// Vectors are packed into fixed-size segments of segmentSize slots. A segment
// is allocated once and never reallocated, so a published vector never moves
// while the store grows. The segment table itself is replaced copy-on-write.
//
// # Cell Types
//
//   - CellFloat32: 4 bytes per value (default)
//   - CellFloat64: 8 bytes per value, Get is zero-copy
//   - CellFloat16: 2 bytes per value (IEEE 754 half precision)
//
// Get always yields float64 values.
//
// # Concurrency
//
// Get is lock-free and safe from any goroutine. Append calls are serialized
// internally and may run concurrently with Get.
package vectorstore
