// Package searcher provides pooled search context for low-allocation queries.
//
// The Searcher struct owns all reusable resources needed for one traversal:
//   - Priority queues (frontier, results)
//   - Visited set (bitset)
//   - Scratch vectors (query preparation, cell decoding)
//
// Searchers are pooled with sync.Pool and must not be shared between goroutines.
package searcher
