// Package hnswbench provides an in-memory HNSW approximate nearest neighbor
// index built as a fixture for insert and query throughput and recall
// benchmarks under concurrency.
//
// # Quick Start
//
//	ctx := context.Background()
//	idx, _ := hnswbench.CreateIndex(128, hnswbench.MetricEuclidean, 16, 32, 200, 1/math.Log(16))
//	defer idx.Close()
//
//	id, _ := idx.Insert(ctx, vector)
//	results, _ := idx.Search(ctx, query, 10, 64)
//	for _, r := range results {
//	    fmt.Println(r.ID, r.Distance)
//	}
//
// # Configuration
//
// New accepts functional options on top of DefaultOptions. Options can also
// be loaded from YAML:
//
//	opts, _ := hnswbench.LoadOptionsFile("index.yaml")
//	idx, _ := hnswbench.New(func(o *hnswbench.Options) { *o = opts })
//
// # Concurrency
//
// Insert, BatchInsert, Search, Delete and Update are safe for concurrent use.
// Searches never block on writers. Once Insert returns, its vector is
// reachable by every later search.
//
// # Distances
//
// Euclidean reports the L2 distance, Cosine reports 1 - cosine similarity
// (both ascending), and InnerProduct reports the dot product (descending).
// Ties are broken by ascending NodeID.
//
// # Observability
//
//   - Structured logging via log/slog (see Logger)
//   - Pluggable metrics (see MetricsCollector, PrometheusCollector)
//   - Graph statistics and invariant checks (see Index.Stats, Index.Verify)
package hnswbench
