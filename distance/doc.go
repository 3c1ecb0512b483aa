// Package distance provides the metric variants supported by the index.
//
// All computations run in float64 regardless of the precision vectors are
// stored with, so that repeated evaluation orders candidates identically.
//
// # Supported Metrics
//
//   - Euclidean: squared L2 internally, reported as the Euclidean distance
//   - InnerProduct: negated dot product internally, reported as similarity (higher is better)
//   - Cosine: 1 - dot over unit-normalized vectors, reported as cosine distance
//
// # Usage
//
//	fn := distance.Euclidean.Func()
//	d := fn(a, b) // lower is better for every metric
//	ext := distance.Euclidean.External(d)
package distance
