// Package cache provides LRU caching for block data backing IVF-Flat and
// Vamana index artifacts.
//
// # Block Cache (RAM)
//
// The ShardedLRUBlockCache caches recently accessed blocks from a group's
// persisted arrays: shuffled-vector column blocks (CacheKindColumnBlocks),
// Vamana adjacency-list blocks (CacheKindGraph), and generic blobstore
// blocks (CacheKindBlob). It uses 64-way sharding for high concurrency.
//
// Key features:
//   - Lock-free shard selection using a hash/maphash hash of SegmentID and Offset
//   - Per-shard mutex for minimal contention
//   - Integrated with resource.Controller for memory limits
//   - Per-CacheKind hit/miss counters via StatsByKind, so a finite-RAM
//     IVF query and a Vamana graph traversal don't share one counter
//
// # Disk Cache (L2)
//
// For cloud storage backends, DiskBlockCache provides a persistent L2 cache:
//   - Async writes to avoid blocking the search path
//   - LRU eviction with configurable size limits
//   - Rebuilds index from disk on startup
package cache
