// Package cache provides a fast, generic, sharded in-memory cache with
// pluggable eviction policies (LRU by default), per-entry TTL, optional
// singleflight loading, lightweight metrics hooks, and cost-based capacity.
// It is the core behind the storage package's namespaced cache store.
//
// # Design
//
//   - Concurrency: the cache is split into shards, each protected by an
//     RWMutex. The shard count is a power of two (auto-sized from
//     GOMAXPROCS when unset) and routing takes the TOP log2(shards) bits
//     of the key hash, so the mapping is a single shift and a key's shard
//     never changes. Sharding reduces contention while keeping memory
//     overhead small. No operation ever holds two shard locks at once.
//
//   - Storage: each shard keeps a map[K]*node for lookups and an intrusive
//     MRU↔LRU doubly linked list for ordering. All operations are O(1) expected.
//
//   - Eviction order: recency is tracked per shard. The aggregate eviction
//     order is therefore approximate LRU, not global LRU — an entry in a
//     quiet shard can outlive a more recently used entry in a hot shard.
//     This is the intended trade-off of contention for exactness.
//
//   - Capacity: the global entry budget is split across shards with ceiling
//     division, so the true aggregate bound may exceed the requested
//     capacity by up to shards-1 entries.
//
//   - Policies: eviction policy is pluggable via the policy package.
//     LRU is the default. A 2Q policy is provided (resists scan pollution).
//
//   - TTL: entries can have per-item deadlines (UnixNano). Expiration is lazy
//     on read (and also enforced while the shard trims to capacity).
//
//   - Cost/MaxCost: besides entry count (Capacity), you may account a
//     user-defined "cost" per value (Options.Cost) and enforce a global
//     MaxCost. Shards split the MaxCost budget evenly.
//
//   - GetOrLoad: coalesces concurrent loads for the same key using
//     singleflight. If Loader is nil, GetOrLoad returns ErrNoLoader.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     By default NoopMetrics is used; plug the Prometheus adapter
//     (metrics/prom) to export them.
//
// # Basic usage
//
//	c := cache.New[string, []byte](cache.Options[string, []byte]{Capacity: 10_000})
//	c.Set("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v // use value
//	}
//	c.Remove("a")
//
// # Consistency of aggregate reads
//
// Len and Keys lock one shard at a time. They are safe under concurrency
// but observe the cache piecewise: a concurrent writer may land in a shard
// already scanned or not yet scanned. Callers that need an exact count must
// quiesce writers first.
//
// All methods on Cache are safe for concurrent use. Typical operation cost
// is O(1) expected time: one map access and a constant amount of pointer
// fixes. Eviction work is also O(1) per removed item.
package cache
