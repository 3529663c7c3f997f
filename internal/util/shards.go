package util

import (
	"math/bits"
	"runtime"
)

// ReasonableShardCount picks a practical default shard count based on CPU
// parallelism. Heuristic: nextPow2(2*GOMAXPROCS), clamped to [1..256].
// This sharply reduces lock contention without bloating memory overhead.
func ReasonableShardCount() int {
	p := runtime.GOMAXPROCS(0)
	if p < 1 {
		p = 1
	}
	n := int(NextPow2(uint64(p * 2)))
	if n < 1 {
		n = 1
	}
	if n > 256 {
		n = 256
	}
	return n
}

// ShardIndex maps a 64-bit hash to a shard index using the hash's top
// log2(shards) bits. shards must be a power of two (callers round up via
// NextPow2); anything else routes everything to shard 0 of a wrong-sized
// table, so it is guarded here.
//
// High bits rather than a low-bit mask: the mapping stays a single shift,
// is uniform whenever the hash is uniform, and does not inherit whatever
// structure survives in the hash's low bits. The index depends only on the
// hash, so a key lands on the same shard for the life of the cache.
func ShardIndex(hash uint64, shards int) int {
	if shards <= 1 || !IsPowerOfTwo(uint64(shards)) {
		return 0
	}
	shift := 64 - bits.TrailingZeros64(uint64(shards))
	return int(hash >> shift)
}
