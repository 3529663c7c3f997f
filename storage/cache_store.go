package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/IvanBrykalov/cachestore/cache"
	"github.com/cespare/xxhash/v2"
)

// DefaultCacheSize is the entry budget used when CacheStoreOptions.Capacity
// is zero.
const DefaultCacheSize = 65536

// DefaultShardCount is the shard count used when CacheStoreOptions.Shards
// is zero. 2^4 shards keeps per-shard overhead negligible while cutting
// lock contention well below a single-lock map.
const DefaultShardCount = 16

// CacheStoreOptions configures a CacheStore. The zero value is usable:
// DefaultCacheSize entries across DefaultShardCount shards, no metrics,
// no logging.
type CacheStoreOptions struct {
	// Capacity is the total entry budget (entry count, not bytes). It is
	// split across shards with ceiling division, so the effective aggregate
	// bound may exceed Capacity by up to Shards-1 entries.
	Capacity int

	// Shards is the number of lock partitions; rounded up to a power of two.
	Shards int

	// Metrics, when non-nil, receives read-path latencies, batch latencies
	// and the resident item gauge. Nil disables all recording.
	Metrics *Metrics

	// CacheMetrics, when non-nil, is handed to the underlying cache and
	// receives its hit/miss/eviction/size events (see cache.Metrics). The
	// Prometheus adapter in metrics/prom satisfies it. Independent of
	// Metrics, which covers the store-level operation timings.
	CacheMetrics cache.Metrics

	// Logger for debug output. Nil disables logging.
	Logger Logger
}

// CacheStore is the volatile cache tier of the storage subsystem: a
// sharded, bounded, approximately-LRU map from composite (prefix, key)
// pairs to values, implementing the same Store contract as the persistent
// backends it fronts. Contents do not survive a restart by design.
//
// Consistency: Len and Keys scan shards one at a time and may observe
// concurrent writers mid-scan. Eviction order is per-shard LRU, not global
// LRU; see the cache package docs for the trade-off.
type CacheStore struct {
	cache   cache.Cache[string, []byte]
	metrics *Metrics
	log     Logger
}

// NewCacheStore builds the cache tier. The underlying cache uses xxhash
// for shard routing: composite keys share long common prefixes per column
// family, which xxhash mixes well at a few bytes per cycle.
func NewCacheStore(opt CacheStoreOptions) *CacheStore {
	if opt.Capacity <= 0 {
		opt.Capacity = DefaultCacheSize
	}
	if opt.Shards <= 0 {
		opt.Shards = DefaultShardCount
	}
	if opt.Logger == nil {
		opt.Logger = NopLogger{}
	}
	c := cache.New[string, []byte](cache.Options[string, []byte]{
		Capacity: opt.Capacity,
		Shards:   opt.Shards,
		Hasher:   xxhash.Sum64String,
		Metrics:  opt.CacheMetrics,
	})
	opt.Logger.Debug("cache store ready", Fields{
		"capacity": opt.Capacity,
		"shards":   opt.Shards,
	})
	return &CacheStore{cache: c, metrics: opt.Metrics, log: opt.Logger}
}

// Get returns the cached value for (prefixName, key), promoting it to
// most-recently-used on hit. The lookup is wrapped by the metrics recorder
// under ("cache", prefixName, "get").
func (s *CacheStore) Get(prefixName string, key []byte) (value []byte, found bool, err error) {
	err = s.metrics.Record("cache", prefixName, "get", func() error {
		var v []byte
		v, found = s.cache.Get(composeKey(prefixName, key))
		if found {
			value = cloneBytes(v)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// Put stores value under (prefixName, key), evicting the owning shard's
// least-recently-used entry if the shard is full.
//
// Put is deliberately NOT wrapped by the recorder: single writes are the
// hot path and batches already record once per replay, so the per-call
// timestamp pair is skipped here. Only the item gauge is refreshed.
func (s *CacheStore) Put(prefixName string, key, value []byte) error {
	s.cache.Set(composeKey(prefixName, key), cloneBytes(value))
	if s.metrics != nil {
		s.metrics.SetCacheItems(uint64(s.cache.Len()))
	}
	return nil
}

// ContainsKey reports presence without promoting the entry, wrapped by the
// recorder under ("cache", prefixName, "contains_key").
func (s *CacheStore) ContainsKey(prefixName string, key []byte) (found bool, err error) {
	err = s.metrics.Record("cache", prefixName, "contains_key", func() error {
		found = s.cache.Contains(composeKey(prefixName, key))
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// Remove deletes (prefixName, key) if present. Like Put it is not
// individually recorded; the item gauge is refreshed.
func (s *CacheStore) Remove(prefixName string, key []byte) error {
	s.cache.Remove(composeKey(prefixName, key))
	if s.metrics != nil {
		s.metrics.SetCacheItems(uint64(s.cache.Len()))
	}
	return nil
}

// WriteBatch replays the batch's rows against Put/Remove in append order.
// The whole replay is recorded once under ("cache", prefixName,
// "write_batch"); the first failing row stops the replay, leaving earlier
// rows applied. Concurrent single writes may interleave with the replay —
// batches are ordered, not isolated.
func (s *CacheStore) WriteBatch(prefixName string, batch *WriteBatch) error {
	return s.metrics.Record("cache", prefixName, "write_batch", func() error {
		for _, row := range batch.Rows() {
			switch row.Op {
			case OpPut:
				if err := s.Put(prefixName, row.Key, row.Value); err != nil {
					return err
				}
			case OpDelete:
				if err := s.Remove(prefixName, row.Key); err != nil {
					return err
				}
			default:
				return fmt.Errorf("storage: unknown batch op %d", row.Op)
			}
		}
		return nil
	})
}

// Len reports the number of resident entries, summed shard by shard.
func (s *CacheStore) Len() (uint64, error) {
	return uint64(s.cache.Len()), nil
}

// Keys enumerates all resident keys in composite (prefixed) form, shard by
// shard. The snapshot is not atomic with respect to concurrent writers.
func (s *CacheStore) Keys() ([][]byte, error) {
	ks := s.cache.Keys()
	out := make([][]byte, len(ks))
	for i, k := range ks {
		out[i] = []byte(k)
	}
	return out, nil
}

// PutSync is identical to Put: the cache has no buffered writes to flush.
func (s *CacheStore) PutSync(prefixName string, key, value []byte) error {
	return s.Put(prefixName, key, value)
}

// WriteBatchSync is identical to WriteBatch; see PutSync.
func (s *CacheStore) WriteBatchSync(prefixName string, batch *WriteBatch) error {
	return s.WriteBatch(prefixName, batch)
}

var _ Store = (*CacheStore)(nil)

// composeKey flattens (prefixName, key) into one cache key. The prefix
// length is uvarint-encoded in front so that distinct (prefix, key) pairs
// can never produce the same composite — plain concatenation would let
// ("ab","c") collide with ("a","bc").
func composeKey(prefixName string, key []byte) string {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(prefixName)))
	b := make([]byte, 0, n+len(prefixName)+len(key))
	b = append(b, lenBuf[:n]...)
	b = append(b, prefixName...)
	b = append(b, key...)
	return string(b)
}

// cloneBytes keeps stored values private to the cache: callers may reuse
// their buffers after Put, and may scribble on what Get hands back.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
