package storage

import (
	"context"
	"fmt"

	"github.com/IvanBrykalov/cachestore/internal/singleflight"
)

// TieredStore places a CacheStore in front of a persistent backing Store.
// Reads consult the cache first and fall through to the backing store on a
// miss, populating the cache with what they find; concurrent misses for
// the same composite key are coalesced so the backing store sees one read.
// Writes go to the backing store first, then to the cache. A read-through
// backfill can still race a concurrent Remove or overwrite and briefly
// leave a stale value in the cache tier, so consistency between tiers is
// best-effort rather than strict.
//
// Len and Keys report the backing store's view — the authoritative tier —
// not the cache's resident subset.
type TieredStore struct {
	cache   *CacheStore
	backing Store
	log     Logger

	sf singleflight.Group[string, tierResult]
}

type tierResult struct {
	value []byte
	found bool
}

// NewTieredStore combines the cache tier with a backing store.
// backing must not be nil; a nil logger disables logging.
func NewTieredStore(cache *CacheStore, backing Store, log Logger) (*TieredStore, error) {
	if cache == nil {
		return nil, fmt.Errorf("storage: tiered store needs a cache tier")
	}
	if backing == nil {
		return nil, fmt.Errorf("storage: tiered store needs a backing store")
	}
	if log == nil {
		log = NopLogger{}
	}
	return &TieredStore{cache: cache, backing: backing, log: log}, nil
}

// Get serves from the cache when possible. A miss reads the backing store
// (one read per in-flight composite key) and caches a found value.
func (t *TieredStore) Get(prefixName string, key []byte) ([]byte, bool, error) {
	if v, ok, err := t.cache.Get(prefixName, key); err != nil {
		return nil, false, err
	} else if ok {
		return v, true, nil
	}

	res, err := t.sf.Do(context.Background(), composeKey(prefixName, key), func() (tierResult, error) {
		// Double-check after winning the flight: an earlier leader may have
		// populated the cache between our miss and now.
		if v, ok, err := t.cache.Get(prefixName, key); err != nil {
			return tierResult{}, err
		} else if ok {
			return tierResult{value: v, found: true}, nil
		}
		v, ok, err := t.backing.Get(prefixName, key)
		if err != nil {
			return tierResult{}, err
		}
		if ok {
			// In-memory puts cannot fail; the error path exists only to
			// satisfy the contract.
			_ = t.cache.Put(prefixName, key, v)
			t.log.Debug("backfilled cache from backing store", Fields{
				"prefix": prefixName,
				"keylen": len(key),
			})
		}
		return tierResult{value: v, found: ok}, nil
	})
	if err != nil {
		return nil, false, err
	}
	// The flight result is shared by every coalesced caller and may alias
	// the backing store's buffer; each caller gets its own copy.
	return cloneBytes(res.value), res.found, nil
}

// Put writes through: backing store first, then the cache tier.
func (t *TieredStore) Put(prefixName string, key, value []byte) error {
	if err := t.backing.Put(prefixName, key, value); err != nil {
		return err
	}
	return t.cache.Put(prefixName, key, value)
}

// ContainsKey consults the cache, then the backing store.
func (t *TieredStore) ContainsKey(prefixName string, key []byte) (bool, error) {
	ok, err := t.cache.ContainsKey(prefixName, key)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	return t.backing.ContainsKey(prefixName, key)
}

// Remove deletes from the backing store first, then the cache, so a
// concurrent Get cannot re-cache a value the backing store still holds.
func (t *TieredStore) Remove(prefixName string, key []byte) error {
	if err := t.backing.Remove(prefixName, key); err != nil {
		return err
	}
	return t.cache.Remove(prefixName, key)
}

// WriteBatch applies the batch to the backing store, then mirrors it into
// the cache. Failure in the backing store leaves the cache untouched.
func (t *TieredStore) WriteBatch(prefixName string, batch *WriteBatch) error {
	if err := t.backing.WriteBatch(prefixName, batch); err != nil {
		return err
	}
	return t.cache.WriteBatch(prefixName, batch)
}

// Len reports the backing store's entry count.
func (t *TieredStore) Len() (uint64, error) { return t.backing.Len() }

// Keys enumerates the backing store's keys.
func (t *TieredStore) Keys() ([][]byte, error) { return t.backing.Keys() }

// PutSync writes through with the backing store's durability barrier.
func (t *TieredStore) PutSync(prefixName string, key, value []byte) error {
	if err := t.backing.PutSync(prefixName, key, value); err != nil {
		return err
	}
	return t.cache.Put(prefixName, key, value)
}

// WriteBatchSync applies the batch with the backing store's durability
// barrier, then mirrors it into the cache.
func (t *TieredStore) WriteBatchSync(prefixName string, batch *WriteBatch) error {
	if err := t.backing.WriteBatchSync(prefixName, batch); err != nil {
		return err
	}
	return t.cache.WriteBatch(prefixName, batch)
}

var _ Store = (*TieredStore)(nil)
