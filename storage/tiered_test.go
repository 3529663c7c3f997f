package storage

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a plain map-backed Store used as the backing tier in tests.
// It counts Get calls so read-through behavior can be asserted.
type memStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	gets  atomic.Int64
	delay time.Duration // optional per-Get latency to widen race windows
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Get(prefixName string, key []byte) ([]byte, bool, error) {
	m.gets.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[composeKey(prefixName, key)]
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(v), true, nil
}

func (m *memStore) Put(prefixName string, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[composeKey(prefixName, key)] = cloneBytes(value)
	return nil
}

func (m *memStore) ContainsKey(prefixName string, key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[composeKey(prefixName, key)]
	return ok, nil
}

func (m *memStore) Remove(prefixName string, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, composeKey(prefixName, key))
	return nil
}

func (m *memStore) WriteBatch(prefixName string, batch *WriteBatch) error {
	for _, row := range batch.Rows() {
		switch row.Op {
		case OpPut:
			if err := m.Put(prefixName, row.Key, row.Value); err != nil {
				return err
			}
		case OpDelete:
			if err := m.Remove(prefixName, row.Key); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *memStore) Len() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.data)), nil
}

func (m *memStore) Keys() ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]byte, 0, len(m.data))
	for k := range m.data {
		out = append(out, []byte(k))
	}
	return out, nil
}

func (m *memStore) PutSync(prefixName string, key, value []byte) error {
	return m.Put(prefixName, key, value)
}

func (m *memStore) WriteBatchSync(prefixName string, batch *WriteBatch) error {
	return m.WriteBatch(prefixName, batch)
}

var _ Store = (*memStore)(nil)

func newTieredPair(t *testing.T) (*TieredStore, *memStore) {
	t.Helper()
	backing := newMemStore()
	ts, err := NewTieredStore(NewCacheStore(CacheStoreOptions{Capacity: 128}), backing, nil)
	require.NoError(t, err)
	return ts, backing
}

func TestTieredStore_ReadThroughBackfillsCache(t *testing.T) {
	ts, backing := newTieredPair(t)

	// Value exists only in the backing store.
	require.NoError(t, backing.Put("cf", []byte("cold"), []byte("v")))

	v, ok, err := ts.Get("cf", []byte("cold"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
	assert.Equal(t, int64(1), backing.gets.Load())

	// Second read is served by the cache tier.
	v, ok, err = ts.Get("cf", []byte("cold"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
	assert.Equal(t, int64(1), backing.gets.Load(), "second read must not touch the backing store")
}

func TestTieredStore_MissInBothTiers(t *testing.T) {
	ts, _ := newTieredPair(t)

	v, ok, err := ts.Get("cf", []byte("nope"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestTieredStore_WriteThrough(t *testing.T) {
	ts, backing := newTieredPair(t)

	require.NoError(t, ts.Put("cf", []byte("k"), []byte("v")))

	// Both tiers hold the value.
	_, ok, _ := backing.Get("cf", []byte("k"))
	assert.True(t, ok)
	got, ok, err := ts.Get("cf", []byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, ts.Remove("cf", []byte("k")))
	_, ok, _ = ts.Get("cf", []byte("k"))
	assert.False(t, ok)
	_, ok, _ = backing.Get("cf", []byte("k"))
	assert.False(t, ok)
}

func TestTieredStore_WriteBatchReachesBothTiers(t *testing.T) {
	ts, backing := newTieredPair(t)
	require.NoError(t, backing.Put("cf", []byte("stale"), []byte("old")))

	b := NewWriteBatch()
	b.Put([]byte("fresh"), []byte("new"))
	b.Delete([]byte("stale"))
	require.NoError(t, ts.WriteBatch("cf", b))

	_, ok, _ := backing.Get("cf", []byte("stale"))
	assert.False(t, ok)
	v, ok, _ := ts.Get("cf", []byte("fresh"))
	require.True(t, ok)
	assert.Equal(t, []byte("new"), v)

	// Len/Keys report the authoritative (backing) tier.
	n, err := ts.Len()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	keys, err := ts.Keys()
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

// Many concurrent cold reads of the same key collapse into one backing read.
func TestTieredStore_ColdReadsAreCoalesced(t *testing.T) {
	backing := newMemStore()
	backing.delay = 5 * time.Millisecond
	require.NoError(t, backing.Put("cf", []byte("hot"), []byte("v")))

	ts, err := NewTieredStore(NewCacheStore(CacheStoreOptions{Capacity: 128}), backing, nil)
	require.NoError(t, err)

	const goroutines = 50
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, ok, err := ts.Get("cf", []byte("hot"))
			if err != nil || !ok || string(v) != "v" {
				t.Errorf("Get = (%q, %v, %v)", v, ok, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.LessOrEqual(t, backing.gets.Load(), int64(2),
		"concurrent misses for one key must coalesce to (almost) one backing read")
}

// Coalesced callers share one flight result; mutating one caller's slice
// must not leak into another caller's slice or into the cached value.
func TestTieredStore_ColdReadResultsDoNotAlias(t *testing.T) {
	backing := newMemStore()
	backing.delay = 50 * time.Millisecond
	require.NoError(t, backing.Put("cf", []byte("k"), []byte("abc")))

	ts, err := NewTieredStore(NewCacheStore(CacheStoreOptions{Capacity: 128}), backing, nil)
	require.NoError(t, err)

	start := make(chan struct{})
	results := make([][]byte, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			<-start
			v, ok, err := ts.Get("cf", []byte("k"))
			if err != nil || !ok {
				t.Errorf("Get = (%q, %v, %v)", v, ok, err)
				return
			}
			results[i] = v
		}(i)
	}
	close(start)
	wg.Wait()

	// Both callers saw the value; scribbling over one copy leaves the
	// other copy and the store untouched.
	require.Equal(t, []byte("abc"), results[0])
	require.Equal(t, []byte("abc"), results[1])
	results[0][0] = 'X'
	assert.Equal(t, []byte("abc"), results[1])

	v, ok, err := ts.Get("cf", []byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), v)
}
