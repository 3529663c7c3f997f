// Package storage provides the namespaced store surface of the storage
// subsystem: a shared Store contract, a bounded in-memory cache tier
// implementing it (CacheStore), an ordered write batch, a Prometheus-backed
// operation recorder, and a tiered composition that puts the cache in front
// of a persistent backing store.
package storage

// Store is the contract shared by every key-value backend in the storage
// subsystem: the in-memory cache tier here, persistent engines elsewhere,
// and tiered compositions of both. Keys are raw bytes scoped by a prefix
// name (column family); values are opaque bytes.
//
// Implementations must be safe for concurrent use by multiple goroutines.
// Absence of a key is never an error: Get reports (nil, false, nil) and
// Remove of a missing key is a no-op.
type Store interface {
	// Get returns the value stored under (prefixName, key).
	// A miss is (nil, false, nil).
	Get(prefixName string, key []byte) ([]byte, bool, error)

	// Put stores value under (prefixName, key), overwriting any previous value.
	Put(prefixName string, key, value []byte) error

	// ContainsKey reports whether (prefixName, key) is present.
	ContainsKey(prefixName string, key []byte) (bool, error)

	// Remove deletes (prefixName, key) if present.
	Remove(prefixName string, key []byte) error

	// WriteBatch applies the batch's rows under prefixName, strictly in the
	// order they were appended. The first failure stops the replay and is
	// returned; earlier rows stay applied (no rollback).
	WriteBatch(prefixName string, batch *WriteBatch) error

	// Len returns the total number of stored entries.
	Len() (uint64, error)

	// Keys enumerates all stored keys in their composite (prefixed) form.
	// The snapshot may be taken piecewise; see the implementation's
	// consistency notes.
	Keys() ([][]byte, error)

	// PutSync is Put with a durability barrier, for backends that buffer
	// writes. Volatile backends treat it exactly as Put.
	PutSync(prefixName string, key, value []byte) error

	// WriteBatchSync is WriteBatch with a durability barrier; volatile
	// backends treat it exactly as WriteBatch.
	WriteBatchSync(prefixName string, batch *WriteBatch) error
}
