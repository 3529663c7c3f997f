package storage

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// Mixed concurrent traffic across several prefixes: single reads/writes,
// batches, membership probes and whole-store scans. Run with -race.
func TestRace_CacheStoreMixedWorkload(t *testing.T) {
	s := NewCacheStore(CacheStoreOptions{Capacity: 4096, Shards: 16})
	prefixNames := []string{"block", "state", "tx"}

	deadline := time.Now().Add(2 * time.Second)
	var g errgroup.Group
	for w := 0; w < 8; w++ {
		id := w
		g.Go(func() error {
			for i := 0; time.Now().Before(deadline); i++ {
				pfx := prefixNames[(id+i)%len(prefixNames)]
				k := []byte("k:" + strconv.Itoa(i%2048))
				switch i % 7 {
				case 0:
					if err := s.Put(pfx, k, []byte("v")); err != nil {
						return err
					}
				case 1:
					if err := s.Remove(pfx, k); err != nil {
						return err
					}
				case 2:
					if _, err := s.ContainsKey(pfx, k); err != nil {
						return err
					}
				case 3:
					b := NewWriteBatch()
					b.Put(k, []byte("b1"))
					b.Delete([]byte("k:" + strconv.Itoa((i+1)%2048)))
					if err := s.WriteBatch(pfx, b); err != nil {
						return err
					}
				case 4:
					if _, err := s.Len(); err != nil {
						return err
					}
				case 5:
					if _, err := s.Keys(); err != nil {
						return err
					}
				default:
					if _, _, err := s.Get(pfx, k); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
