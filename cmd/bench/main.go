// Command bench runs a synthetic workload against the cache store and
// exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/cachestore/metrics/prom"
	"github.com/IvanBrykalov/cachestore/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// ---- Flags ----
	var (
		capacity = flag.Int("cap", 100_000, "cache capacity (entries)")
		shards   = flag.Int("shards", 16, "number of shards (power of two)")
		prefixes = flag.Int("prefixes", 4, "number of column-family prefixes")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")
		batchSz  = flag.Int("batch", 16, "rows per write batch")

		keys    = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload = flag.Int("preload", 0, "preload entries (0 = cap/2)")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	metrics := storage.NewMetrics(nil, "cachestore")
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build store ----
	s := storage.NewCacheStore(storage.CacheStoreOptions{
		Capacity:     *capacity,
		Shards:       *shards,
		Metrics:      metrics,
		CacheMetrics: prom.New(nil, "cachestore", "cache", nil),
	})

	prefixNames := make([]string, *prefixes)
	for i := range prefixNames {
		prefixNames[i] = "cf" + strconv.Itoa(i)
	}

	// ---- Preload half capacity to get a realistic hit-rate ----
	pl := *preload
	if pl == 0 {
		pl = *capacity / 2
	}
	for i := 0; i < pl; i++ {
		pfx := prefixNames[i%len(prefixNames)]
		k := []byte("k:" + strconv.Itoa(i))
		_ = s.Put(pfx, k, []byte("v"+strconv.Itoa(i)))
	}

	// ---- Snapshot flags for goroutines ----
	readPctVal := *readPct
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	batchRows := *batchSz
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var reads, writes, batches, hits uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seedBase + int64(id)*7919))
			zipf := rand.NewZipf(r, zipfSVal, zipfVVal, keysMax)
			for ctx.Err() == nil {
				pfx := prefixNames[r.Intn(len(prefixNames))]
				k := []byte("k:" + strconv.FormatUint(zipf.Uint64(), 10))
				switch {
				case r.Intn(100) < readPctVal:
					if _, ok, _ := s.Get(pfx, k); ok {
						atomic.AddUint64(&hits, 1)
					}
					atomic.AddUint64(&reads, 1)
				case r.Intn(10) == 0:
					// Occasional batch write: a run of puts plus one delete.
					b := storage.NewWriteBatch()
					for j := 0; j < batchRows; j++ {
						b.Put([]byte("k:"+strconv.FormatUint(zipf.Uint64(), 10)), []byte("v"))
					}
					b.Delete(k)
					_ = s.WriteBatch(pfx, b)
					atomic.AddUint64(&batches, 1)
				default:
					_ = s.Put(pfx, k, []byte("v"))
					atomic.AddUint64(&writes, 1)
				}
			}
		}(w)
	}
	wg.Wait()

	elapsed := time.Since(start)
	totalReads := atomic.LoadUint64(&reads)
	totalWrites := atomic.LoadUint64(&writes)
	totalBatches := atomic.LoadUint64(&batches)
	totalHits := atomic.LoadUint64(&hits)
	n, _ := s.Len()

	hitRate := 0.0
	if totalReads > 0 {
		hitRate = 100 * float64(totalHits) / float64(totalReads)
	}
	opsPerSec := float64(totalReads+totalWrites+totalBatches) / elapsed.Seconds()

	fmt.Printf("duration=%v reads=%d writes=%d batches=%d hit-rate=%.1f%% ops/s=%.0f resident=%d\n",
		elapsed.Round(time.Millisecond), totalReads, totalWrites, totalBatches, hitRate, opsPerSec, n)
}
