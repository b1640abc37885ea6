package testing

import (
	"fmt"
	"github.com/ValentinKolb/eKV/lib/db"
	"math/rand"
	"path/filepath"
	"sync/atomic"
	"testing"
)

// RunDriverBenchmarks runs all benchmarks for a driver implementation
func RunDriverBenchmarks(b *testing.B, name string, factory DriverFactory) {

	b.Run("Store", func(b *testing.B) {
		benchmarkStore(b, factory())
	})

	b.Run("StoreExisting", func(b *testing.B) {
		benchmarkStoreExisting(b, factory())
	})

	b.Run("StoreLargeValue", func(b *testing.B) {
		benchmarkStoreLargeValue(b, factory())
	})

	b.Run("Fetch", func(b *testing.B) {
		benchmarkFetch(b, factory())
	})

	b.Run("Transaction", func(b *testing.B) {
		benchmarkTransaction(b, factory())
	})

	b.Run("CommitToFile", func(b *testing.B) {
		benchmarkCommitToFile(b, factory())
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, factory())
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Store operation
func benchmarkStore(b *testing.B, driver db.Driver) {
	h := memHandle(b, driver)
	b.Cleanup(func() {
		h.Close()
	})

	var counter atomic.Int64
	value := []byte("benchmark-value")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			key := []byte(fmt.Sprintf("key-%d", counter.Add(1)))
			h.Store(key, value)
		}
	})
}

// Benchmark for Store operation on existing keys
func benchmarkStoreExisting(b *testing.B, driver db.Driver) {
	h := memHandle(b, driver)
	b.Cleanup(func() {
		h.Close()
	})

	const numKeys = 1000
	keys := make([][]byte, numKeys)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("existing-key-%d", i))
		h.Store(keys[i], []byte("initial-value"))
	}
	value := []byte("updated-value")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := rand.Intn(numKeys)
		for pb.Next() {
			h.Store(keys[i%numKeys], value)
			i++
		}
	})
}

// Benchmark for Store operation with a 1 MiB value
func benchmarkStoreLargeValue(b *testing.B, driver db.Driver) {
	h := memHandle(b, driver)
	b.Cleanup(func() {
		h.Close()
	})

	value := make([]byte, 1<<20)
	for i := range value {
		value[i] = byte(i % 256)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Store([]byte(fmt.Sprintf("large-key-%d", i%16)), value)
	}
}

// Benchmark for Fetch operation
func benchmarkFetch(b *testing.B, driver db.Driver) {
	h := memHandle(b, driver)
	b.Cleanup(func() {
		h.Close()
	})

	const numKeys = 10000
	keys := make([][]byte, numKeys)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("get-key-%d", i))
		h.Store(keys[i], []byte(fmt.Sprintf("value-%d", i)))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := rand.Intn(numKeys)
		for pb.Next() {
			h.Fetch(keys[i%numKeys])
			i++
		}
	})
}

// Benchmark for a transaction with ten writes on an in-memory database
func benchmarkTransaction(b *testing.B, driver db.Driver) {
	h := memHandle(b, driver)
	b.Cleanup(func() {
		h.Close()
	})

	value := []byte("tx-value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Begin()
		for j := 0; j < 10; j++ {
			h.Store([]byte(fmt.Sprintf("tx-key-%d", j)), value)
		}
		h.Commit()
	}
}

// Benchmark for a committed write to a file backed database with 1000 entries
func benchmarkCommitToFile(b *testing.B, driver db.Driver) {
	h := openHandle(b, driver, flagsCreate, filepath.Join(b.TempDir(), "bench.db"))
	b.Cleanup(func() {
		h.Close()
	})

	for i := 0; i < 1000; i++ {
		h.Store([]byte(fmt.Sprintf("key-%d", i)), []byte(fmt.Sprintf("value-%d", i)))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Begin()
		h.Store([]byte("counter"), []byte(fmt.Sprintf("%d", i)))
		h.Commit()
	}
}

// Benchmark for mixed operations (80% fetch, 15% store, 5% delete)
func benchmarkMixedUsage(b *testing.B, driver db.Driver) {
	h := memHandle(b, driver)
	b.Cleanup(func() {
		h.Close()
	})

	const numKeys = 1000
	keys := make([][]byte, numKeys)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("mixed-key-%d", i))
		h.Store(keys[i], []byte("initial"))
	}
	value := []byte("mixed-value")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			key := keys[r.Intn(numKeys)]
			switch op := r.Intn(100); {
			case op < 80:
				h.Fetch(key)
			case op < 95:
				h.Store(key, value)
			default:
				h.Delete(key)
			}
		}
	})
}
