package testing

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/eKV/lib/db"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// DriverFactory is a function that creates a new instance of a Driver implementation
type DriverFactory func() db.Driver

// Flag sets used by the suite, matching the ones the connection layer passes
const (
	flagsCreate   = db.FlagCreate | db.FlagReadWrite
	flagsReadOnly = db.FlagReadOnly
	flagsMMap     = db.FlagMMap | db.FlagReadOnly
	flagsTemp     = db.FlagTempDB | db.FlagReadWrite
)

// RunDriverTests runs a comprehensive test suite for a Driver implementation.
func RunDriverTests(t *testing.T, name string, factory DriverFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Identity", func(t *testing.T) {
			testIdentity(t, factory())
		})

		t.Run("Store&Fetch", func(t *testing.T) {
			testStoreFetch(t, factory())
		})

		t.Run("Append", func(t *testing.T) {
			testAppend(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Transactions", func(t *testing.T) {
			testTransactions(t, factory())
		})

		t.Run("Persistence", func(t *testing.T) {
			testPersistence(t, factory())
		})

		t.Run("ReadOnly", func(t *testing.T) {
			testReadOnly(t, factory())
		})

		t.Run("MMap", func(t *testing.T) {
			testMMap(t, factory())
		})

		t.Run("TempDB", func(t *testing.T) {
			testTempDB(t, factory())
		})

		t.Run("Config", func(t *testing.T) {
			testConfig(t, factory())
		})

		t.Run("RandomBytes", func(t *testing.T) {
			testRandomBytes(t, factory())
		})

		t.Run("Concurrency", func(t *testing.T) {
			testConcurrency(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// openHandle opens a handle and fails the test if the driver reports an error
func openHandle(t testing.TB, driver db.Driver, flags db.OpenFlag, path string) db.Handle {
	t.Helper()
	h, status, msg := driver.Open(flags, path)
	if status != db.StatusOK || h == nil {
		t.Fatalf("Open(%s, %q) failed: %s (%s)", flags, path, status, msg)
	}
	return h
}

// closeHandle closes a handle and fails the test if the driver reports an error
func closeHandle(t testing.TB, h db.Handle) {
	t.Helper()
	if status := h.Close(); status != db.StatusOK {
		msg, _ := h.LastError()
		t.Errorf("Close failed: %s (%s)", status, msg)
	}
}

func expectStatus(t testing.TB, op string, got, want db.Status) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected status %s, got %s", op, want, got)
	}
}

func expectValue(t testing.TB, h db.Handle, key string, want []byte) {
	t.Helper()
	got, status := h.Fetch([]byte(key))
	if status != db.StatusOK {
		t.Errorf("Fetch(%q): expected value %q, got status %s", key, want, status)
		return
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Fetch(%q): expected value %q, got %q", key, want, got)
	}
}

func expectMissing(t testing.TB, h db.Handle, key string) {
	t.Helper()
	if _, status := h.Fetch([]byte(key)); status != db.StatusNotFound {
		t.Errorf("Fetch(%q): expected NotFound, got %s", key, status)
	}
}

// memHandle opens a writable in-memory database
func memHandle(t testing.TB, driver db.Driver) db.Handle {
	t.Helper()
	return openHandle(t, driver, flagsCreate, db.MemPath)
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testIdentity(t *testing.T, driver db.Driver) {
	if driver.Name() == "" {
		t.Errorf("Expected a non-empty engine name")
	}
	if driver.Version() == "" {
		t.Errorf("Expected a non-empty engine version")
	}
	if driver.Signature() == "" {
		t.Errorf("Expected a non-empty engine signature")
	}
}

func testStoreFetch(t *testing.T, driver db.Driver) {
	h := memHandle(t, driver)
	defer closeHandle(t, h)

	expectStatus(t, "Store", h.Store([]byte("key"), []byte("value-1")), db.StatusOK)
	expectValue(t, h, "key", []byte("value-1"))

	expectStatus(t, "Store", h.Store([]byte("key"), []byte("value-2")), db.StatusOK)
	expectValue(t, h, "key", []byte("value-2"))

	expectMissing(t, h, "nonexistent-key")

	retrieved, _ := h.Fetch([]byte("key"))
	retrieved[0] = 'X'
	expectValue(t, h, "key", []byte("value-2"))

	input := []byte("input")
	expectStatus(t, "Store", h.Store([]byte("input-key"), input), db.StatusOK)
	input[0] = 'X'
	expectValue(t, h, "input-key", []byte("input"))

	expectStatus(t, "Store(empty value)", h.Store([]byte("empty"), []byte{}), db.StatusOK)
	expectValue(t, h, "empty", []byte{})

	if status := h.Store(nil, []byte("value")); status == db.StatusOK {
		t.Errorf("Expected Store with an empty key to fail")
	}
}

func testAppend(t *testing.T, driver db.Driver) {
	h := memHandle(t, driver)
	defer closeHandle(t, h)

	expectStatus(t, "Append(new)", h.Append([]byte("log"), []byte("a")), db.StatusOK)
	expectStatus(t, "Append", h.Append([]byte("log"), []byte("b")), db.StatusOK)
	expectStatus(t, "Append", h.Append([]byte("log"), []byte("c")), db.StatusOK)
	expectValue(t, h, "log", []byte("abc"))
}

func testDelete(t *testing.T, driver db.Driver) {
	h := memHandle(t, driver)
	defer closeHandle(t, h)

	expectStatus(t, "Store", h.Store([]byte("key"), []byte("value")), db.StatusOK)
	expectStatus(t, "Delete", h.Delete([]byte("key")), db.StatusOK)
	expectMissing(t, h, "key")
	expectStatus(t, "Delete(missing)", h.Delete([]byte("key")), db.StatusNotFound)
}

func testTransactions(t *testing.T, driver db.Driver) {
	h := memHandle(t, driver)
	defer closeHandle(t, h)

	inspector, _ := h.(db.TxInspector)
	inTx := func(want bool) {
		t.Helper()
		if inspector != nil && inspector.InTransaction() != want {
			t.Errorf("Expected InTransaction() == %v", want)
		}
	}

	t.Run("Commit", func(t *testing.T) {
		expectStatus(t, "Begin", h.Begin(), db.StatusOK)
		inTx(true)
		expectStatus(t, "Store", h.Store([]byte("tx-key"), []byte("tx-value")), db.StatusOK)
		expectValue(t, h, "tx-key", []byte("tx-value"))
		expectStatus(t, "Commit", h.Commit(), db.StatusOK)
		inTx(false)
		expectValue(t, h, "tx-key", []byte("tx-value"))
	})

	t.Run("Rollback", func(t *testing.T) {
		expectStatus(t, "Begin", h.Begin(), db.StatusOK)
		expectStatus(t, "Store", h.Store([]byte("rolled-back"), []byte("value")), db.StatusOK)
		expectStatus(t, "Delete", h.Delete([]byte("tx-key")), db.StatusOK)
		expectMissing(t, h, "tx-key")
		expectStatus(t, "Rollback", h.Rollback(), db.StatusOK)
		inTx(false)
		expectMissing(t, h, "rolled-back")
		expectValue(t, h, "tx-key", []byte("tx-value"))
	})

	t.Run("BeginTwice", func(t *testing.T) {
		expectStatus(t, "Begin", h.Begin(), db.StatusOK)
		if status := h.Begin(); status == db.StatusOK {
			t.Errorf("Expected a second Begin to fail")
		}
		expectStatus(t, "Rollback", h.Rollback(), db.StatusOK)
	})

	t.Run("RollbackIdle", func(t *testing.T) {
		if status := h.Rollback(); status == db.StatusOK {
			t.Errorf("Expected Rollback without a transaction to fail")
		}
		if _, ok := h.LastError(); !ok {
			t.Errorf("Expected a last error message after a failed Rollback")
		}
	})
}

func testPersistence(t *testing.T, driver db.Driver) {
	path := filepath.Join(t.TempDir(), "persist.db")

	h := openHandle(t, driver, flagsCreate, path)
	expectStatus(t, "Store", h.Store([]byte("implicit"), []byte("1")), db.StatusOK)
	expectStatus(t, "Begin", h.Begin(), db.StatusOK)
	expectStatus(t, "Store", h.Store([]byte("committed"), []byte("2")), db.StatusOK)
	expectStatus(t, "Commit", h.Commit(), db.StatusOK)
	expectStatus(t, "Begin", h.Begin(), db.StatusOK)
	expectStatus(t, "Store", h.Store([]byte("open-tx"), []byte("3")), db.StatusOK)
	closeHandle(t, h)

	h = openHandle(t, driver, flagsCreate, path)
	defer closeHandle(t, h)
	expectValue(t, h, "implicit", []byte("1"))
	expectValue(t, h, "committed", []byte("2"))
	expectMissing(t, h, "open-tx")

	if _, status, _ := driver.Open(db.FlagReadWrite, filepath.Join(t.TempDir(), "missing.db")); status == db.StatusOK {
		t.Errorf("Expected opening a missing database without Create to fail")
	}
}

func testReadOnly(t *testing.T, driver db.Driver) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ro.db")

	h := openHandle(t, driver, flagsCreate, path)
	expectStatus(t, "Store", h.Store([]byte("key"), []byte("value")), db.StatusOK)
	closeHandle(t, h)

	ro := openHandle(t, driver, flagsReadOnly, path)
	expectValue(t, ro, "key", []byte("value"))
	expectStatus(t, "Store", ro.Store([]byte("key"), []byte("other")), db.StatusReadOnly)
	expectStatus(t, "Delete", ro.Delete([]byte("key")), db.StatusReadOnly)
	if status := ro.Begin(); status == db.StatusOK {
		t.Errorf("Expected Begin on a read-only handle to fail")
	}
	expectValue(t, ro, "key", []byte("value"))
	closeHandle(t, ro)

	if h, status, _ := driver.Open(flagsReadOnly, filepath.Join(dir, "missing.db")); status == db.StatusOK || h != nil {
		t.Errorf("Expected opening a missing database read-only to fail")
	}

	mem := openHandle(t, driver, flagsReadOnly, db.MemPath)
	expectMissing(t, mem, "key")
	expectStatus(t, "Store(:mem:)", mem.Store([]byte("key"), []byte("value")), db.StatusReadOnly)
	closeHandle(t, mem)
}

func testMMap(t *testing.T, driver db.Driver) {
	path := filepath.Join(t.TempDir(), "mmap.db")

	h := openHandle(t, driver, flagsCreate, path)
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%d", i)
		expectStatus(t, "Store", h.Store([]byte(key), []byte(key+"-value")), db.StatusOK)
	}
	closeHandle(t, h)

	m := openHandle(t, driver, flagsMMap, path)
	defer closeHandle(t, m)
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%d", i)
		expectValue(t, m, key, []byte(key+"-value"))
	}
	expectStatus(t, "Store", m.Store([]byte("key-0"), []byte("x")), db.StatusReadOnly)
}

func testTempDB(t *testing.T, driver db.Driver) {
	path := filepath.Join(t.TempDir(), "temp.db")

	h := openHandle(t, driver, flagsTemp, path)
	expectStatus(t, "Store", h.Store([]byte("key"), []byte("value")), db.StatusOK)
	expectValue(t, h, "key", []byte("value"))
	closeHandle(t, h)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected the temporary database %s to be removed on close", path)
	}

	anon := openHandle(t, driver, flagsTemp, "")
	expectStatus(t, "Store", anon.Store([]byte("key"), []byte("value")), db.StatusOK)
	closeHandle(t, anon)
}

func testConfig(t *testing.T, driver db.Driver) {
	h := memHandle(t, driver)
	defer closeHandle(t, h)

	cases := []struct {
		op    db.ConfigOp
		value any
	}{
		{db.ConfigMaxPageCache, int64(512)},
		{db.ConfigPageSize, int64(8192)},
		{db.ConfigMaxPageCount, int64(1 << 20)},
		{db.ConfigDisableAutoCommit, true},
		{db.ConfigDisableAutoCommit, false},
		{db.ConfigKVEngine, driver.Name()},
	}
	for _, c := range cases {
		t.Run(c.op.String(), func(t *testing.T) {
			expectStatus(t, "ConfigSet", h.ConfigSet(c.op, c.value), db.StatusOK)
			got, status := h.ConfigGet(c.op)
			expectStatus(t, "ConfigGet", status, db.StatusOK)
			if got != c.value {
				t.Errorf("Expected %v, got %v", c.value, got)
			}
		})
	}

	if status := h.ConfigSet(db.ConfigPageSize, "large"); status == db.StatusOK {
		t.Errorf("Expected ConfigSet with a wrong value type to fail")
	}
	if _, status := h.ConfigGet(db.ConfigOp(999)); status == db.StatusOK {
		t.Errorf("Expected ConfigGet with an unknown verb to fail")
	}
}

func testRandomBytes(t *testing.T, driver db.Driver) {
	h := memHandle(t, driver)
	defer closeHandle(t, h)

	for _, n := range []int{0, 1, 16, 1000} {
		if got := h.RandomBytes(n); len(got) != n {
			t.Errorf("RandomBytes(%d): expected %d bytes, got %d", n, n, len(got))
		}
	}
	if bytes.Equal(h.RandomBytes(32), h.RandomBytes(32)) {
		t.Errorf("Expected two random sequences to differ")
	}
}

func testConcurrency(t *testing.T, driver db.Driver) {
	if !driver.Threadsafe() {
		t.Skip("driver does not serialize concurrent calls")
	}
	h := memHandle(t, driver)
	defer closeHandle(t, h)

	const (
		workers = 8
		perKey  = 200
	)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perKey; i++ {
				key := []byte(fmt.Sprintf("worker-%d-key-%d", w, i))
				if status := h.Store(key, key); status != db.StatusOK {
					t.Errorf("concurrent Store failed: %s", status)
					return
				}
				if _, status := h.Fetch(key); status != db.StatusOK {
					t.Errorf("concurrent Fetch failed: %s", status)
					return
				}
				_ = h.Append([]byte("shared"), []byte{'x'})
			}
		}(w)
	}
	wg.Wait()

	shared, status := h.Fetch([]byte("shared"))
	expectStatus(t, "Fetch(shared)", status, db.StatusOK)
	if len(shared) != workers*perKey {
		t.Errorf("Expected %d appended bytes, got %d", workers*perKey, len(shared))
	}
}
