package conn

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/lib/db/engines/maple"
	dbtesting "github.com/ValentinKolb/eKV/lib/db/testing"
	"path/filepath"
	"sync"
	"testing"
)

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func newFaultDriver() *dbtesting.FaultDriver {
	return dbtesting.NewFaultDriver(maple.NewDriver(nil))
}

// openConn opens a connection and closes it when the test ends
func openConn(t *testing.T, path string, mode OpenMode, opts ...Option) *Connection {
	t.Helper()
	c, err := Open(path, mode, opts...)
	if err != nil {
		t.Fatalf("Open(%q, %s) failed: %v", path, mode, err)
	}
	t.Cleanup(func() {
		_ = c.Close()
	})
	return c
}

// seedFile creates a database file containing key=value
func seedFile(t *testing.T, key, value string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.db")
	c, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := c.Store([]byte(key), []byte(value)); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return path
}

func expectKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Errorf("Expected an error of kind %s, got nil", kind)
		return
	}
	got, ok := KindOf(err)
	if !ok {
		t.Errorf("Expected an *Error of kind %s, got %T: %v", kind, err, err)
		return
	}
	if got != kind {
		t.Errorf("Expected kind %s, got %s (%v)", kind, got, err)
	}
	if !errors.Is(err, kind.sentinel()) {
		t.Errorf("Expected errors.Is(err, %v) to hold", kind.sentinel())
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func TestConstructors(t *testing.T) {
	path := seedFile(t, "key", "value")

	constructors := map[string]struct {
		open func() (*Connection, error)
		mode OpenMode
	}{
		"Create":         {func() (*Connection, error) { return Create(filepath.Join(t.TempDir(), "new.db")) }, ModeCreate},
		"CreateInMemory": {func() (*Connection, error) { return CreateInMemory() }, ModeCreate},
		"CreateTemp":     {func() (*Connection, error) { return CreateTemp() }, ModeTempDB},
		"OpenReadOnly":   {func() (*Connection, error) { return OpenReadOnly(path) }, ModeReadOnly},
		"OpenMMap":       {func() (*Connection, error) { return OpenMMap(path) }, ModeMMap},
	}

	for name, tc := range constructors {
		t.Run(name, func(t *testing.T) {
			c, err := tc.open()
			if err != nil {
				t.Fatalf("%s failed: %v", name, err)
			}
			if c.Mode() != tc.mode {
				t.Errorf("Expected mode %s, got %s", tc.mode, c.Mode())
			}
			if _, err := c.GetConfig(KeyPageSize); err != nil {
				t.Errorf("Expected a config read on a fresh connection to succeed, got %v", err)
			}
			if c.Closed() {
				t.Errorf("Expected a fresh connection to be open")
			}
			if c.TxState() != TxIdle {
				t.Errorf("Expected a fresh connection to be idle, got %s", c.TxState())
			}
			if c.ID() == "" {
				t.Errorf("Expected a connection id")
			}
			if err := c.Close(); err != nil {
				t.Errorf("Close failed: %v", err)
			}
			if err := c.Close(); err != nil {
				t.Errorf("Second Close should succeed, got %v", err)
			}
			if !c.Closed() {
				t.Errorf("Expected the connection to be closed")
			}
		})
	}

	t.Run("ReadOnlySeesData", func(t *testing.T) {
		for _, mode := range []OpenMode{ModeReadOnly, ModeMMap} {
			c := openConn(t, path, mode)
			value, err := c.Fetch([]byte("key"))
			if err != nil {
				t.Fatalf("%s: Fetch failed: %v", mode, err)
			}
			if string(value) != "value" {
				t.Errorf("%s: expected value, got %q", mode, value)
			}
			_ = c.Close()
		}
	})
}

func TestOpenFailures(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.db")

	cases := map[string]func() (*Connection, error){
		"ReadOnlyMissing": func() (*Connection, error) { return OpenReadOnly(missing) },
		"MMapMissing":     func() (*Connection, error) { return OpenMMap(missing) },
		"CreateNoDir":     func() (*Connection, error) { return Create(filepath.Join(dir, "no", "such", "dir.db")) },
	}
	for name, open := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := open()
			if c != nil {
				t.Errorf("Expected no connection on failure")
			}
			expectKind(t, err, KindOpenFailed)
			var e *Error
			if errors.As(err, &e) && e.Code == db.StatusOK {
				t.Errorf("Expected the native status to be retained")
			}
		})
	}

	t.Run("BusyIsOpenFailed", func(t *testing.T) {
		path := filepath.Join(dir, "busy.db")
		openConn(t, path, ModeCreate)
		_, err := Create(path)
		expectKind(t, err, KindOpenFailed)
		var e *Error
		if !errors.As(err, &e) || e.Code != db.StatusBusy {
			t.Errorf("Expected native status Busy, got %v", err)
		}
	})

	t.Run("InjectedFault", func(t *testing.T) {
		fd := newFaultDriver()
		fd.Inject(dbtesting.OpOpen, db.StatusNoMem)
		_, err := CreateInMemory(WithDriver(fd))
		expectKind(t, err, KindOpenFailed)
		if fd.Calls(dbtesting.OpOpen) != 1 {
			t.Errorf("Expected exactly one engine open, got %d", fd.Calls(dbtesting.OpOpen))
		}
	})
}

func TestMust(t *testing.T) {
	c := Must(CreateInMemory())
	_ = c.Close()

	defer func() {
		if recover() == nil {
			t.Errorf("Expected Must to panic on an open failure")
		}
	}()
	Must(OpenReadOnly(filepath.Join(t.TempDir(), "missing.db")))
}

func TestCloseFailureStillReleases(t *testing.T) {
	fd := newFaultDriver()
	c := openConn(t, db.MemPath, ModeCreate, WithDriver(fd))
	if err := c.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	fd.Inject(dbtesting.OpClose, db.StatusIOErr)
	err := c.Close()
	expectKind(t, err, KindEngineFailure)
	var e *Error
	if !errors.As(err, &e) || e.Code != db.StatusIOErr || e.Msg == "" {
		t.Errorf("Expected native status IOErr with a message, got %v", err)
	}

	if !c.Closed() {
		t.Errorf("Expected the connection to be released after a failed close")
	}
	if c.TxState() != TxIdle {
		t.Errorf("Expected the connection to be idle after close, got %s", c.TxState())
	}
	if err := c.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}
	if fd.Calls(dbtesting.OpClose) != 1 {
		t.Errorf("Expected exactly one engine close, got %d", fd.Calls(dbtesting.OpClose))
	}
}

func TestClosedConnection(t *testing.T) {
	fd := newFaultDriver()
	c, err := CreateInMemory(WithDriver(fd))
	if err != nil {
		t.Fatalf("CreateInMemory failed: %v", err)
	}
	_ = c.Close()
	fd.Reset()

	checks := map[string]error{
		"Begin":     c.Begin(),
		"Commit":    c.Commit(),
		"Rollback":  c.Rollback(),
		"Store":     c.Store([]byte("k"), []byte("v")),
		"Append":    c.Append([]byte("k"), []byte("v")),
		"Delete":    c.Delete([]byte("k")),
		"SetConfig": c.SetConfig(KeyPageSize, IntValue(4096)),
	}
	_, checks["Fetch"] = c.Fetch([]byte("k"))
	_, checks["GetConfig"] = c.GetConfig(KeyPageSize)
	_, checks["RandomBytes"] = c.RandomBytes(8)

	for name, err := range checks {
		t.Run(name, func(t *testing.T) {
			expectKind(t, err, KindEngineFailure)
			if !errors.Is(err, ErrClosed) {
				t.Errorf("Expected ErrClosed, got %v", err)
			}
		})
	}

	for op := dbtesting.OpOpen; op <= dbtesting.OpRandom; op++ {
		if fd.Calls(op) != 0 {
			t.Errorf("Expected no engine calls on a closed connection, got %d for %s", fd.Calls(op), op)
		}
	}
}

func TestScope(t *testing.T) {
	var captured *Connection
	fnErr := errors.New("fn failed")

	err := Scope(func() (*Connection, error) {
		return CreateInMemory()
	}, func(c *Connection) error {
		captured = c
		return fnErr
	})
	if !errors.Is(err, fnErr) {
		t.Errorf("Expected the error of fn, got %v", err)
	}
	if captured == nil || !captured.Closed() {
		t.Errorf("Expected Scope to close the connection")
	}

	t.Run("CloseErrorJoined", func(t *testing.T) {
		fd := newFaultDriver()
		err := Scope(func() (*Connection, error) {
			return CreateInMemory(WithDriver(fd))
		}, func(c *Connection) error {
			fd.Inject(dbtesting.OpClose, db.StatusIOErr)
			return nil
		})
		expectKind(t, err, KindEngineFailure)
	})

	t.Run("Panic", func(t *testing.T) {
		var c *Connection
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Expected the panic to propagate")
				}
			}()
			_ = Scope(func() (*Connection, error) {
				return CreateInMemory()
			}, func(inner *Connection) error {
				c = inner
				panic("boom")
			})
		}()
		if c == nil || !c.Closed() {
			t.Errorf("Expected Scope to close the connection on panic")
		}
	})

	t.Run("OpenError", func(t *testing.T) {
		called := false
		err := Scope(func() (*Connection, error) {
			return OpenReadOnly(filepath.Join(t.TempDir(), "missing.db"))
		}, func(c *Connection) error {
			called = true
			return nil
		})
		expectKind(t, err, KindOpenFailed)
		if called {
			t.Errorf("Expected fn not to run when open fails")
		}
	})
}

func TestThreadsafeCapability(t *testing.T) {
	fd := newFaultDriver()
	fd.SetThreadsafe(false)

	_, err := CreateInMemory(WithDriver(fd), WithThreadsafe(true))
	expectKind(t, err, KindOpenFailed)
	if fd.Calls(dbtesting.OpOpen) != 0 {
		t.Errorf("Expected the capability check to happen before the engine is called")
	}

	c := openConn(t, db.MemPath, ModeCreate, WithDriver(fd), WithThreadsafe(false))
	if c.Threadsafe() {
		t.Errorf("Expected a connection without thread support")
	}
	if err := c.Store([]byte("key"), []byte("value")); err != nil {
		t.Errorf("Store failed: %v", err)
	}
}

func TestInMemoryIsolation(t *testing.T) {
	c, err := CreateInMemory()
	if err != nil {
		t.Fatalf("CreateInMemory failed: %v", err)
	}

	if err := c.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := c.Store([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := c.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	value, err := c.Fetch([]byte("k"))
	if err != nil || !bytes.Equal(value, []byte("v")) {
		t.Errorf("Expected v after commit, got %q (%v)", value, err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	fresh := openConn(t, db.MemPath, ModeCreate)
	_, err = fresh.Fetch([]byte("k"))
	expectKind(t, err, KindNotFound)
}

func TestReadOnlyMem(t *testing.T) {
	fd := newFaultDriver()
	c := openConn(t, db.MemPath, ModeReadOnly, WithDriver(fd))

	expectKind(t, c.Store([]byte("k"), []byte("v")), KindReadOnlyViolation)
	expectKind(t, c.Begin(), KindReadOnlyViolation)
	if fd.Calls(dbtesting.OpStore) != 0 || fd.Calls(dbtesting.OpBegin) != 0 {
		t.Errorf("Expected read-only violations to be detected without engine calls")
	}
	_, err := c.Fetch([]byte("k"))
	expectKind(t, err, KindNotFound)
}

func TestConcurrentUse(t *testing.T) {
	c := openConn(t, db.MemPath, ModeCreate)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := []byte(fmt.Sprintf("w%d-%d", w, i))
				if err := c.Store(key, key); err != nil {
					t.Errorf("Store failed: %v", err)
					return
				}
				if _, err := c.Fetch(key); err != nil {
					t.Errorf("Fetch failed: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()
}
