package maple

import (
	"fmt"
	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/lib/db/engines/maple/internal"
	"github.com/ValentinKolb/eKV/lib/db/util"
	"math/bits"
	"math/rand/v2"
	"os"
	"sync"
)

// settings holds the tunables of a handle
type settings struct {
	maxPageCache      int64
	pageSize          int64
	maxPageCount      int64 // 0 = unlimited
	disableAutoCommit bool
	kvEngine          string
}

// handle is the maple implementation of db.Handle
type handle struct {
	driver *driverImpl
	flags  db.OpenFlag

	// serializes all calls unless the handle was opened with FlagNoMutex
	mu         sync.RWMutex
	threadsafe bool

	name      string       // path or db.MemPath, used for logging
	path      string       // file the database is persisted to ("" = never persisted)
	temp      bool         // remove path on close
	lockKey   string       // key in the file lock registry ("" = no lock held)
	lockWrite bool         // whether the held lock is a writer lock
	unmap     func() error // releases a memory mapping

	seed   uint64
	shards []*internal.Shard
	size   int64             // bytes of committed keys and values
	tx     *internal.Journal // open explicit transaction
	txSize int64             // size change of the open transaction
	dirty  bool              // implicit writes not yet persisted
	closed bool

	conf    settings
	rng     *rand.ChaCha8
	lastErr string
}

// --------------------------------------------------------------------------
// Locking helpers
// --------------------------------------------------------------------------

func (h *handle) lock() {
	if h.threadsafe {
		h.mu.Lock()
	}
}

func (h *handle) unlock() {
	if h.threadsafe {
		h.mu.Unlock()
	}
}

func (h *handle) rlock() {
	if h.threadsafe {
		h.mu.RLock()
	}
}

func (h *handle) runlock() {
	if h.threadsafe {
		h.mu.RUnlock()
	}
}

// fail records msg as the last error and returns status
func (h *handle) fail(status db.Status, format string, args ...any) db.Status {
	h.lastErr = fmt.Sprintf(format, args...)
	return status
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Close persists implicit writes (unless auto commit is disabled) and releases the handle.
// An open transaction is discarded.
func (h *handle) Close() db.Status {
	h.lock()
	defer h.unlock()

	if h.closed {
		return h.fail(db.StatusAbort, "handle already closed")
	}
	h.closed = true

	status := db.StatusOK
	if h.tx != nil {
		log.Debugf("discarding open transaction with %d writes on %s", h.tx.Len(), h.name)
		h.tx, h.txSize = nil, 0
	}

	if h.path != "" && !h.temp && h.dirty && !h.conf.disableAutoCommit {
		if err := h.persist(); err != nil {
			status = h.fail(db.StatusIOErr, "persisting %s: %v", h.name, err)
		}
	}

	if err := h.release(); err != nil && status == db.StatusOK {
		status = h.fail(db.StatusIOErr, "releasing %s: %v", h.name, err)
	}

	log.Debugf("closed %s (%s)", h.name, status)
	return status
}

// release frees all resources held by the handle. It is safe to call more than once.
func (h *handle) release() error {
	var err error
	if h.unmap != nil {
		err = h.unmap()
		h.unmap = nil
	}
	if h.lockKey != "" {
		releaseFileLock(h.lockKey, h.lockWrite)
		h.lockKey = ""
	}
	if h.temp && h.path != "" {
		if rmErr := os.Remove(h.path); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warningf("removing temporary database %s: %v", h.path, rmErr)
		}
		h.temp = false
	}
	h.shards = nil
	return err
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

func (h *handle) Begin() db.Status {
	h.lock()
	defer h.unlock()

	switch {
	case h.closed:
		return h.fail(db.StatusAbort, "handle closed")
	case h.readOnly():
		return h.fail(db.StatusReadOnly, "cannot begin a write transaction on a read-only database")
	case h.tx != nil:
		return h.fail(db.StatusLocked, "a transaction is already open")
	}

	h.tx = internal.NewJournal()
	h.txSize = 0
	return db.StatusOK
}

// Commit applies the open transaction. If the database is file backed, the
// result is persisted. If persisting fails the transaction is rolled back.
// Without an open transaction Commit persists pending implicit writes.
func (h *handle) Commit() db.Status {
	h.lock()
	defer h.unlock()

	if h.closed {
		return h.fail(db.StatusAbort, "handle closed")
	}

	if h.tx == nil {
		if h.path != "" && h.dirty {
			if err := h.persist(); err != nil {
				return h.fail(db.StatusIOErr, "persisting %s: %v", h.name, err)
			}
			h.dirty = false
		}
		return db.StatusOK
	}

	journal := h.tx
	h.tx = nil

	undo := make([]internal.Undo, 0, journal.Len())
	journal.Range(func(key string, p internal.Pending) {
		shard := h.shard(key)
		old, existed := shard.Data.Load(key)
		undo = append(undo, internal.Undo{Key: key, Value: old, Existed: existed})
		switch p.Type {
		case internal.OpTStore:
			shard.Data.Store(key, p.Value)
		case internal.OpTDelete:
			shard.Data.Delete(key)
		}
	})

	if h.path != "" {
		if err := h.persist(); err != nil {
			for _, u := range undo {
				shard := h.shard(u.Key)
				if u.Existed {
					shard.Data.Store(u.Key, u.Value)
				} else {
					shard.Data.Delete(u.Key)
				}
			}
			h.txSize = 0
			log.Warningf("commit on %s rolled back: %v", h.name, err)
			return h.fail(db.StatusIOErr, "persisting %s: %v", h.name, err)
		}
		h.dirty = false
	}

	h.size += h.txSize
	h.txSize = 0
	return db.StatusOK
}

func (h *handle) Rollback() db.Status {
	h.lock()
	defer h.unlock()

	switch {
	case h.closed:
		return h.fail(db.StatusAbort, "handle closed")
	case h.tx == nil:
		return h.fail(db.StatusNoop, "no transaction open")
	}

	h.tx, h.txSize = nil, 0
	return db.StatusOK
}

// InTransaction reports whether an explicit transaction is open
func (h *handle) InTransaction() bool {
	h.rlock()
	defer h.runlock()
	return h.tx != nil
}

// --------------------------------------------------------------------------
// Key-Value Operations
// --------------------------------------------------------------------------

func (h *handle) Store(key, value []byte) db.Status {
	h.lock()
	defer h.unlock()

	if status := h.checkWrite(key); status != db.StatusOK {
		return status
	}
	return h.put(string(key), append([]byte(nil), value...))
}

func (h *handle) Append(key, value []byte) db.Status {
	h.lock()
	defer h.unlock()

	if status := h.checkWrite(key); status != db.StatusOK {
		return status
	}
	k := string(key)
	old, _ := h.visible(k)
	merged := make([]byte, 0, len(old)+len(value))
	merged = append(merged, old...)
	merged = append(merged, value...)
	return h.put(k, merged)
}

func (h *handle) Fetch(key []byte) ([]byte, db.Status) {
	h.rlock()
	defer h.runlock()

	if h.closed {
		return nil, db.StatusAbort
	}
	value, ok := h.visible(string(key))
	if !ok {
		return nil, db.StatusNotFound
	}
	return append([]byte{}, value...), db.StatusOK
}

func (h *handle) Delete(key []byte) db.Status {
	h.lock()
	defer h.unlock()

	if status := h.checkWrite(key); status != db.StatusOK {
		return status
	}
	k := string(key)
	old, ok := h.visible(k)
	if !ok {
		return h.fail(db.StatusNotFound, "key %q not found", k)
	}

	delta := -int64(len(k) + len(old))
	if h.tx != nil {
		h.tx.Delete(k)
		h.txSize += delta
		return db.StatusOK
	}
	h.shard(k).Data.Delete(k)
	h.size += delta
	h.dirty = true
	return db.StatusOK
}

// checkWrite validates a write to key. The caller must hold the write lock.
func (h *handle) checkWrite(key []byte) db.Status {
	switch {
	case h.closed:
		return h.fail(db.StatusAbort, "handle closed")
	case h.readOnly():
		return h.fail(db.StatusReadOnly, "database %s is read-only", h.name)
	case len(key) == 0:
		return h.fail(db.StatusInvalid, "empty key")
	}
	return db.StatusOK
}

// put writes value for key into the open transaction or directly into the
// shards. The caller must hold the write lock and owns value.
func (h *handle) put(key string, value []byte) db.Status {
	delta := int64(len(key) + len(value))
	if old, ok := h.visible(key); ok {
		delta -= int64(len(key) + len(old))
	}

	if h.conf.maxPageCount > 0 {
		projected := h.size + h.txSize + delta
		if pages := (projected + h.conf.pageSize - 1) / h.conf.pageSize; pages > h.conf.maxPageCount {
			return h.fail(db.StatusFull, "database quota of %d pages exceeded", h.conf.maxPageCount)
		}
	}

	if h.tx != nil {
		h.tx.Store(key, value)
		h.txSize += delta
		return db.StatusOK
	}
	h.shard(key).Data.Store(key, value)
	h.size += delta
	h.dirty = true
	return db.StatusOK
}

// visible returns the value of key as seen by the handle, including the writes
// of an open transaction.
func (h *handle) visible(key string) ([]byte, bool) {
	if h.tx != nil {
		if p, ok := h.tx.Lookup(key); ok {
			return p.Value, p.Type == internal.OpTStore
		}
	}
	return h.shard(key).Data.Load(key)
}

func (h *handle) shard(key string) *internal.Shard {
	return internal.GetShard(util.HashString(key, h.seed), h.shards)
}

func (h *handle) readOnly() bool {
	return h.flags.Has(db.FlagReadOnly)
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

func (h *handle) ConfigGet(op db.ConfigOp) (any, db.Status) {
	h.rlock()
	defer h.runlock()

	if h.closed {
		return nil, db.StatusAbort
	}
	switch op {
	case db.ConfigMaxPageCache:
		return h.conf.maxPageCache, db.StatusOK
	case db.ConfigPageSize:
		return h.conf.pageSize, db.StatusOK
	case db.ConfigMaxPageCount:
		return h.conf.maxPageCount, db.StatusOK
	case db.ConfigDisableAutoCommit:
		return h.conf.disableAutoCommit, db.StatusOK
	case db.ConfigKVEngine:
		return h.conf.kvEngine, db.StatusOK
	default:
		return nil, db.StatusUnknown
	}
}

func (h *handle) ConfigSet(op db.ConfigOp, value any) db.Status {
	h.lock()
	defer h.unlock()

	if h.closed {
		return h.fail(db.StatusAbort, "handle closed")
	}

	switch op {
	case db.ConfigMaxPageCache, db.ConfigPageSize, db.ConfigMaxPageCount:
		n, ok := value.(int64)
		if !ok {
			return h.fail(db.StatusInvalid, "%s expects an integer, got %T", op, value)
		}
		switch op {
		case db.ConfigMaxPageCache:
			if n < 1 {
				return h.fail(db.StatusInvalid, "max page cache must be positive, got %d", n)
			}
			h.conf.maxPageCache = n
		case db.ConfigPageSize:
			if n < minPageSize || n > maxPageSize || bits.OnesCount64(uint64(n)) != 1 {
				return h.fail(db.StatusInvalid, "page size must be a power of two between %d and %d, got %d", minPageSize, maxPageSize, n)
			}
			h.conf.pageSize = n
		case db.ConfigMaxPageCount:
			if n < 0 {
				return h.fail(db.StatusInvalid, "max page count must not be negative, got %d", n)
			}
			h.conf.maxPageCount = n
		}
	case db.ConfigDisableAutoCommit:
		b, ok := value.(bool)
		if !ok {
			return h.fail(db.StatusInvalid, "%s expects a bool, got %T", op, value)
		}
		h.conf.disableAutoCommit = b
	case db.ConfigKVEngine:
		s, ok := value.(string)
		if !ok {
			return h.fail(db.StatusInvalid, "%s expects a string, got %T", op, value)
		}
		if s != engineName {
			return h.fail(db.StatusNotImplemented, "storage engine %q is not available", s)
		}
		h.conf.kvEngine = s
	default:
		return h.fail(db.StatusUnknown, "unknown configuration verb %d", int(op))
	}
	return db.StatusOK
}

// --------------------------------------------------------------------------
// Utilities
// --------------------------------------------------------------------------

func (h *handle) LastError() (string, bool) {
	h.rlock()
	defer h.runlock()
	return h.lastErr, h.lastErr != ""
}

// RandomBytes returns n bytes from the handle's ChaCha8 generator
func (h *handle) RandomBytes(n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	h.lock()
	defer h.unlock()

	buf := make([]byte, n)
	_, _ = h.rng.Read(buf)
	return buf
}
