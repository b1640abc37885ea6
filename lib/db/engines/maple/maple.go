package maple

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/lib/db/engines/maple/internal"
	"github.com/ValentinKolb/eKV/lib/db/util"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
)

var log = logger.GetLogger("maple")

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Constants for engine behavior and identification
const (
	engineName    = "maple"
	engineVersion = "4.0.0"

	defaultPageSize     = 4096 // Default page size used for quota accounting
	defaultMaxPageCache = 256  // Default number of cached pages
	minPageSize         = 512
	maxPageSize         = 65536

	filePermissions = 0600 // Database files are only readable by the owner
)

// --------------------------------------------------------------------------
// Driver
// --------------------------------------------------------------------------

// DriverOptions configures the maple driver during initialization
type DriverOptions struct {
	NumShards  int    // Number of shards per handle
	Threadsafe bool   // Whether handles carry their own mutex
	TempDir    string // Directory for temporary databases ("" = os.TempDir())
}

// DefaultOptions returns the default driver options
func DefaultOptions() *DriverOptions {
	return &DriverOptions{
		NumShards:  runtime.NumCPU(), // Auto-determine based on CPU count
		Threadsafe: true,
	}
}

type driverImpl struct {
	opts DriverOptions
}

// NewDriver creates a new maple driver with the specified options (optional)
func NewDriver(opts *DriverOptions) db.Driver {
	if opts == nil {
		opts = DefaultOptions()
	}
	d := &driverImpl{opts: *opts}
	if d.opts.NumShards <= 0 {
		d.opts.NumShards = 1
	}
	return d
}

func (d *driverImpl) Name() string {
	return engineName
}

func (d *driverImpl) Version() string {
	return engineVersion
}

func (d *driverImpl) Signature() string {
	return fmt.Sprintf("%s/%s (sharded, blake3 checksummed snapshots)", engineName, engineVersion)
}

func (d *driverImpl) Threadsafe() bool {
	return d.opts.Threadsafe
}

// Open opens a database at path.
//
//   - path == db.MemPath or FlagInMemory: a database that never touches persistent storage
//   - FlagTempDB: a private database file that is removed on close ("" = engine chosen name)
//   - FlagReadOnly (optionally FlagMMap): an existing database file, writes are rejected
//   - otherwise: an existing database file opened read-write, created if FlagCreate is set
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (d *driverImpl) Open(flags db.OpenFlag, path string) (db.Handle, db.Status, string) {
	if !d.opts.Threadsafe && !flags.Has(db.FlagNoMutex) {
		return nil, db.StatusNotImplemented, "engine built without mutex support, open with NoMutex"
	}

	readOnly := flags.Has(db.FlagReadOnly)
	if readOnly && (flags.Has(db.FlagReadWrite) || flags.Has(db.FlagCreate) || flags.Has(db.FlagTempDB)) {
		return nil, db.StatusInvalid, fmt.Sprintf("conflicting open flags %s", flags)
	}
	if flags.Has(db.FlagMMap) && !readOnly {
		return nil, db.StatusInvalid, "memory mapped databases must be opened read-only"
	}

	h := d.newHandle(flags)

	var (
		status = db.StatusOK
		msg    string
	)
	switch {
	case path == db.MemPath || flags.Has(db.FlagInMemory):
		h.name = db.MemPath
	case flags.Has(db.FlagTempDB):
		status, msg = h.openTemp(path)
	case readOnly:
		status, msg = h.openReadOnly(path)
	default:
		status, msg = h.openReadWrite(path)
	}

	if status != db.StatusOK {
		h.release()
		return nil, status, msg
	}

	log.Debugf("opened %s (%s)", h.name, flags)
	return h, db.StatusOK, ""
}

func (d *driverImpl) newHandle(flags db.OpenFlag) *handle {
	shards := make([]*internal.Shard, d.opts.NumShards)
	for i := range shards {
		shards[i] = internal.NewShard()
	}
	key := util.GenerateKey()
	return &handle{
		driver:     d,
		flags:      flags,
		threadsafe: !flags.Has(db.FlagNoMutex),
		seed:       util.GenerateSeed(),
		shards:     shards,
		rng:        rand.NewChaCha8(key),
		conf: settings{
			maxPageCache: defaultMaxPageCache,
			pageSize:     defaultPageSize,
			kvEngine:     engineName,
		},
	}
}

// --------------------------------------------------------------------------
// Open helpers (called before the handle is published, no locking needed)
// --------------------------------------------------------------------------

func (h *handle) openTemp(path string) (db.Status, string) {
	var (
		f   *os.File
		err error
	)
	if path == "" {
		f, err = os.CreateTemp(h.driver.opts.TempDir, "maple-*.db")
	} else {
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, filePermissions)
	}
	if err != nil {
		return statusFromError(err), fmt.Sprintf("creating temporary database: %v", err)
	}
	name := f.Name()
	_ = f.Close()

	abs, err := filepath.Abs(name)
	if err != nil {
		_ = os.Remove(name)
		return db.StatusCantOpen, fmt.Sprintf("resolving %s: %v", name, err)
	}
	h.temp = true
	h.path = abs
	h.name = abs

	if !acquireFileLock(abs, true) {
		return db.StatusBusy, fmt.Sprintf("database %s is locked by another handle", abs)
	}
	h.lockKey, h.lockWrite = abs, true
	return db.StatusOK, ""
}

func (h *handle) openReadWrite(path string) (db.Status, string) {
	abs, err := filepath.Abs(path)
	if err != nil || path == "" {
		return db.StatusCantOpen, fmt.Sprintf("invalid database path %q", path)
	}
	h.name = abs

	if !acquireFileLock(abs, true) {
		log.Infof("database %s is locked by another handle", abs)
		return db.StatusBusy, fmt.Sprintf("database %s is locked by another handle", abs)
	}
	h.lockKey, h.lockWrite = abs, true

	data, err := os.ReadFile(abs)
	switch {
	case err == nil:
		if h.flags.Has(db.FlagExclusive) {
			return db.StatusExists, fmt.Sprintf("database %s already exists", abs)
		}
		if err := h.load(data); err != nil {
			return db.StatusCorrupt, fmt.Sprintf("loading %s: %v", abs, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if !h.flags.Has(db.FlagCreate) {
			return db.StatusCantOpen, fmt.Sprintf("database %s does not exist", abs)
		}
		f, err := os.OpenFile(abs, os.O_RDWR|os.O_CREATE|os.O_EXCL, filePermissions)
		if err != nil {
			return statusFromError(err), fmt.Sprintf("creating %s: %v", abs, err)
		}
		_ = f.Close()
	default:
		return statusFromError(err), fmt.Sprintf("reading %s: %v", abs, err)
	}

	h.path = abs
	return db.StatusOK, ""
}

func (h *handle) openReadOnly(path string) (db.Status, string) {
	abs, err := filepath.Abs(path)
	if err != nil || path == "" {
		return db.StatusCantOpen, fmt.Sprintf("invalid database path %q", path)
	}
	h.name = abs

	if !acquireFileLock(abs, false) {
		log.Infof("database %s is locked by a writer", abs)
		return db.StatusBusy, fmt.Sprintf("database %s is locked by a writer", abs)
	}
	h.lockKey, h.lockWrite = abs, false

	f, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return db.StatusCantOpen, fmt.Sprintf("database %s does not exist", abs)
		}
		return statusFromError(err), fmt.Sprintf("opening %s: %v", abs, err)
	}
	defer f.Close()

	var data []byte
	if h.flags.Has(db.FlagMMap) {
		info, err := f.Stat()
		if err != nil {
			return statusFromError(err), fmt.Sprintf("stat %s: %v", abs, err)
		}
		data, h.unmap, err = mapFile(f, int(info.Size()))
		if err != nil {
			return db.StatusIOErr, fmt.Sprintf("mapping %s: %v", abs, err)
		}
	} else {
		data, err = io.ReadAll(f)
		if err != nil {
			return statusFromError(err), fmt.Sprintf("reading %s: %v", abs, err)
		}
	}

	if err := h.load(data); err != nil {
		return db.StatusCorrupt, fmt.Sprintf("loading %s: %v", abs, err)
	}
	return db.StatusOK, ""
}

// statusFromError maps a file system error to a native status
func statusFromError(err error) db.Status {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return db.StatusCantOpen
	case errors.Is(err, fs.ErrPermission):
		return db.StatusPerm
	case errors.Is(err, fs.ErrExist):
		return db.StatusExists
	default:
		return db.StatusIOErr
	}
}

// --------------------------------------------------------------------------
// Process-wide file locks
// --------------------------------------------------------------------------

// fileLock tracks the handles of this process that use a database file.
// A file is either used by a single writer or by any number of readers.
type fileLock struct {
	readers int
	writer  bool
}

var fileLocks = xsync.NewMapOf[string, fileLock]()

// acquireFileLock registers a reader or writer for path.
// It returns false if the lock is held in a conflicting way.
//
// Thread-safety: This function is thread-safe and can be called concurrently.
func acquireFileLock(path string, write bool) bool {
	acquired := false
	fileLocks.Compute(path, func(old fileLock, loaded bool) (fileLock, bool) {
		if old.writer || (write && old.readers > 0) {
			return old, !loaded
		}
		acquired = true
		if write {
			old.writer = true
		} else {
			old.readers++
		}
		return old, false
	})
	return acquired
}

// releaseFileLock releases a lock acquired with acquireFileLock
//
// Thread-safety: This function is thread-safe and can be called concurrently.
func releaseFileLock(path string, write bool) {
	fileLocks.Compute(path, func(old fileLock, loaded bool) (fileLock, bool) {
		if !loaded {
			return old, true
		}
		if write {
			old.writer = false
		} else if old.readers > 0 {
			old.readers--
		}
		return old, !old.writer && old.readers == 0
	})
}
