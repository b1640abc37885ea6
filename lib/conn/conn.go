package conn

import (
	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"runtime"
	"sync/atomic"
)

var log = logger.GetLogger("conn")

// Connection owns exactly one engine handle. The handle is released exactly
// once, by Close or, for leaked connections, by a finalizer.
//
// Thread-safety: A connection opened with WithThreadsafe(true) may be used from
// several goroutines. Calling Close concurrently with other operations is a
// precondition violation.
type Connection struct {
	id         uuid.UUID
	driver     db.Driver
	handle     db.Handle
	mode       OpenMode
	path       string
	threadsafe bool

	closed atomic.Bool
	tx     atomic.Int32 // TxState
}

// --------------------------------------------------------------------------
// Constructors
// --------------------------------------------------------------------------

// Open opens the database at path with mode.
// Every failure is reported as KindOpenFailed with the native status retained.
func Open(path string, mode OpenMode, opts ...Option) (*Connection, error) {
	o := buildOptions(opts)

	flags := mode.Flags()
	if o.threadsafe {
		if !o.driver.Threadsafe() {
			openFailuresTotal.Inc()
			return nil, newError(KindOpenFailed, "open", "driver %s was built without thread support", o.driver.Name())
		}
	} else {
		flags |= db.FlagNoMutex
	}

	h, status, msg := o.driver.Open(flags, path)
	if status != db.StatusOK || h == nil {
		openFailuresTotal.Inc()
		log.Warningf("opening %s (%s) failed: %s %s", displayPath(path), mode, status, msg)
		errorsTotal(KindOpenFailed).Inc()
		return nil, &Error{Kind: KindOpenFailed, Op: "open", Code: status, Msg: msg}
	}

	c := &Connection{
		id:         uuid.New(),
		driver:     o.driver,
		handle:     h,
		mode:       mode,
		path:       path,
		threadsafe: o.threadsafe,
	}
	runtime.SetFinalizer(c, finalize)

	opensTotal(mode).Inc()
	openConnections.Add(1)
	log.Infof("[%s] opened %s (%s)", c.shortID(), displayPath(path), mode)
	return c, nil
}

// Create opens the database at path read-write and creates it if it does not exist
func Create(path string, opts ...Option) (*Connection, error) {
	return Open(path, ModeCreate, opts...)
}

// CreateInMemory opens a new database that never touches persistent storage
func CreateInMemory(opts ...Option) (*Connection, error) {
	return Open(db.MemPath, ModeCreate, opts...)
}

// CreateTemp opens a new private on-disk database that is deleted on close
func CreateTemp(opts ...Option) (*Connection, error) {
	return Open("", ModeTempDB, opts...)
}

// OpenMMap opens the existing database at path memory mapped and read-only
func OpenMMap(path string, opts ...Option) (*Connection, error) {
	return Open(path, ModeMMap, opts...)
}

// OpenReadOnly opens the existing database at path read-only.
// Opening db.MemPath yields an empty read-only database.
func OpenReadOnly(path string, opts ...Option) (*Connection, error) {
	return Open(path, ModeReadOnly, opts...)
}

// Must returns c or panics if err is not nil.
//
//	c := conn.Must(conn.Create("data.db"))
func Must(c *Connection, err error) *Connection {
	if err != nil {
		panic(err)
	}
	return c
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Close releases the engine handle. Only the first call reaches the engine;
// later calls return nil. The handle counts as released once the engine has
// responded, even if it reported a failure, which is then returned.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	runtime.SetFinalizer(c, nil)
	if err := c.release(); err != nil {
		log.Errorf("[%s] closing %s failed: %v", c.shortID(), displayPath(c.path), err)
		return err
	}
	return nil
}

// release closes the handle. Must only be called once.
func (c *Connection) release() error {
	status := c.handle.Close()
	c.tx.Store(int32(TxIdle))
	closesTotal.Inc()
	openConnections.Add(-1)
	if status != db.StatusOK {
		return c.engineError("close", status)
	}
	log.Debugf("[%s] closed %s", c.shortID(), displayPath(c.path))
	return nil
}

// finalize closes a connection that was never closed
func finalize(c *Connection) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	log.Warningf("[%s] connection to %s was not closed, closing it now", c.shortID(), displayPath(c.path))
	if err := c.release(); err != nil {
		log.Errorf("[%s] closing leaked connection failed: %v", c.shortID(), err)
	}
}

// live returns an error if the connection is closed
func (c *Connection) live(op string) error {
	if c.closed.Load() {
		return closedError(op)
	}
	return nil
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// ID returns the id used to correlate the log lines of the connection
func (c *Connection) ID() string {
	return c.id.String()
}

func (c *Connection) Mode() OpenMode {
	return c.mode
}

// Path returns the path the connection was opened with
func (c *Connection) Path() string {
	return c.path
}

func (c *Connection) Threadsafe() bool {
	return c.threadsafe
}

func (c *Connection) Closed() bool {
	return c.closed.Load()
}

func (c *Connection) shortID() string {
	return c.id.String()[:8]
}

func displayPath(path string) string {
	if path == "" {
		return "(temporary)"
	}
	return path
}
