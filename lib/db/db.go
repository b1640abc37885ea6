package db

import (
	"strconv"
	"strings"
)

// MemPath is the reserved path that selects an in-memory database.
const MemPath = ":mem:"

// --------------------------------------------------------------------------
// Open Flags
// --------------------------------------------------------------------------

// OpenFlag represents the native open flags as bit flags
type OpenFlag uint32

const (
	FlagReadOnly       OpenFlag = 0x00000001 // Open an existing database read-only
	FlagReadWrite      OpenFlag = 0x00000002 // Open an existing database read-write
	FlagCreate         OpenFlag = 0x00000004 // Create the database if it does not exist
	FlagExclusive      OpenFlag = 0x00000008 // Fail if the database already exists
	FlagTempDB         OpenFlag = 0x00000010 // Private on-disk database, deleted on close
	FlagNoMutex        OpenFlag = 0x00000020 // Do not serialize calls on the handle
	FlagOmitJournaling OpenFlag = 0x00000040 // Do not keep a rollback journal
	FlagInMemory       OpenFlag = 0x00000080 // Never touch persistent storage
	FlagMMap           OpenFlag = 0x00000100 // Memory-map the database file (read-only)
)

var flagNames = []struct {
	flag OpenFlag
	name string
}{
	{FlagReadOnly, "ReadOnly"},
	{FlagReadWrite, "ReadWrite"},
	{FlagCreate, "Create"},
	{FlagExclusive, "Exclusive"},
	{FlagTempDB, "TempDB"},
	{FlagNoMutex, "NoMutex"},
	{FlagOmitJournaling, "OmitJournaling"},
	{FlagInMemory, "InMemory"},
	{FlagMMap, "MMap"},
}

// Has reports whether all bits of o are set in f.
func (f OpenFlag) Has(o OpenFlag) bool {
	return f&o == o
}

func (f OpenFlag) String() string {
	if f == 0 {
		return "None"
	}
	var parts []string
	for _, n := range flagNames {
		if f.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, "|")
}

// --------------------------------------------------------------------------
// Native Status Codes
// --------------------------------------------------------------------------

// Status is the native result code returned by every engine call.
type Status int

const (
	StatusOK             Status = 0   // Successful result
	StatusNoMem          Status = -1  // Out of memory
	StatusIOErr          Status = -2  // IO error
	StatusEmpty          Status = -3  // Empty record
	StatusLocked         Status = -4  // Locked operation
	StatusNotFound       Status = -6  // Record not found
	StatusLimit          Status = -7  // Database limit reached
	StatusInvalid        Status = -9  // Invalid parameter
	StatusAbort          Status = -10 // Operation aborted
	StatusExists         Status = -11 // Record or database exists
	StatusUnknown        Status = -13 // Unknown configuration option
	StatusBusy           Status = -14 // The database is locked by another handle
	StatusNotImplemented Status = -17 // Method not implemented by the engine
	StatusEOF            Status = -18 // End of input
	StatusPerm           Status = -19 // Permission error
	StatusNoop           Status = -20 // No-op
	StatusCorrupt        Status = -24 // Corrupt database
	StatusDone           Status = -28 // Operation done
	StatusFull           Status = -73 // Full database
	StatusCantOpen       Status = -74 // Unable to open the database file
	StatusReadOnly       Status = -75 // Read-only database
	StatusLockErr        Status = -76 // Locking protocol error
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNoMem:
		return "NoMem"
	case StatusIOErr:
		return "IOErr"
	case StatusEmpty:
		return "Empty"
	case StatusLocked:
		return "Locked"
	case StatusNotFound:
		return "NotFound"
	case StatusLimit:
		return "Limit"
	case StatusInvalid:
		return "Invalid"
	case StatusAbort:
		return "Abort"
	case StatusExists:
		return "Exists"
	case StatusUnknown:
		return "Unknown"
	case StatusBusy:
		return "Busy"
	case StatusNotImplemented:
		return "NotImplemented"
	case StatusEOF:
		return "EOF"
	case StatusPerm:
		return "Perm"
	case StatusNoop:
		return "Noop"
	case StatusCorrupt:
		return "Corrupt"
	case StatusDone:
		return "Done"
	case StatusFull:
		return "Full"
	case StatusCantOpen:
		return "CantOpen"
	case StatusReadOnly:
		return "ReadOnly"
	case StatusLockErr:
		return "LockErr"
	default:
		return "Status(" + strconv.Itoa(int(s)) + ")"
	}
}

// --------------------------------------------------------------------------
// Configuration Verbs
// --------------------------------------------------------------------------

// ConfigOp identifies an engine tunable.
// Integer tunables use int64 values, switches use bool and names use string.
type ConfigOp int

const (
	ConfigMaxPageCache      ConfigOp = iota + 1 // int64: maximum number of cached pages
	ConfigPageSize                              // int64: page size in bytes
	ConfigMaxPageCount                          // int64: quota in pages (0 = unlimited)
	ConfigDisableAutoCommit                     // bool: do not commit implicit writes on close
	ConfigKVEngine                              // string: name of the storage engine
)

func (c ConfigOp) String() string {
	switch c {
	case ConfigMaxPageCache:
		return "MaxPageCache"
	case ConfigPageSize:
		return "PageSize"
	case ConfigMaxPageCount:
		return "MaxPageCount"
	case ConfigDisableAutoCommit:
		return "DisableAutoCommit"
	case ConfigKVEngine:
		return "KVEngine"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Engine Interfaces
// --------------------------------------------------------------------------

// Driver opens engine handles. A driver is shared by all connections of a process.
type Driver interface {
	// Name returns the name of the storage engine (e.g. "maple").
	Name() string

	// Version returns the engine version.
	Version() string

	// Signature returns a human-readable engine signature including the version.
	Signature() string

	// Threadsafe reports whether handles serialize concurrent calls with their own mutex.
	// Drivers built without mutex support must reject opens without FlagNoMutex.
	Threadsafe() bool

	// Open opens a database at path with the given flags.
	// On failure the handle is nil and msg describes the failure.
	Open(flags OpenFlag, path string) (h Handle, status Status, msg string)
}

// Handle is an opaque, exclusively owned engine instance.
// Every method except LastError returns a native status. After Close returned,
// only LastError may be called.
type Handle interface {

	// --------------------------------------------------------------------------
	// Lifecycle
	// --------------------------------------------------------------------------

	// Close releases the handle. The handle is released even if a failure status is returned.
	Close() Status

	// --------------------------------------------------------------------------
	// Transactions
	// --------------------------------------------------------------------------

	Begin() Status
	Commit() Status
	Rollback() Status

	// --------------------------------------------------------------------------
	// Key-Value Operations
	// --------------------------------------------------------------------------

	// Store inserts or overwrites the value for key.
	Store(key, value []byte) Status
	// Append appends value to the record of key, creating it if necessary.
	Append(key, value []byte) Status
	// Fetch returns a copy of the value of key or StatusNotFound.
	Fetch(key []byte) ([]byte, Status)
	// Delete removes key or returns StatusNotFound.
	Delete(key []byte) Status

	// --------------------------------------------------------------------------
	// Configuration and Utilities
	// --------------------------------------------------------------------------

	ConfigGet(op ConfigOp) (value any, status Status)
	ConfigSet(op ConfigOp, value any) Status

	// LastError returns the detailed message of the last failed call, if any.
	LastError() (msg string, ok bool)

	// RandomBytes returns n bytes from the handle's generator.
	RandomBytes(n int) []byte
}

// TxInspector is implemented by handles that can report whether a transaction is open.
type TxInspector interface {
	InTransaction() bool
}
