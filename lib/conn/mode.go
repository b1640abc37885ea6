package conn

import (
	"fmt"
	"github.com/ValentinKolb/eKV/lib/db"
	"strings"
)

// OpenMode selects how a connection accesses its database. The modes are
// mutually exclusive.
type OpenMode int

const (
	// ModeReadOnly opens an existing database, writes are rejected
	ModeReadOnly OpenMode = iota
	// ModeCreate opens a database read-write and creates it if it does not exist
	ModeCreate
	// ModeTempDB opens a private on-disk database that is deleted on close
	ModeTempDB
	// ModeMMap opens an existing database memory mapped, writes are rejected
	ModeMMap
)

// Modes returns all open modes
func Modes() []OpenMode {
	return []OpenMode{ModeReadOnly, ModeCreate, ModeTempDB, ModeMMap}
}

// Flags returns the native open flags of the mode
func (m OpenMode) Flags() db.OpenFlag {
	switch m {
	case ModeCreate:
		return db.FlagCreate | db.FlagReadWrite
	case ModeTempDB:
		return db.FlagTempDB | db.FlagReadWrite
	case ModeMMap:
		return db.FlagMMap | db.FlagReadOnly
	default:
		return db.FlagReadOnly
	}
}

// Writable reports whether the mode permits writes and write transactions
func (m OpenMode) Writable() bool {
	return m == ModeCreate || m == ModeTempDB
}

func (m OpenMode) String() string {
	switch m {
	case ModeReadOnly:
		return "readonly"
	case ModeCreate:
		return "create"
	case ModeTempDB:
		return "temp"
	case ModeMMap:
		return "mmap"
	default:
		return fmt.Sprintf("OpenMode(%d)", int(m))
	}
}

// ParseOpenMode parses the name of a mode as returned by String
func ParseOpenMode(s string) (OpenMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "readonly", "read-only", "ro":
		return ModeReadOnly, nil
	case "create", "rw":
		return ModeCreate, nil
	case "temp", "tempdb":
		return ModeTempDB, nil
	case "mmap":
		return ModeMMap, nil
	default:
		return ModeReadOnly, fmt.Errorf("invalid open mode: %s. must be one of readonly, create, temp, mmap", s)
	}
}
