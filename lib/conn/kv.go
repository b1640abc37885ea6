package conn

import (
	"github.com/ValentinKolb/eKV/lib/db"
)

// --------------------------------------------------------------------------
// Key-Value Operations
// --------------------------------------------------------------------------

// Store inserts or overwrites the value of key.
// Inside a transaction the write becomes durable on Commit.
func (c *Connection) Store(key, value []byte) error {
	return c.write("store", func() db.Status {
		return c.handle.Store(key, value)
	})
}

// Append appends value to the record of key and creates it if necessary
func (c *Connection) Append(key, value []byte) error {
	return c.write("append", func() db.Status {
		return c.handle.Append(key, value)
	})
}

// Delete removes key. A missing key fails with KindNotFound.
func (c *Connection) Delete(key []byte) error {
	return c.write("delete", func() db.Status {
		return c.handle.Delete(key)
	})
}

// Fetch returns a copy of the value of key. A missing key fails with KindNotFound.
func (c *Connection) Fetch(key []byte) ([]byte, error) {
	if err := c.live("fetch"); err != nil {
		return nil, err
	}
	value, status := c.handle.Fetch(key)
	if status != db.StatusOK {
		return nil, c.engineError("fetch", status)
	}
	return value, nil
}

// write runs a write-class call. Read-only modes fail without reaching the engine.
func (c *Connection) write(op string, call func() db.Status) error {
	if err := c.live(op); err != nil {
		return err
	}
	if !c.mode.Writable() {
		return newError(KindReadOnlyViolation, op, "mode %s does not permit writes", c.mode)
	}
	if status := call(); status != db.StatusOK {
		return c.engineError(op, status)
	}
	return nil
}
