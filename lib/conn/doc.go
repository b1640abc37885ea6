// Package conn manages connections to an embedded, transactional key-value
// engine reached through the db.Driver interface.
//
// A Connection is opened in one of four mutually exclusive modes:
//
//   - ModeCreate: read-write, the database is created if it does not exist
//   - ModeTempDB: a private on-disk database that is removed on close
//   - ModeReadOnly: an existing database, writes are rejected
//   - ModeMMap: an existing database mapped into memory, writes are rejected
//
// The engine handle behind a connection is released exactly once. Close is
// idempotent, Scope closes on every exit path and a finalizer releases
// connections that were leaked.
//
// Transactions follow the state machine Idle -> Beginning -> Active ->
// Ending -> Idle. Begin is rejected locally for read-only modes. After a
// failed Commit the state is re-read from the engine when the handle
// implements db.TxInspector; after Rollback the connection is always idle.
//
// Every failure is an *Error. Its Kind is matched by errors.Is against the
// sentinels ErrOpenFailed, ErrReadOnly, ErrTxActive, ErrNoTx, ErrNotFound,
// ErrBusy, ErrCorrupt and ErrEngineFailure. Only busy errors are retryable.
//
// Example:
//
//	c, err := conn.Create("data.db")
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	err = c.Update(func(c *conn.Connection) error {
//		return c.Store([]byte("key"), []byte("value"))
//	})
package conn
