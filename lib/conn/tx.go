package conn

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/eKV/lib/db"
)

// TxState is the transaction state of a connection
type TxState int32

const (
	TxIdle      TxState = iota // no transaction
	TxBeginning                // Begin is waiting for the engine
	TxActive                   // a transaction is open
	TxEnding                   // Commit or Rollback is waiting for the engine
)

func (s TxState) String() string {
	switch s {
	case TxIdle:
		return "Idle"
	case TxBeginning:
		return "Beginning"
	case TxActive:
		return "Active"
	case TxEnding:
		return "Ending"
	default:
		return fmt.Sprintf("TxState(%d)", int32(s))
	}
}

// TxState returns the current transaction state
func (c *Connection) TxState() TxState {
	return TxState(c.tx.Load())
}

// InTransaction reports whether a transaction is open
func (c *Connection) InTransaction() bool {
	s := c.TxState()
	return s == TxActive || s == TxEnding
}

// Begin starts a write transaction.
//
//   - read-only modes fail with KindReadOnlyViolation without reaching the engine
//   - a second Begin fails with KindTransactionAlreadyActive
//   - an engine failure is reported as KindEngineFailure, the connection stays idle
func (c *Connection) Begin() error {
	if err := c.live("begin"); err != nil {
		return err
	}
	if !c.mode.Writable() {
		return newError(KindReadOnlyViolation, "begin", "mode %s does not permit write transactions", c.mode)
	}
	if !c.tx.CompareAndSwap(int32(TxIdle), int32(TxBeginning)) {
		return newError(KindTransactionAlreadyActive, "begin", "connection is %s", c.TxState())
	}

	if status := c.handle.Begin(); status != db.StatusOK {
		c.tx.Store(int32(TxIdle))
		return c.engineErrorAs(KindEngineFailure, "begin", status)
	}

	c.tx.Store(int32(TxActive))
	beginsTotal.Inc()
	log.Debugf("[%s] transaction started", c.shortID())
	return nil
}

// Commit commits the open transaction. If the engine reports a failure, the
// state is taken from the engine when the handle implements db.TxInspector.
// Otherwise the engine has rolled the transaction back and the connection is idle.
func (c *Connection) Commit() error {
	if err := c.live("commit"); err != nil {
		return err
	}
	if !c.tx.CompareAndSwap(int32(TxActive), int32(TxEnding)) {
		return newError(KindNoActiveTransaction, "commit", "connection is %s", c.TxState())
	}

	status := c.handle.Commit()
	if status == db.StatusOK {
		c.tx.Store(int32(TxIdle))
		commitsTotal.Inc()
		log.Debugf("[%s] transaction committed", c.shortID())
		return nil
	}

	err := c.engineError("commit", status)
	next := TxIdle
	if inspector, ok := c.handle.(db.TxInspector); ok && inspector.InTransaction() {
		next = TxActive
	}
	c.tx.Store(int32(next))
	log.Warningf("[%s] commit failed, transaction is %s: %v", c.shortID(), next, err)
	return err
}

// Rollback discards the open transaction. The connection is idle afterwards,
// even if the engine reports a failure.
func (c *Connection) Rollback() error {
	if err := c.live("rollback"); err != nil {
		return err
	}
	if !c.tx.CompareAndSwap(int32(TxActive), int32(TxEnding)) {
		return newError(KindNoActiveTransaction, "rollback", "connection is %s", c.TxState())
	}

	status := c.handle.Rollback()
	c.tx.Store(int32(TxIdle))
	rollbacksTotal.Inc()
	if status != db.StatusOK {
		err := c.engineError("rollback", status)
		log.Warningf("[%s] rollback failed: %v", c.shortID(), err)
		return err
	}
	log.Debugf("[%s] transaction rolled back", c.shortID())
	return nil
}

// Update runs fn inside a transaction. The transaction is committed if fn
// returns nil and rolled back if fn returns an error or panics. fn must not
// end the transaction itself.
func (c *Connection) Update(fn func(c *Connection) error) (err error) {
	if err := c.Begin(); err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			if c.InTransaction() {
				_ = c.Rollback()
			}
			panic(p)
		}
	}()

	if err := fn(c); err != nil {
		if c.InTransaction() {
			if rbErr := c.Rollback(); rbErr != nil {
				return errors.Join(err, rbErr)
			}
		}
		return err
	}
	return c.Commit()
}
