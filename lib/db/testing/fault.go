package testing

import (
	"fmt"
	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/puzpuzpuz/xsync/v3"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

// Op identifies a driver or handle call that FaultDriver counts and can fail
type Op int

const (
	OpOpen Op = iota
	OpClose
	OpBegin
	OpCommit
	OpRollback
	OpConfigGet
	OpConfigSet
	OpStore
	OpAppend
	OpFetch
	OpDelete
	OpRandom
	opCount
)

func (o Op) String() string {
	switch o {
	case OpOpen:
		return "Open"
	case OpClose:
		return "Close"
	case OpBegin:
		return "Begin"
	case OpCommit:
		return "Commit"
	case OpRollback:
		return "Rollback"
	case OpConfigGet:
		return "ConfigGet"
	case OpConfigSet:
		return "ConfigSet"
	case OpStore:
		return "Store"
	case OpAppend:
		return "Append"
	case OpFetch:
		return "Fetch"
	case OpDelete:
		return "Delete"
	case OpRandom:
		return "Random"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// FaultDriver
// --------------------------------------------------------------------------

// FaultDriver wraps a driver, counts every call and returns injected statuses.
//
// An injected Close or Rollback still reaches the wrapped handle before the
// injected status is returned, so the handle is released or idle like after a
// real engine failure. All other injected calls never reach the wrapped handle.
//
// Thread-safety: All methods are thread-safe.
type FaultDriver struct {
	db.Driver

	calls         [opCount]atomic.Int64
	faults        *xsync.MapOf[Op, db.Status]
	threadsafe    atomic.Int32 // 0 = wrapped driver decides, 1 = true, 2 = false
	hideInspector atomic.Bool
}

// NewFaultDriver wraps driver
func NewFaultDriver(driver db.Driver) *FaultDriver {
	return &FaultDriver{
		Driver: driver,
		faults: xsync.NewMapOf[Op, db.Status](),
	}
}

// Inject makes every following call of op return status
func (d *FaultDriver) Inject(op Op, status db.Status) {
	d.faults.Store(op, status)
}

// Clear removes the injected status of op
func (d *FaultDriver) Clear(op Op) {
	d.faults.Delete(op)
}

// Calls returns how often op was called, including injected calls
func (d *FaultDriver) Calls(op Op) int64 {
	return d.calls[op].Load()
}

// Reset clears all counters and injected statuses
func (d *FaultDriver) Reset() {
	for i := range d.calls {
		d.calls[i].Store(0)
	}
	d.faults.Clear()
}

// SetThreadsafe overrides the capability the driver reports
func (d *FaultDriver) SetThreadsafe(v bool) {
	if v {
		d.threadsafe.Store(1)
	} else {
		d.threadsafe.Store(2)
	}
}

// HideInspector makes handles opened afterwards not implement db.TxInspector
func (d *FaultDriver) HideInspector(v bool) {
	d.hideInspector.Store(v)
}

func (d *FaultDriver) Threadsafe() bool {
	switch d.threadsafe.Load() {
	case 1:
		return true
	case 2:
		return false
	default:
		return d.Driver.Threadsafe()
	}
}

// fault counts a call of op and returns the injected status, if any
func (d *FaultDriver) fault(op Op) (db.Status, bool) {
	d.calls[op].Add(1)
	return d.faults.Load(op)
}

func (d *FaultDriver) Open(flags db.OpenFlag, path string) (db.Handle, db.Status, string) {
	if status, ok := d.fault(OpOpen); ok {
		return nil, status, fmt.Sprintf("injected %s on Open", status)
	}
	inner, status, msg := d.Driver.Open(flags, path)
	if status != db.StatusOK {
		return nil, status, msg
	}

	h := &faultHandle{driver: d, inner: inner}
	if inspector, ok := inner.(db.TxInspector); ok && !d.hideInspector.Load() {
		return &inspectingHandle{faultHandle: h, inspector: inspector}, db.StatusOK, ""
	}
	return h, db.StatusOK, ""
}

// --------------------------------------------------------------------------
// Handles
// --------------------------------------------------------------------------

type faultHandle struct {
	driver    *FaultDriver
	inner     db.Handle
	lastFault atomic.Pointer[string]
}

type inspectingHandle struct {
	*faultHandle
	inspector db.TxInspector
}

func (h *inspectingHandle) InTransaction() bool {
	return h.inspector.InTransaction()
}

// call runs fn unless a status was injected for op
func (h *faultHandle) call(op Op, fn func() db.Status) db.Status {
	if status, ok := h.driver.fault(op); ok {
		msg := fmt.Sprintf("injected %s on %s", status, op)
		h.lastFault.Store(&msg)
		return status
	}
	h.lastFault.Store(nil)
	return fn()
}

// callThrough always runs fn, but returns the injected status for op if there is one
func (h *faultHandle) callThrough(op Op, fn func() db.Status) db.Status {
	status := fn()
	if injected, ok := h.driver.fault(op); ok {
		msg := fmt.Sprintf("injected %s on %s", injected, op)
		h.lastFault.Store(&msg)
		return injected
	}
	h.lastFault.Store(nil)
	return status
}

func (h *faultHandle) Close() db.Status {
	return h.callThrough(OpClose, h.inner.Close)
}

func (h *faultHandle) Begin() db.Status {
	return h.call(OpBegin, h.inner.Begin)
}

func (h *faultHandle) Commit() db.Status {
	return h.call(OpCommit, h.inner.Commit)
}

func (h *faultHandle) Rollback() db.Status {
	return h.callThrough(OpRollback, h.inner.Rollback)
}

func (h *faultHandle) Store(key, value []byte) db.Status {
	return h.call(OpStore, func() db.Status { return h.inner.Store(key, value) })
}

func (h *faultHandle) Append(key, value []byte) db.Status {
	return h.call(OpAppend, func() db.Status { return h.inner.Append(key, value) })
}

func (h *faultHandle) Fetch(key []byte) ([]byte, db.Status) {
	var value []byte
	status := h.call(OpFetch, func() db.Status {
		var status db.Status
		value, status = h.inner.Fetch(key)
		return status
	})
	return value, status
}

func (h *faultHandle) Delete(key []byte) db.Status {
	return h.call(OpDelete, func() db.Status { return h.inner.Delete(key) })
}

func (h *faultHandle) ConfigGet(op db.ConfigOp) (any, db.Status) {
	var value any
	status := h.call(OpConfigGet, func() db.Status {
		var status db.Status
		value, status = h.inner.ConfigGet(op)
		return status
	})
	return value, status
}

func (h *faultHandle) ConfigSet(op db.ConfigOp, value any) db.Status {
	return h.call(OpConfigSet, func() db.Status { return h.inner.ConfigSet(op, value) })
}

func (h *faultHandle) LastError() (string, bool) {
	if msg := h.lastFault.Load(); msg != nil {
		return *msg, true
	}
	return h.inner.LastError()
}

func (h *faultHandle) RandomBytes(n int) []byte {
	h.driver.calls[OpRandom].Add(1)
	return h.inner.RandomBytes(n)
}
