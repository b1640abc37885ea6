// Package db defines the boundary between eKV and an embedded storage engine.
// The engine is treated as an opaque collaborator: everything eKV knows about it
// is expressed through the Driver and Handle interfaces and the native types of
// this package.
//
// The package focuses on:
//   - A minimal, synchronous engine contract (open, close, transactions, config)
//   - Native result codes that are translated into typed errors one layer up
//   - Open flags describing how a database file is accessed
//   - Capability discovery (mutex support, transaction introspection)
//
// Key Components:
//
//   - Driver: Opens handles and reports engine name, version and signature.
//     A driver also advertises whether its handles carry their own mutex
//     (Threadsafe). Connections that want to be shared between goroutines
//     require this capability; all others open with FlagNoMutex.
//
//   - Handle: One exclusively owned engine instance. All calls return a Status.
//     The detailed message of a failed call is available through LastError and
//     is only requested when an error is actually propagated.
//
//   - OpenFlag: Bit flags mirroring the native open flags (ReadOnly, ReadWrite,
//     Create, TempDB, MMap, ...). The reserved path MemPath selects a database
//     that never touches persistent storage.
//
//   - Status: Native result codes. StatusOK is the only success value.
//
//   - ConfigOp: The closed set of engine tunables (page cache, page size,
//     page quota, auto-commit switch, engine name).
//
//   - TxInspector: Optional interface for handles that can report whether a
//     transaction is still open, e.g. after a failed commit.
//
// Implementations live in the engines subpackages (currently "maple").
// A conformance suite for new drivers is provided by the testing subpackage.
package db
