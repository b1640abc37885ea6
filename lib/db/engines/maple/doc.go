// Package maple implements the reference storage engine behind the db.Driver
// interface. It is a transactional, schema-less key-value engine that keeps
// its data in memory and persists it to a single file.
//
// Key Components:
//
//   - driverImpl: Opens handles. It validates the open flags, resolves the
//     database path and registers the handle in the process-wide file lock
//     registry. A file is used either by one writer or by any number of
//     readers; a conflicting open fails with db.StatusBusy.
//
//   - handle: The db.Handle implementation. Data is partitioned over shards
//     (xsync.MapOf per shard). Keys are mapped to shards with the seeded
//     FNV-1a hash from the util package, right-shifted by 7 bits.
//
//   - Journal: Writes inside an explicit transaction are collected in a
//     journal and become visible to other readers of the handle only on
//     commit. Reads on the handle itself see the journal first.
//
// Transactions and Persistence:
//
//   - Writes outside an explicit transaction are applied directly and marked
//     dirty. They are persisted on Commit or Close, unless
//     db.ConfigDisableAutoCommit is set, in which case Close discards them.
//
//   - Commit applies the journal to the shards and persists a snapshot. If
//     persisting fails, the journal is undone and db.StatusIOErr is returned:
//     the transaction is rolled back automatically and the handle is idle.
//
//   - Snapshots are written to a temporary file next to the database and
//     renamed into place. Each snapshot ends with a blake3 checksum of its
//     contents. A mismatch when loading yields db.StatusCorrupt.
//
// Open Modes:
//
//   - db.MemPath (":mem:") or db.FlagInMemory: never touches the file system.
//     Combined with db.FlagReadOnly the result is an empty read-only database.
//   - db.FlagTempDB: a private file that is removed on close.
//   - db.FlagReadOnly: an existing file; missing files fail with db.StatusCantOpen.
//   - db.FlagMMap: like read-only, but the file is memory mapped (unix only,
//     other platforms read the file into memory).
//   - db.FlagExclusive: fails with db.StatusExists if the file exists.
//
// Tunables (db.ConfigOp):
//
//   - MaxPageCache: positive number of cached pages
//   - PageSize: power of two between 512 and 65536 bytes
//   - MaxPageCount: quota in pages, writes beyond it fail with db.StatusFull (0 = unlimited)
//   - DisableAutoCommit: see above
//   - KVEngine: only "maple" is available
//
// Each handle owns a ChaCha8 generator seeded from crypto/rand that backs
// RandomBytes.
package maple
