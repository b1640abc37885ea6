// Package util provides small helpers shared by engine implementations
// that satisfy the db.Driver interface.
//
// The package contains:
//   - functions: Seed and key generation from the system source and the seeded
//     FNV-1a hash used to distribute keys over shards
//
// Each helper is independent of a concrete engine so that new drivers can
// reuse the same sharding and seeding strategy as the maple engine.
package util
