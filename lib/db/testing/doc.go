// Package testing provides standardised tests, benchmarks and fault injection
// for storage engines that satisfy the db.Driver interface.
//
// The package contains:
//   - testing: A conformance suite for the Driver and Handle contracts
//     (key-value calls, transactions, persistence, open modes, tunables)
//   - benchmark: Performance tests for common handle operations
//   - fault: FaultDriver, a wrapping driver that counts calls and injects
//     native statuses, used to test layers built on top of a driver
//
// Example usage:
//
//	factory := func() db.Driver {
//		return NewMyDriver()
//	}
//
//	// Running the standard test suite
//	dbtesting.RunDriverTests(t, "MyDriver", factory)
//
//	// Running performance benchmarks
//	dbtesting.RunDriverBenchmarks(b, "MyDriver", factory)
//
//	// Failing every commit of a wrapped driver
//	fd := dbtesting.NewFaultDriver(factory())
//	fd.Inject(dbtesting.OpCommit, db.StatusIOErr)
package testing
