// Package common contains the logging setup and the connection configuration
// shared by the command line tool and the library packages.
//
// Logging uses the dragonboat logger facade. InitLoggers installs a factory
// that writes lines of the form
//
//	2025/01/01 12:00:00 INFO  | conn            | opened test.db (create)
//
// and sets the level of every logger listed in Loggers.
package common
