package common

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Connection configuration struct
// --------------------------------------------------------------------------

// ConnConfig holds the settings the CLI uses to open a connection
type ConnConfig struct {
	// database path, ":mem:" for an in-memory database, "" for a temporary one
	Path string
	// access mode (readonly, create, temp, mmap)
	Mode string
	// share the connection between goroutines
	Threadsafe bool

	// Logging configuration
	LogLevel string

	// codec used for documents (json, gob)
	Codec string

	// print metrics to stderr after the command
	Metrics bool
}

// String returns a formatted string representation of the configuration
func (c *ConnConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	path := c.Path
	if path == "" {
		path = "(temporary)"
	}

	addSection("Database")
	addField("Path", path)
	addField("Mode", c.Mode)
	addField("Threadsafe", fmt.Sprintf("%t", c.Threadsafe))

	addSection("Documents")
	addField("Codec", c.Codec)

	addSection("Logging")
	addField("Log Level", c.LogLevel)
	addField("Metrics", fmt.Sprintf("%t", c.Metrics))

	return sb.String()
}
