package conn

import (
	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/lib/db/engines/maple"
	"sync"
)

// DefaultDriver returns the process-wide maple driver used when no driver is given
var DefaultDriver = sync.OnceValue(func() db.Driver {
	return maple.NewDriver(nil)
})

// Option configures a connection when it is opened
type Option func(*options)

type options struct {
	driver     db.Driver
	threadsafe bool
}

func buildOptions(opts []Option) options {
	o := options{threadsafe: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.driver == nil {
		o.driver = DefaultDriver()
	}
	return o
}

// WithDriver opens the connection with driver instead of DefaultDriver
func WithDriver(driver db.Driver) Option {
	return func(o *options) {
		o.driver = driver
	}
}

// WithThreadsafe sets whether the connection may be shared between goroutines (default true).
//
// If true, the driver must report Threadsafe and the engine handle serializes
// all calls. If false, the handle is opened with db.FlagNoMutex and the caller
// must not use the connection from more than one goroutine at a time.
func WithThreadsafe(threadsafe bool) Option {
	return func(o *options) {
		o.threadsafe = threadsafe
	}
}
