package conn

import (
	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/lib/db/engines/maple"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

// gcDriver hands out handles that run a garbage collection inside
// RandomBytes and record whether the handle was closed meanwhile
type gcDriver struct {
	db.Driver
	closedDuringCall atomic.Bool
}

func (d *gcDriver) Open(flags db.OpenFlag, path string) (db.Handle, db.Status, string) {
	h, status, msg := d.Driver.Open(flags, path)
	if status != db.StatusOK {
		return nil, status, msg
	}
	return &gcHandle{Handle: h, driver: d}, status, msg
}

type gcHandle struct {
	db.Handle
	driver *gcDriver
	closed atomic.Bool
}

func (h *gcHandle) Close() db.Status {
	h.closed.Store(true)
	return h.Handle.Close()
}

func (h *gcHandle) RandomBytes(n int) []byte {
	runtime.GC()
	deadline := time.Now().Add(50 * time.Millisecond)
	for time.Now().Before(deadline) && !h.closed.Load() {
		time.Sleep(time.Millisecond)
	}
	if h.closed.Load() {
		h.driver.closedDuringCall.Store(true)
		return make([]byte, n)
	}
	return h.Handle.RandomBytes(n)
}

func TestUnreferencedConnectionSurvivesEngineCall(t *testing.T) {
	d := &gcDriver{Driver: maple.NewDriver(nil)}

	// the connection is unreachable as soon as RandomBytes has loaded the handle
	b, err := Must(Open(db.MemPath, ModeCreate, WithDriver(d))).RandomBytes(16)
	if err != nil {
		t.Fatalf("RandomBytes failed: %v", err)
	}
	if len(b) != 16 {
		t.Errorf("Expected 16 bytes, got %d", len(b))
	}
	if d.closedDuringCall.Load() {
		t.Errorf("Expected the connection to stay open until the engine call returned")
	}
}
