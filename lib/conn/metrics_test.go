package conn

import (
	"bytes"
	"github.com/ValentinKolb/eKV/lib/db"
	"strings"
	"testing"
)

func TestWriteMetrics(t *testing.T) {
	c := openConn(t, db.MemPath, ModeCreate)
	if err := c.Update(func(c *Connection) error {
		return c.Store([]byte("key"), []byte("value"))
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	_ = c.Begin()
	_ = c.Begin()

	var buf bytes.Buffer
	WriteMetrics(&buf)
	out := buf.String()

	for _, name := range []string{
		`ekv_conn_opens_total{mode="create"}`,
		`ekv_conn_tx_commits_total`,
		`ekv_conn_errors_total{kind="transaction_already_active"}`,
		`ekv_conn_open `,
	} {
		if !strings.Contains(out, name) {
			t.Errorf("Expected metric %s in output:\n%s", name, out)
		}
	}
}
