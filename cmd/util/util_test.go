package util

import (
	"errors"
	"github.com/ValentinKolb/eKV/lib/conn"
	"github.com/spf13/viper"
	"strings"
	"testing"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Expected lines of at most %d characters, got %d: %q", Wrap, len(line), line)
		}
	}
	if WrapString("") != "" {
		t.Errorf("Expected empty output for empty input")
	}
}

func TestOpenConnection(t *testing.T) {
	t.Cleanup(viper.Reset)

	t.Run("InMemory", func(t *testing.T) {
		viper.Set("db", ":mem:")
		viper.Set("mode", "create")
		viper.Set("threadsafe", true)

		err := WithConnection(func(c *conn.Connection) error {
			if c.Mode() != conn.ModeCreate {
				t.Errorf("Expected mode create, got %s", c.Mode())
			}
			return c.Store([]byte("key"), []byte("value"))
		})
		if err != nil {
			t.Errorf("WithConnection failed: %v", err)
		}
	})

	t.Run("TempIgnoresPath", func(t *testing.T) {
		viper.Set("db", "does/not/exist.db")
		viper.Set("mode", "temp")

		err := WithConnection(func(c *conn.Connection) error {
			if c.Path() != "" {
				t.Errorf("Expected an empty path for a temp database, got %q", c.Path())
			}
			return nil
		})
		if err != nil {
			t.Errorf("WithConnection failed: %v", err)
		}
	})

	t.Run("InvalidMode", func(t *testing.T) {
		viper.Set("mode", "bogus")
		if _, err := OpenConnection(); err == nil {
			t.Errorf("Expected an error for an invalid mode")
		}
	})

	t.Run("MissingReadOnly", func(t *testing.T) {
		viper.Set("db", t.TempDir()+"/missing.db")
		viper.Set("mode", "readonly")
		_, err := OpenConnection()
		if !errors.Is(err, conn.ErrOpenFailed) {
			t.Errorf("Expected ErrOpenFailed, got %v", err)
		}
	})
}

func TestGetCodec(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("codec", "gob")
	cd, err := GetCodec()
	if err != nil || cd.Name() != "gob" {
		t.Errorf("Expected the gob codec, got %v, %v", cd, err)
	}

	viper.Set("codec", "xml")
	if _, err := GetCodec(); err == nil {
		t.Errorf("Expected an error for an unknown codec")
	}
}
