package conn

import (
	"bytes"
	"errors"
	"github.com/ValentinKolb/eKV/lib/db"
	"strings"
	"testing"
)

func TestHex(t *testing.T) {
	cases := []struct {
		input []byte
		want  string
	}{
		{nil, ""},
		{[]byte{}, ""},
		{[]byte{0x00}, "00"},
		{[]byte("ekv"), "656b76"},
		{[]byte{0xDE, 0xAD, 0xBE, 0xEF}, "deadbeef"},
	}
	for _, tc := range cases {
		got := Hex(tc.input)
		if got != tc.want {
			t.Errorf("Hex(%v) = %q, want %q", tc.input, got, tc.want)
		}
		back, err := Unhex(got)
		if err != nil {
			t.Errorf("Unhex(%q) failed: %v", got, err)
			continue
		}
		if !bytes.Equal(back, tc.input) {
			t.Errorf("Unhex(Hex(%v)) = %v", tc.input, back)
		}
	}

	if b, err := Unhex("DEADBEEF"); err != nil || Hex(b) != "deadbeef" {
		t.Errorf("Expected uppercase input to decode, got %v, %v", b, err)
	}
	for _, invalid := range []string{"zz", "abc"} {
		if _, err := Unhex(invalid); err == nil {
			t.Errorf("Expected Unhex(%q) to fail", invalid)
		}
	}
}

func TestHexRandomRoundTrip(t *testing.T) {
	c := openConn(t, db.MemPath, ModeCreate)
	for _, n := range []int{0, 1, 31, 256} {
		b, err := c.RandomBytes(n)
		if err != nil {
			t.Fatalf("RandomBytes(%d) failed: %v", n, err)
		}
		back, err := Unhex(Hex(b))
		if err != nil || !bytes.Equal(back, b) {
			t.Errorf("Round trip of %d random bytes failed", n)
		}
	}
}

func TestRandom(t *testing.T) {
	c := openConn(t, db.MemPath, ModeCreate)

	b, err := c.RandomBytes(16)
	if err != nil || len(b) != 16 {
		t.Errorf("RandomBytes(16) = %d bytes, %v", len(b), err)
	}

	s, err := c.RandomString(64)
	if err != nil {
		t.Fatalf("RandomString failed: %v", err)
	}
	if len(s) != 64 {
		t.Errorf("Expected 64 characters, got %d", len(s))
	}
	if strings.Trim(s, randomAlphabet) != "" {
		t.Errorf("Expected only lowercase letters, got %q", s)
	}

	if _, err := c.RandomBytes(-1); err == nil {
		t.Errorf("Expected a negative length to fail")
	}

	_ = c.Close()
	_, err = c.RandomString(8)
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed after close, got %v", err)
	}
}

func TestIntrospection(t *testing.T) {
	c := openConn(t, db.MemPath, ModeReadOnly)

	if c.EngineName() != "maple" {
		t.Errorf("Expected engine maple, got %q", c.EngineName())
	}
	if c.Version() == "" || c.Version() != EngineVersion() {
		t.Errorf("Expected the default driver version, got %q", c.Version())
	}
	if !strings.Contains(c.Signature(), c.Version()) || c.Signature() != EngineSignature() {
		t.Errorf("Expected the signature to contain the version, got %q", c.Signature())
	}
	if c.Mode() != ModeReadOnly || c.Path() != db.MemPath {
		t.Errorf("Unexpected accessors: %s %q", c.Mode(), c.Path())
	}
}
