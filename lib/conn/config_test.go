package conn

import (
	"errors"
	"github.com/ValentinKolb/eKV/lib/db"
	dbtesting "github.com/ValentinKolb/eKV/lib/db/testing"
	"testing"
)

func TestConfigRoundTrip(t *testing.T) {
	c := openConn(t, db.MemPath, ModeCreate)

	cases := []struct {
		key   ConfigKey
		value Value
	}{
		{KeyMaxPageCache, IntValue(1024)},
		{KeyPageSize, IntValue(8192)},
		{KeyMaxPageCount, IntValue(100000)},
		{KeyDisableAutoCommit, BoolValue(true)},
		{KeyDisableAutoCommit, BoolValue(false)},
		{KeyKVEngine, StringValue("maple")},
	}

	for _, tc := range cases {
		t.Run(tc.key.String()+"="+tc.value.String(), func(t *testing.T) {
			if err := c.SetConfig(tc.key, tc.value); err != nil {
				t.Fatalf("SetConfig failed: %v", err)
			}
			got, err := c.GetConfig(tc.key)
			if err != nil {
				t.Fatalf("GetConfig failed: %v", err)
			}
			if got != tc.value {
				t.Errorf("Expected %s (%s), got %s (%s)", tc.value, tc.value.Kind(), got, got.Kind())
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	c := openConn(t, db.MemPath, ModeCreate)

	for _, key := range Keys() {
		v, err := c.GetConfig(key)
		if err != nil {
			t.Errorf("GetConfig(%s) failed: %v", key, err)
			continue
		}
		if v.Kind() != key.Kind() {
			t.Errorf("GetConfig(%s): expected kind %s, got %s", key, key.Kind(), v.Kind())
		}
	}
}

func TestConfigRejectedLocally(t *testing.T) {
	fd := newFaultDriver()
	c := openConn(t, db.MemPath, ModeCreate, WithDriver(fd))

	expectKind(t, c.SetConfig(KeyPageSize, BoolValue(true)), KindEngineFailure)
	expectKind(t, c.SetConfig(KeyKVEngine, IntValue(1)), KindEngineFailure)
	expectKind(t, c.SetConfig(ConfigKey(99), IntValue(1)), KindEngineFailure)
	_, err := c.GetConfig(ConfigKey(99))
	expectKind(t, err, KindEngineFailure)

	if fd.Calls(dbtesting.OpConfigSet) != 0 || fd.Calls(dbtesting.OpConfigGet) != 0 {
		t.Errorf("Expected invalid configuration calls to be rejected without engine calls")
	}
}

func TestConfigRejectedByEngine(t *testing.T) {
	c := openConn(t, db.MemPath, ModeCreate)

	err := c.SetConfig(KeyPageSize, IntValue(1000))
	expectKind(t, err, KindEngineFailure)
	var e *Error
	if !errors.As(err, &e) || e.Code != db.StatusInvalid || e.Msg == "" {
		t.Errorf("Expected native status Invalid with a message, got %v", err)
	}

	err = c.SetConfig(KeyKVEngine, StringValue("hash"))
	expectKind(t, err, KindEngineFailure)
}

func TestConfigOnReadOnly(t *testing.T) {
	c := openConn(t, db.MemPath, ModeReadOnly)
	if err := c.SetConfig(KeyMaxPageCache, IntValue(64)); err != nil {
		t.Errorf("Expected tunables to be settable on a read-only connection, got %v", err)
	}
}

func TestParseConfigKey(t *testing.T) {
	for _, key := range Keys() {
		parsed, err := ParseConfigKey(key.String())
		if err != nil || parsed != key {
			t.Errorf("ParseConfigKey(%q) = %v, %v", key.String(), parsed, err)
		}
	}
	if k, err := ParseConfigKey("page-size"); err != nil || k != KeyPageSize {
		t.Errorf("Expected dashes to be accepted, got %v, %v", k, err)
	}
	if _, err := ParseConfigKey("cache_size"); err == nil {
		t.Errorf("Expected an unknown key to fail")
	}
}

func TestParseValue(t *testing.T) {
	cases := []struct {
		kind    ValueKind
		input   string
		want    Value
		wantErr bool
	}{
		{ValueInt, "4096", IntValue(4096), false},
		{ValueInt, " -1 ", IntValue(-1), false},
		{ValueInt, "four", Value{}, true},
		{ValueBool, "true", BoolValue(true), false},
		{ValueBool, "0", BoolValue(false), false},
		{ValueBool, "maybe", Value{}, true},
		{ValueString, "maple", StringValue("maple"), false},
		{ValueKind(0), "x", Value{}, true},
	}
	for _, tc := range cases {
		got, err := ParseValue(tc.kind, tc.input)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseValue(%s, %q): unexpected error state %v", tc.kind, tc.input, err)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("ParseValue(%s, %q) = %s, want %s", tc.kind, tc.input, got, tc.want)
		}
	}
}
