package conn

import (
	"fmt"
	"github.com/ValentinKolb/eKV/lib/db"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Values
// --------------------------------------------------------------------------

// ValueKind is the type of a configuration value
type ValueKind int

const (
	ValueInt ValueKind = iota + 1
	ValueBool
	ValueString
)

func (k ValueKind) String() string {
	switch k {
	case ValueInt:
		return "int"
	case ValueBool:
		return "bool"
	case ValueString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is a configuration value of one of the kinds int, bool or string
type Value struct {
	kind ValueKind
	i    int64
	b    bool
	s    string
}

func IntValue(i int64) Value     { return Value{kind: ValueInt, i: i} }
func BoolValue(b bool) Value     { return Value{kind: ValueBool, b: b} }
func StringValue(s string) Value { return Value{kind: ValueString, s: s} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) Int() int64      { return v.i }
func (v Value) Bool() bool      { return v.b }
func (v Value) Str() string     { return v.s }

func (v Value) String() string {
	switch v.kind {
	case ValueInt:
		return strconv.FormatInt(v.i, 10)
	case ValueBool:
		return strconv.FormatBool(v.b)
	case ValueString:
		return v.s
	default:
		return "<invalid>"
	}
}

// ParseValue parses s as a value of kind
func ParseValue(kind ValueKind, s string) (Value, error) {
	switch kind {
	case ValueInt:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid int value %q: %w", s, err)
		}
		return IntValue(i), nil
	case ValueBool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return Value{}, fmt.Errorf("invalid bool value %q: %w", s, err)
		}
		return BoolValue(b), nil
	case ValueString:
		return StringValue(s), nil
	default:
		return Value{}, fmt.Errorf("invalid value kind %d", int(kind))
	}
}

// native converts the value to the representation used by db.Handle
func (v Value) native() any {
	switch v.kind {
	case ValueInt:
		return v.i
	case ValueBool:
		return v.b
	default:
		return v.s
	}
}

func valueFromNative(kind ValueKind, raw any) (Value, bool) {
	switch kind {
	case ValueInt:
		i, ok := raw.(int64)
		return IntValue(i), ok
	case ValueBool:
		b, ok := raw.(bool)
		return BoolValue(b), ok
	case ValueString:
		s, ok := raw.(string)
		return StringValue(s), ok
	default:
		return Value{}, false
	}
}

// --------------------------------------------------------------------------
// Keys
// --------------------------------------------------------------------------

// ConfigKey identifies an engine tunable
type ConfigKey int

const (
	KeyMaxPageCache ConfigKey = iota + 1
	KeyPageSize
	KeyMaxPageCount
	KeyDisableAutoCommit
	KeyKVEngine
)

var configKeys = map[ConfigKey]struct {
	name string
	kind ValueKind
	op   db.ConfigOp
}{
	KeyMaxPageCache:      {"max_page_cache", ValueInt, db.ConfigMaxPageCache},
	KeyPageSize:          {"page_size", ValueInt, db.ConfigPageSize},
	KeyMaxPageCount:      {"max_page_count", ValueInt, db.ConfigMaxPageCount},
	KeyDisableAutoCommit: {"disable_auto_commit", ValueBool, db.ConfigDisableAutoCommit},
	KeyKVEngine:          {"kv_engine", ValueString, db.ConfigKVEngine},
}

// Keys returns all configuration keys
func Keys() []ConfigKey {
	return []ConfigKey{KeyMaxPageCache, KeyPageSize, KeyMaxPageCount, KeyDisableAutoCommit, KeyKVEngine}
}

func (k ConfigKey) String() string {
	if e, ok := configKeys[k]; ok {
		return e.name
	}
	return fmt.Sprintf("ConfigKey(%d)", int(k))
}

// Kind returns the kind of the values of the key
func (k ConfigKey) Kind() ValueKind {
	return configKeys[k].kind
}

// ParseConfigKey parses the name of a key as returned by String
func ParseConfigKey(s string) (ConfigKey, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, k := range Keys() {
		if configKeys[k].name == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown configuration key %q", s)
}

// --------------------------------------------------------------------------
// Get/Set
// --------------------------------------------------------------------------

// GetConfig reads an engine tunable. Unknown keys fail with KindEngineFailure.
func (c *Connection) GetConfig(key ConfigKey) (Value, error) {
	if err := c.live("config get"); err != nil {
		return Value{}, err
	}
	entry, ok := configKeys[key]
	if !ok {
		return Value{}, newError(KindEngineFailure, "config get", "unknown configuration key %d", int(key))
	}

	raw, status := c.handle.ConfigGet(entry.op)
	if status != db.StatusOK {
		return Value{}, c.engineError("config get", status)
	}
	v, ok := valueFromNative(entry.kind, raw)
	if !ok {
		return Value{}, newError(KindEngineFailure, "config get", "engine returned %T for %s", raw, key)
	}
	return v, nil
}

// SetConfig sets an engine tunable. Unknown keys and values of the wrong
// kind fail with KindEngineFailure without reaching the engine.
func (c *Connection) SetConfig(key ConfigKey, value Value) error {
	if err := c.live("config set"); err != nil {
		return err
	}
	entry, ok := configKeys[key]
	if !ok {
		return newError(KindEngineFailure, "config set", "unknown configuration key %d", int(key))
	}
	if value.Kind() != entry.kind {
		return newError(KindEngineFailure, "config set", "%s expects a %s value, got %s", key, entry.kind, value.Kind())
	}

	if status := c.handle.ConfigSet(entry.op, value.native()); status != db.StatusOK {
		return c.engineError("config set", status)
	}
	log.Debugf("[%s] set %s = %s", c.shortID(), key, value)
	return nil
}
