package conn

import (
	"encoding/hex"
	"fmt"
	"runtime"
)

const randomAlphabet = "abcdefghijklmnopqrstuvwxyz"

// RandomBytes returns n bytes from the engine's generator
func (c *Connection) RandomBytes(n int) ([]byte, error) {
	if err := c.live("random"); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, newError(KindEngineFailure, "random", "negative length %d", n)
	}
	b := c.handle.RandomBytes(n)
	// a leaked connection must not be finalized while the handle is in use
	runtime.KeepAlive(c)
	return b, nil
}

// RandomString returns a string of n lowercase letters (a-z) from the engine's generator
func (c *Connection) RandomString(n int) (string, error) {
	b, err := c.RandomBytes(n)
	if err != nil {
		return "", err
	}
	for i := range b {
		b[i] = randomAlphabet[int(b[i])%len(randomAlphabet)]
	}
	return string(b), nil
}

// Hex returns the lowercase hex encoding of b. Empty input yields "".
func Hex(b []byte) string {
	return hex.EncodeToString(b)
}

// Unhex decodes a hex string as returned by Hex
func Unhex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string: %w", err)
	}
	return b, nil
}

// --------------------------------------------------------------------------
// Introspection
// --------------------------------------------------------------------------

// Version returns the version of the engine behind the connection
func (c *Connection) Version() string {
	return c.driver.Version()
}

// Signature returns the signature of the engine behind the connection
func (c *Connection) Signature() string {
	return c.driver.Signature()
}

// EngineName returns the name of the engine behind the connection
func (c *Connection) EngineName() string {
	return c.driver.Name()
}

// EngineVersion returns the version of DefaultDriver
func EngineVersion() string {
	return DefaultDriver().Version()
}

// EngineSignature returns the signature of DefaultDriver
func EngineSignature() string {
	return DefaultDriver().Signature()
}
