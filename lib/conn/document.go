package conn

import (
	"fmt"
	"github.com/ValentinKolb/eKV/lib/codec"
)

// StoreDoc encodes v with cd and stores it under key
func (c *Connection) StoreDoc(key []byte, v any, cd codec.ICodec) error {
	b, err := cd.Encode(v)
	if err != nil {
		return fmt.Errorf("encoding document %q as %s: %w", key, cd.Name(), err)
	}
	return c.Store(key, b)
}

// FetchDoc fetches the record of key and decodes it with cd into v
func (c *Connection) FetchDoc(key []byte, v any, cd codec.ICodec) error {
	b, err := c.Fetch(key)
	if err != nil {
		return err
	}
	if err := cd.Decode(b, v); err != nil {
		return fmt.Errorf("decoding document %q as %s: %w", key, cd.Name(), err)
	}
	return nil
}
