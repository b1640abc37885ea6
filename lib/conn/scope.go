package conn

import "errors"

// Scope opens a connection, runs fn and always closes the connection, also
// when fn panics. A close failure is logged and joined into the returned error.
//
//	err := conn.Scope(func() (*conn.Connection, error) {
//		return conn.Create("data.db")
//	}, func(c *conn.Connection) error {
//		return c.Store([]byte("key"), []byte("value"))
//	})
func Scope(open func() (*Connection, error), fn func(c *Connection) error) (err error) {
	c, err := open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return fn(c)
}
