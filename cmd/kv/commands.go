package kv

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/eKV/cmd/util"
	"github.com/ValentinKolb/eKV/lib/conn"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	storeCmd = &cobra.Command{
		Use:   "store [key] [value]",
		Short: "Stores the value for a key, replacing an existing one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value, err := decodeArgs(args[0], args[1])
			if err != nil {
				return err
			}
			return write(func(c *conn.Connection) error {
				return c.Store(key, value)
			}, "stored successfully")
		},
	}
	appendCmd = &cobra.Command{
		Use:   "append [key] [value]",
		Short: "Appends the value to the record of a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value, err := decodeArgs(args[0], args[1])
			if err != nil {
				return err
			}
			return write(func(c *conn.Connection) error {
				return c.Append(key, value)
			}, "appended successfully")
		},
	}
	fetchCmd = &cobra.Command{
		Use:   "fetch [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, _, err := decodeArgs(args[0], "")
			if err != nil {
				return err
			}
			return util.WithConnection(func(c *conn.Connection) error {
				value, err := c.Fetch(key)
				if err != nil {
					return err
				}
				util.Print("%s", encodeValue(value))
				return nil
			})
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, _, err := decodeArgs(args[0], "")
			if err != nil {
				return err
			}
			return write(func(c *conn.Connection) error {
				return c.Delete(key)
			}, "deleted successfully")
		},
	}
	docSetCmd = &cobra.Command{
		Use:   "doc-set [key] [json]",
		Short: "Stores a JSON document encoded with the configured codec",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cd, err := util.GetCodec()
			if err != nil {
				return err
			}
			var doc map[string]any
			if err := json.Unmarshal([]byte(args[1]), &doc); err != nil {
				return fmt.Errorf("document must be a JSON object: %w", err)
			}
			return write(func(c *conn.Connection) error {
				return c.StoreDoc([]byte(args[0]), doc, cd)
			}, "document stored successfully")
		},
	}
	docGetCmd = &cobra.Command{
		Use:   "doc-get [key]",
		Short: "Reads a document and prints it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cd, err := util.GetCodec()
			if err != nil {
				return err
			}
			return util.WithConnection(func(c *conn.Connection) error {
				var doc map[string]any
				if err := c.FetchDoc([]byte(args[0]), &doc, cd); err != nil {
					return err
				}
				out, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return err
				}
				util.Print("%s", out)
				return nil
			})
		},
	}
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// write runs fn on the configured connection, inside a transaction if --tx is set
func write(fn func(c *conn.Connection) error, success string) error {
	err := util.WithConnection(func(c *conn.Connection) error {
		if viper.GetBool("tx") {
			return c.Update(fn)
		}
		return fn(c)
	})
	if err != nil {
		return err
	}
	util.Print("%s", success)
	return nil
}

func decodeArgs(key, value string) ([]byte, []byte, error) {
	if !viper.GetBool("hex") {
		return []byte(key), []byte(value), nil
	}
	k, err := conn.Unhex(key)
	if err != nil {
		return nil, nil, fmt.Errorf("key: %w", err)
	}
	v, err := conn.Unhex(value)
	if err != nil {
		return nil, nil, fmt.Errorf("value: %w", err)
	}
	return k, v, nil
}

func encodeValue(value []byte) string {
	if viper.GetBool("hex") {
		return conn.Hex(value)
	}
	return string(value)
}
