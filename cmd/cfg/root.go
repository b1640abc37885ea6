package cfg

import (
	"fmt"
	"github.com/ValentinKolb/eKV/cmd/util"
	"github.com/ValentinKolb/eKV/lib/conn"
	"github.com/spf13/cobra"
)

var (
	// ConfigCommands represents the engine configuration command group
	ConfigCommands = &cobra.Command{
		Use:   "config",
		Short: "Read and write engine tunables",
		Long: `Read and write engine tunables. Tunables apply to the connection
opened for the command, they are not stored in the database.`,
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value of a tunable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := conn.ParseConfigKey(args[0])
			if err != nil {
				return err
			}
			return util.WithConnection(func(c *conn.Connection) error {
				v, err := c.GetConfig(key)
				if err != nil {
					return err
				}
				util.Print("%s=%s", key, v)
				return nil
			})
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value of a tunable and prints the value read back",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := conn.ParseConfigKey(args[0])
			if err != nil {
				return err
			}
			value, err := conn.ParseValue(key.Kind(), args[1])
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			return util.WithConnection(func(c *conn.Connection) error {
				if err := c.SetConfig(key, value); err != nil {
					return err
				}
				v, err := c.GetConfig(key)
				if err != nil {
					return err
				}
				util.Print("%s=%s", key, v)
				return nil
			})
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all tunables and their values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.WithConnection(func(c *conn.Connection) error {
				for _, key := range conn.Keys() {
					v, err := c.GetConfig(key)
					if err != nil {
						return err
					}
					util.Print("%-20s %-7s %s", key, key.Kind(), v)
				}
				return nil
			})
		},
	}
)

func init() {
	ConfigCommands.AddCommand(getCmd)
	ConfigCommands.AddCommand(setCmd)
	ConfigCommands.AddCommand(listCmd)
}
