package random

import (
	"github.com/ValentinKolb/eKV/cmd/util"
	"github.com/ValentinKolb/eKV/lib/conn"
	"github.com/spf13/cobra"
	"strconv"
)

var (
	// RandomCommands represents the random generator command group
	RandomCommands = &cobra.Command{
		Use:   "random",
		Short: "Draw from the engine's random generator",
	}
	bytesCmd = &cobra.Command{
		Use:   "bytes [n]",
		Short: "Prints n random bytes as hex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			return util.WithConnection(func(c *conn.Connection) error {
				b, err := c.RandomBytes(n)
				if err != nil {
					return err
				}
				util.Print("%s", conn.Hex(b))
				return nil
			})
		},
	}
	stringCmd = &cobra.Command{
		Use:   "string [n]",
		Short: "Prints a random string of n lowercase letters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			return util.WithConnection(func(c *conn.Connection) error {
				s, err := c.RandomString(n)
				if err != nil {
					return err
				}
				util.Print("%s", s)
				return nil
			})
		},
	}
)

func init() {
	RandomCommands.AddCommand(bytesCmd)
	RandomCommands.AddCommand(stringCmd)
}
