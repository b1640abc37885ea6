package hex

import (
	"github.com/ValentinKolb/eKV/cmd/util"
	"github.com/ValentinKolb/eKV/lib/conn"
	"github.com/spf13/cobra"
)

var (
	// HexCommands represents the hex command group. It does not open a database.
	HexCommands = &cobra.Command{
		Use:   "hex",
		Short: "Encode and decode hex strings",
	}
	encodeCmd = &cobra.Command{
		Use:   "encode [text]",
		Short: "Prints the hex encoding of text",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			util.Print("%s", conn.Hex([]byte(args[0])))
		},
	}
	decodeCmd = &cobra.Command{
		Use:   "decode [hex]",
		Short: "Decodes a hex string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := conn.Unhex(args[0])
			if err != nil {
				return err
			}
			util.Print("%s", b)
			return nil
		},
	}
)

func init() {
	HexCommands.AddCommand(encodeCmd)
	HexCommands.AddCommand(decodeCmd)
}
