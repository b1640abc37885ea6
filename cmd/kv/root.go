package kv

import (
	"github.com/ValentinKolb/eKV/cmd/util"
	"github.com/spf13/cobra"
)

var (
	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:   "kv",
		Short: "Perform key-value operations",
	}
)

func init() {
	key := "tx"
	KeyValueCommands.PersistentFlags().Bool(key, false, util.WrapString("Run write commands inside an explicit transaction"))
	key = "hex"
	KeyValueCommands.PersistentFlags().Bool(key, false, util.WrapString("Keys and values are given and printed as hex strings"))

	KeyValueCommands.AddCommand(storeCmd)
	KeyValueCommands.AddCommand(appendCmd)
	KeyValueCommands.AddCommand(fetchCmd)
	KeyValueCommands.AddCommand(deleteCmd)
	KeyValueCommands.AddCommand(docSetCmd)
	KeyValueCommands.AddCommand(docGetCmd)
	KeyValueCommands.AddCommand(benchCmd)
}
