package cmd

import (
	"fmt"
	"github.com/ValentinKolb/eKV/cmd/cfg"
	"github.com/ValentinKolb/eKV/cmd/hex"
	"github.com/ValentinKolb/eKV/cmd/kv"
	"github.com/ValentinKolb/eKV/cmd/random"
	"github.com/ValentinKolb/eKV/cmd/util"
	"github.com/ValentinKolb/eKV/lib/common"
	"github.com/ValentinKolb/eKV/lib/conn"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
)

const (
	Version = "1.0.0"
)

var (
	log = logger.GetLogger("cmd")

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "ekv",
		Short: "embedded transactional key-value store",
		Long: fmt.Sprintf(`eKV (v%s)

A command line client for an embedded, transactional key-value engine.
Every command opens the database, runs and closes it again.`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version of eKV and its engine",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("eKV v%s (%s)\n", Version, conn.EngineSignature())
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	util.SetupConnFlags(RootCmd)

	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(cfg.ConfigCommands)
	RootCmd.AddCommand(random.RandomCommands)
	RootCmd.AddCommand(hex.HexCommands)
	RootCmd.AddCommand(versionCmd)
}

// setup binds the flags of the executed command and initializes the loggers
func setup(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}
	log.Debugf("configuration: %s", util.GetConnConfig())
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
