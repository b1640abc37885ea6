package util

import (
	"fmt"
	"github.com/ValentinKolb/eKV/lib/codec"
	"github.com/ValentinKolb/eKV/lib/common"
	"github.com/ValentinKolb/eKV/lib/conn"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupConnFlags adds the flags that select and configure the database
func SetupConnFlags(cmd *cobra.Command) {
	key := "db"
	cmd.PersistentFlags().String(key, "ekv.db", WrapString("Path of the database file. Use :mem: for an in-memory database, ignored for --mode=temp"))

	key = "mode"
	cmd.PersistentFlags().String(key, "create", WrapString("Access mode (readonly, create, temp, mmap)"))

	key = "threadsafe"
	cmd.PersistentFlags().Bool(key, true, WrapString("Open the connection so it can be shared between goroutines"))

	key = "codec"
	cmd.PersistentFlags().String(key, "json", WrapString("Codec used for documents (json, gob)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("Log level (debug, info, warn, error)"))

	key = "metrics"
	cmd.PersistentFlags().Bool(key, false, WrapString("Print connection metrics to stderr after the command"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("ekv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetConnConfig reads the connection configuration from viper
func GetConnConfig() *common.ConnConfig {
	return &common.ConnConfig{
		Path:       viper.GetString("db"),
		Mode:       viper.GetString("mode"),
		Threadsafe: viper.GetBool("threadsafe"),
		LogLevel:   viper.GetString("log-level"),
		Codec:      viper.GetString("codec"),
		Metrics:    viper.GetBool("metrics"),
	}
}

// GetCodec returns the configured document codec
func GetCodec() (codec.ICodec, error) {
	return codec.ByName(viper.GetString("codec"))
}

// OpenConnection opens a connection as configured
func OpenConnection() (*conn.Connection, error) {
	config := GetConnConfig()

	mode, err := conn.ParseOpenMode(config.Mode)
	if err != nil {
		return nil, err
	}

	path := config.Path
	if mode == conn.ModeTempDB {
		path = ""
	}

	return conn.Open(path, mode, conn.WithThreadsafe(config.Threadsafe))
}

// WithConnection opens the configured connection, runs fn and closes it again
func WithConnection(fn func(c *conn.Connection) error) error {
	err := conn.Scope(OpenConnection, fn)
	if viper.GetBool("metrics") {
		conn.WriteMetrics(os.Stderr)
	}
	return err
}

// Print writes a line of command output to stdout
func Print(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stdout, format+"\n", args...)
}
