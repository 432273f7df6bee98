// Package cmd provides the command-line interface of nocsim.
package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nocsim",
	Short: "nocsim simulates a 3D mesh network-on-chip with faults and heat.",
	Long: `nocsim simulates a 3D mesh network-on-chip cycle by cycle. Routers ` +
		`and links fail at random, routers heat up with load and are ` +
		`throttled when they overheat, and packets are routed around both.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info",
		"Log level (trace, debug, info, warn, error, disabled)")
}

func newLogger(cmd *cobra.Command) (zerolog.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")

	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return zerolog.Nop(), err
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}
