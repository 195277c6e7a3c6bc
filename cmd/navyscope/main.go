package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Logger, replaced by serve once the configuration is loaded
	logger = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "navyscope",
	Short: "Focuser and LX200 bridge",
	Long: `navyscope sits between a serial line (or TCP socket) and a focus motor.

The same byte stream carries legacy focus commands (F+, F-) and the LX200
handshake planetarium software uses to locate a telescope (:GR#, :GD#, :CM#).
Focus commands move the motor; LX200 queries get fixed placeholder replies.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd, classifyCmd, rulesCmd, consoleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
