package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hasaranga/wmi-mcp/internal/config"
)

const version = "1.0.0"

var (
	flagConfig   string
	flagLogLevel string

	cfg    *config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "wmi-mcp",
	Short: "MCP server exposing WMI queries over stdio",
	Long: `wmi-mcp reads JSON-RPC requests from stdin, one per line, and answers on
stdout. It exposes a single tool, executeWMIQuery, which runs a WQL query
against a WMI namespace and returns the resulting objects as JSON.

Running wmi-mcp without a subcommand is the same as "wmi-mcp serve".`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	RunE:              runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ./wmi-mcp.yaml or ~/.wmi-mcp/wmi-mcp.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads configuration and builds the stderr logger shared by all
// subcommands.
func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	loaded, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flagLogLevel != "" {
		loaded.Log.Level = flagLogLevel
		if err := loaded.Validate(); err != nil {
			return err
		}
	}

	cfg = loaded
	logger = cfg.NewLogger(os.Stderr)
	return nil
}
