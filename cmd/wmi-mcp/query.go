package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hasaranga/wmi-mcp/internal/wmi"
)

var flagNamespace string

var queryCmd = &cobra.Command{
	Use:   "query <WQL>",
	Short: "Run one WQL query and print the result as JSON",
	Example: `  wmi-mcp query "SELECT Name, Size FROM Win32_LogicalDisk"
  wmi-mcp query --namespace 'ROOT\WMI' "SELECT * FROM MSAcpi_ThermalZoneTemperature"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&flagNamespace, "namespace", "n", "", "WMI namespace (default from config, ROOT\\CIMV2)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	namespace := flagNamespace
	if namespace == "" {
		namespace = cfg.Namespace
	}

	locator, err := wmi.NewLocator()
	if err != nil {
		return fmt.Errorf("failed to initialize WMI: %w", err)
	}
	executor := wmi.NewExecutor(locator, logger)
	defer releaseExecutor(executor, logger)

	result := executor.Execute(namespace, strings.Join(args, " "))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if !result.Success {
		return errors.New(result.Error)
	}
	return nil
}
