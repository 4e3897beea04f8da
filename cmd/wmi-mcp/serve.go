package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hasaranga/wmi-mcp/internal/mcp"
	"github.com/hasaranga/wmi-mcp/internal/wmi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP requests on stdin/stdout",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	locator, err := wmi.NewLocator()
	if err != nil {
		return fmt.Errorf("failed to initialize WMI: %w", err)
	}

	executor := wmi.NewExecutor(locator, logger)
	defer releaseExecutor(executor, logger)

	server := mcp.NewServer(executor, mcp.Options{
		Name:             cfg.Server.Name,
		Version:          cfg.Server.Version,
		ProtocolVersion:  cfg.Server.ProtocolVersion,
		DefaultNamespace: cfg.Namespace,
		MaxLineBytes:     cfg.Server.MaxLineBytes,
		Input:            cmd.InOrStdin(),
		Output:           cmd.OutOrStdout(),
		Logger:           logger,
	})

	logger.WithField("namespace", cfg.Namespace).Info("WMI MCP server started")
	if err := server.Run(cmd.Context()); err != nil {
		return err
	}
	logger.Info("Input closed, shutting down")
	return nil
}

func releaseExecutor(executor *wmi.Executor, log *logrus.Logger) {
	if err := executor.Close(); err != nil {
		log.WithError(err).Warn("Failed to release WMI connection")
	}
}
