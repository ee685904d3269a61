// Package main provides the eduportal command: the MCP search server and its
// maintenance commands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eduportal/eduportal-search/internal/config"
	"github.com/eduportal/eduportal-search/internal/logger"
	"github.com/eduportal/eduportal-search/internal/mcp"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "eduportal",
	Short:        "EduPortal opportunity search",
	Long:         "Search, rank and recommend scholarships, hackathons, workshops and internships, served over MCP or from the command line.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openServer loads configuration and builds the server with its logger
func openServer(ctx context.Context) (*mcp.Server, *config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}

	srv, err := mcp.NewServer(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, nil, fmt.Errorf("failed to create server: %w", err)
	}
	return srv, cfg, log, nil
}
