package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eduportal/eduportal-search/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search tools over MCP on stdio",
	Long:  "Starts the MCP server on stdin/stdout. When a catalog directory is configured it is imported before serving.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, cfg, log, err := openServer(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	defer func() {
		if err := srv.Close(); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	// stdout is reserved for the MCP protocol
	log.Info("eduportal MCP server starting",
		zap.String("version", version),
		zap.String("build_mode", storage.BuildMode),
		zap.String("driver", storage.DriverName),
		zap.String("db_path", cfg.DBPath))

	if cfg.CatalogDir != "" {
		stats, err := srv.Import(ctx, cfg.CatalogDir, false)
		if err != nil {
			log.Warn("initial catalog import failed", zap.String("dir", cfg.CatalogDir), zap.Error(err))
		} else {
			log.Info("initial catalog import",
				zap.Int("files_imported", stats.FilesImported),
				zap.Int("files_skipped", stats.FilesSkipped),
				zap.Int("opportunities", stats.OpportunitiesImported))
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		log.Info("MCP server ready, listening on stdio")
		errChan <- srv.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Info("server stopped")
	return nil
}
