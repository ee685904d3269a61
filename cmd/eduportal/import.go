package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import opportunity JSON files into the catalog",
	Long:  "Imports every JSON file under a directory, or a single file. Files whose content is unchanged since the last import are skipped unless --force is given.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var importForce bool

func init() {
	importCmd.Flags().BoolVar(&importForce, "force", false, "Re-import files even when unchanged")
	rootCmd.AddCommand(importCmd)
}

func runImport(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}

	srv, _, log, err := openServer(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	defer func() {
		if err := srv.Close(); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	stats, err := srv.Import(ctx, root, importForce)
	if err != nil {
		if stats != nil && stats.FilesImported > 0 {
			log.Warn("import stopped after committing files",
				zap.Int("files_imported", stats.FilesImported),
				zap.Int("opportunities", stats.OpportunitiesImported))
		}
		return fmt.Errorf("import failed: %w", err)
	}
	return printJSON(stats)
}
