package importer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eduportal/eduportal-search/internal/catalog"
	"github.com/eduportal/eduportal-search/internal/logger"
	"github.com/eduportal/eduportal-search/internal/storage"
	"github.com/eduportal/eduportal-search/pkg/types"
)

// ErrImportInProgress is returned when another import holds the lock
var ErrImportInProgress = errors.New("an import is already in progress")

// Importer loads catalog files into storage
type Importer struct {
	storage storage.Storage
	logger  *zap.Logger
	lock    ImportLock

	// Worker pool configuration
	workers int
}

// Config contains configuration for an import
type Config struct {
	Workers   int  // Number of concurrent readers (default: runtime.NumCPU())
	BatchSize int  // Number of files to commit per transaction (default: 20)
	Force     bool // Re-import files even when their hash is unchanged
}

// Statistics contains statistics about the import operation
type Statistics struct {
	FilesImported         int
	FilesSkipped          int
	FilesFailed           int
	OpportunitiesImported int
	RecordsRejected       int
	Duration              time.Duration
	ErrorMessages         []string
}

// loadedFile is a file read and decoded ahead of the store phase
type loadedFile struct {
	path     string // Relative to the import root
	hash     [32]byte
	modTime  time.Time
	size     int64
	opps     []types.Opportunity
	parseErr error
}

// New creates a new Importer instance
func New(store storage.Storage, log *zap.Logger) *Importer {
	return &Importer{
		storage: store,
		logger:  logger.OrNop(log),
		workers: runtime.NumCPU(),
	}
}

// Running reports whether an import is in progress
func (imp *Importer) Running() bool {
	return imp.lock.Held()
}

// Import loads every catalog file under root, which may also be a single file.
// Files are stored in batches; if a batch fails the statistics of the batches
// already committed are returned with the error.
func (imp *Importer) Import(ctx context.Context, root string, config *Config) (*Statistics, error) {
	if !imp.lock.TryAcquire() {
		return nil, ErrImportInProgress
	}
	defer imp.lock.Release()

	if config == nil {
		config = &Config{}
	}
	workers := config.Workers
	if workers <= 0 {
		workers = imp.workers
	}
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}

	startTime := time.Now()
	stats := &Statistics{
		ErrorMessages: make([]string, 0),
	}

	files, base, err := discoverFiles(root)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	loaded, err := imp.readFiles(ctx, base, files, workers, stats)
	if err != nil {
		return nil, fmt.Errorf("failed to read files: %w", err)
	}

	for i := 0; i < len(loaded); i += batchSize {
		end := i + batchSize
		if end > len(loaded) {
			end = len(loaded)
		}
		if err := imp.storeBatch(ctx, loaded[i:end], config.Force, stats); err != nil {
			// Earlier batches are committed; callers still need their counts
			stats.Duration = time.Since(startTime)
			imp.logger.Warn("catalog import stopped",
				zap.String("root", root),
				zap.Int("imported", stats.FilesImported),
				zap.Error(err))
			return stats, err
		}
	}

	stats.Duration = time.Since(startTime)
	imp.logger.Info("catalog import finished",
		zap.String("root", root),
		zap.Int("imported", stats.FilesImported),
		zap.Int("skipped", stats.FilesSkipped),
		zap.Int("failed", stats.FilesFailed),
		zap.Int("opportunities", stats.OpportunitiesImported),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

// discoverFiles finds all JSON files under root in lexical order. It also returns
// the directory paths are made relative to.
func discoverFiles(root string) ([]string, string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, "", err
	}
	if !info.IsDir() {
		return []string{root}, filepath.Dir(root), nil
	}

	var files []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			// Skip hidden directories
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.EqualFold(filepath.Ext(path), ".json") {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, root, err
}

// readFiles hashes and decodes files concurrently. Results keep discovery order.
func (imp *Importer) readFiles(ctx context.Context, base string, files []string, workers int, stats *Statistics) ([]*loadedFile, error) {
	// Create worker pool with semaphore
	semaphore := make(chan struct{}, workers)
	loaded := make([]*loadedFile, len(files))

	var failed int32
	var mu sync.Mutex // Protect stats.ErrorMessages

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			lf, err := readFile(base, path)
			if err != nil {
				atomic.AddInt32(&failed, 1)
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", path, err))
				mu.Unlock()
				return nil
			}
			loaded[i] = lf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.FilesFailed += int(failed)

	out := make([]*loadedFile, 0, len(loaded))
	for _, lf := range loaded {
		if lf != nil {
			out = append(out, lf)
		}
	}
	return out, nil
}

// readFile loads one file. Decode problems are kept on the result so they can be
// recorded; only I/O failures are returned.
func readFile(base, path string) (*loadedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(base, path)
	if err != nil {
		rel = path
	}

	lf := &loadedFile{
		path:    filepath.ToSlash(rel),
		hash:    sha256.Sum256(data),
		modTime: info.ModTime(),
		size:    info.Size(),
	}
	lf.opps, lf.parseErr = catalog.DecodeRecords(data, categoryFromFileName(path))
	return lf, nil
}

// categoryFromFileName maps scholarships.json to the scholarships category
func categoryFromFileName(path string) types.Category {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	c, err := types.ParseCategory(name)
	if err != nil {
		return ""
	}
	return c
}

// storeBatch writes a batch of files within a transaction
func (imp *Importer) storeBatch(ctx context.Context, batch []*loadedFile, force bool, stats *Statistics) error {
	tx, err := imp.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var batchStats Statistics
	for _, lf := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := imp.storeFile(ctx, tx, lf, force, &batchStats); err != nil {
			return fmt.Errorf("failed to store %s: %w", lf.path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	stats.FilesImported += batchStats.FilesImported
	stats.FilesSkipped += batchStats.FilesSkipped
	stats.FilesFailed += batchStats.FilesFailed
	stats.OpportunitiesImported += batchStats.OpportunitiesImported
	stats.RecordsRejected += batchStats.RecordsRejected
	stats.ErrorMessages = append(stats.ErrorMessages, batchStats.ErrorMessages...)
	return nil
}

// storeFile replaces the opportunities owned by one file
func (imp *Importer) storeFile(ctx context.Context, store storage.Storage, lf *loadedFile, force bool, stats *Statistics) error {
	shouldSkip, err := imp.checkFileChanged(ctx, store, lf, force)
	if err != nil {
		return err
	}
	if shouldSkip {
		stats.FilesSkipped++
		return nil
	}

	file := &storage.CatalogFile{
		Path:        lf.path,
		ContentHash: lf.hash,
		ModTime:     lf.modTime,
		SizeBytes:   lf.size,
	}
	if lf.parseErr != nil {
		msg := lf.parseErr.Error()
		file.ParseError = &msg
		stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %s", lf.path, msg))
		if len(lf.opps) == 0 {
			stats.FilesFailed++
		} else {
			stats.RecordsRejected += countJoined(lf.parseErr)
		}
	}

	if err := store.UpsertCatalogFile(ctx, file); err != nil {
		return err
	}

	for _, opp := range lf.opps {
		row := storage.FromTypesOpportunity(opp, &file.ID)
		if err := store.UpsertOpportunity(ctx, row); err != nil {
			return fmt.Errorf("failed to store opportunity %q: %w", opp.Name, err)
		}
	}

	if len(lf.opps) > 0 || lf.parseErr == nil {
		stats.FilesImported++
	}
	stats.OpportunitiesImported += len(lf.opps)
	return nil
}

// checkFileChanged reports whether a file can be skipped. A changed file has its
// previous opportunities removed before re-import.
func (imp *Importer) checkFileChanged(ctx context.Context, store storage.Storage, lf *loadedFile, force bool) (bool, error) {
	existing, err := store.GetCatalogFile(ctx, lf.path)
	if err == storage.ErrNotFound {
		// New file, needs importing
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !force && existing.ContentHash == lf.hash {
		return true, nil
	}

	if err := store.DeleteOpportunitiesByFile(ctx, existing.ID); err != nil {
		return false, fmt.Errorf("failed to delete old opportunities: %w", err)
	}
	return false, nil
}

// countJoined counts the record errors joined into err
func countJoined(err error) int {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}
