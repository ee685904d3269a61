package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/eduportal/eduportal-search/internal/cache"
	"github.com/eduportal/eduportal-search/internal/catalog"
	"github.com/eduportal/eduportal-search/internal/config"
	"github.com/eduportal/eduportal-search/internal/importer"
	"github.com/eduportal/eduportal-search/internal/logger"
	"github.com/eduportal/eduportal-search/internal/searcher"
	"github.com/eduportal/eduportal-search/internal/storage"
	"github.com/eduportal/eduportal-search/internal/tracker"
)

const (
	// ServerName is the MCP server name
	ServerName = "eduportal-search"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	cfg      *config.Config
	logger   *zap.Logger
	storage  storage.Storage
	importer *importer.Importer
	searcher *searcher.Searcher
	trending *catalog.TrendingClient
}

// NewServer opens the catalog database and builds the search components from cfg.
// Persisted interaction state is loaded before the server is returned.
func NewServer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	log = logger.OrNop(log)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.DBPath, storage.WithQuota(cfg.StorageQuota))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		cfg:      cfg,
		logger:   log,
		storage:  store,
		importer: importer.New(store, log.Named("importer")),
	}

	srchOpts := []searcher.Option{
		searcher.WithCacheOptions(
			cache.WithMaxEntries(cfg.Cache.MaxEntries),
			cache.WithTTL(cfg.Cache.TTL),
		),
		searcher.WithTypeaheadDelay(cfg.Search.TypeaheadDelay),
		searcher.WithLogger(log.Named("searcher")),
	}

	if cfg.Trending.URL != "" {
		retry := catalog.DefaultRetryConfig()
		retry.MaxRetries = cfg.Trending.MaxRetries
		s.trending = catalog.NewTrendingClient(cfg.Trending.URL,
			catalog.WithTimeout(cfg.Trending.Timeout),
			catalog.WithRetry(retry),
			catalog.WithRateLimit(cfg.Trending.RatePerSec, 1),
			catalog.WithTrendingLogger(log.Named("trending")),
		)
		srchOpts = append(srchOpts, searcher.WithTrending(s.trending))
	}

	trk := tracker.New(
		tracker.WithStore(store),
		tracker.WithFlushDelay(cfg.Tracker.FlushDelay),
		tracker.WithLogger(log.Named("tracker")),
	)
	trk.Load(ctx)
	srchOpts = append(srchOpts, searcher.WithTracker(trk))

	cat := catalog.New(log.Named("catalog"),
		catalog.NewStorageSource(store),
		catalog.DefaultSource(),
	)
	s.searcher = searcher.New(cat, srchOpts...)

	s.registerTools()
	return s, nil
}

// Searcher returns the session searcher
func (s *Server) Searcher() *searcher.Searcher {
	return s.searcher
}

// Import loads catalog files from root and drops cached results so the next
// search sees the new entries. Caches are dropped even when the import fails
// after some files were committed.
func (s *Server) Import(ctx context.Context, root string, force bool) (*importer.Statistics, error) {
	stats, err := s.importer.Import(ctx, root, &importer.Config{
		Workers:   s.cfg.Import.Workers,
		BatchSize: s.cfg.Import.BatchSize,
		Force:     force,
	})
	if stats != nil && stats.FilesImported > 0 {
		s.searcher.InvalidateCache()
	}
	return stats, err
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	s.searcher.StartMaintenance(ctx, s.cfg.Cache.SweepInterval)
	return server.ServeStdio(s.mcp)
}

// Close flushes interaction state and closes the database
func (s *Server) Close() error {
	return errors.Join(s.searcher.Close(), s.storage.Close())
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchOpportunitiesTool(), s.handleSearchOpportunities)
	s.mcp.AddTool(searchAllTool(), s.handleSearchAll)
	s.mcp.AddTool(explainScoreTool(), s.handleExplainScore)
	s.mcp.AddTool(suggestTool(), s.handleSuggest)
	s.mcp.AddTool(recordInteractionTool(), s.handleRecordInteraction)
	s.mcp.AddTool(getAnalyticsTool(), s.handleGetAnalytics)
	s.mcp.AddTool(getRecommendationsTool(), s.handleGetRecommendations)
	s.mcp.AddTool(getTrendingTool(), s.handleGetTrending)
	s.mcp.AddTool(importCatalogTool(), s.handleImportCatalog)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
