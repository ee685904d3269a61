package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/eduportal/eduportal-search/internal/importer"
	"github.com/eduportal/eduportal-search/internal/query"
	"github.com/eduportal/eduportal-search/internal/searcher"
	"github.com/eduportal/eduportal-search/internal/tracker"
	"github.com/eduportal/eduportal-search/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodePathNotFound     = -32001 // Import path missing or holds no catalog files
	ErrorCodeImportInProgress = -32002 // Another import is already running
	ErrorCodeUnknownItem      = -32003 // No opportunity with the given id
)

const (
	// DefaultLimit is the result limit when a search omits one
	DefaultLimit = 20
	// DefaultRecommendLimit is the recommendation limit when the request omits one
	DefaultRecommendLimit = searcher.DefaultRecommendLimit
	// MaxLimit bounds every limit parameter
	MaxLimit = 100
	// TopKeywordsLimit caps the keywords reported per category by get_analytics
	TopKeywordsLimit = 5
)

// handleSearchOpportunities handles the search_opportunities tool invocation
func (s *Server) handleSearchOpportunities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	category, err := requireCategory(args)
	if err != nil {
		return nil, err
	}
	text, ok := args["query"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or not a string",
		})
	}
	filters, err := parseFilters(args)
	if err != nil {
		return nil, err
	}
	limit, err := parseLimit(args, DefaultLimit)
	if err != nil {
		return nil, err
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Category:  category,
		Query:     text,
		Filters:   filters,
		Limit:     limit,
		SkipCache: getBoolDefault(args, "skip_cache", false),
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(searchResponseMap(resp))), nil
}

// handleSearchAll handles the search_all tool invocation
func (s *Server) handleSearchAll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	text, ok := args["query"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or not a string",
		})
	}
	filters, err := parseFilters(args)
	if err != nil {
		return nil, err
	}
	limit, err := parseLimit(args, DefaultLimit)
	if err != nil {
		return nil, err
	}

	responses, err := s.searcher.SearchAll(ctx, text, filters, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	categories := make(map[string]interface{}, len(responses))
	total := 0
	for category, resp := range responses {
		categories[string(category)] = searchResponseMap(resp)
		total += resp.TotalResults
	}

	response := map[string]interface{}{
		"query":         text,
		"total_results": total,
		"categories":    categories,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleExplainScore handles the explain_score tool invocation
func (s *Server) handleExplainScore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	category, err := requireCategory(args)
	if err != nil {
		return nil, err
	}
	id, ok := args["id"].(string)
	if !ok || id == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param":  "id",
			"reason": "missing or empty",
		})
	}
	filters, err := parseFilters(args)
	if err != nil {
		return nil, err
	}

	breakdown, found, err := s.searcher.Explain(ctx, searcher.SearchRequest{
		Category: category,
		Query:    getStringDefault(args, "query", ""),
		Filters:  filters,
	}, id)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "explain failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if !found {
		return nil, newMCPError(ErrorCodeUnknownItem, "opportunity not found", map[string]interface{}{
			"category": category,
			"id":       id,
		})
	}

	response := map[string]interface{}{
		"id":        id,
		"category":  category,
		"score":     breakdown.Total(),
		"relevance": breakdown.Relevance(),
		"boosts":    breakdown.Boosts(),
		"breakdown": breakdown,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSuggest handles the suggest tool invocation
func (s *Server) handleSuggest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	input, ok := args["input"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "input parameter is required", map[string]interface{}{
			"param":  "input",
			"reason": "missing or not a string",
		})
	}
	category, err := optionalCategory(args)
	if err != nil {
		return nil, err
	}

	response := map[string]interface{}{
		"input":       input,
		"suggestions": s.searcher.Suggest(ctx, input, category),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRecordInteraction handles the record_interaction tool invocation
func (s *Server) handleRecordInteraction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	category, err := requireCategory(args)
	if err != nil {
		return nil, err
	}

	kind := tracker.Kind(getStringDefault(args, "type", ""))
	var event tracker.Event
	switch kind {
	case tracker.KindSearch:
		parsed := query.Parse(getStringDefault(args, "query", ""))
		event = tracker.SearchEvent(category, parsed.Original, parsed.Keywords, nil)
	case tracker.KindView:
		event = tracker.ViewEvent(category, getStringDefault(args, "item_id", ""))
	case tracker.KindClick:
		event = tracker.ClickEvent(category, getStringDefault(args, "item_id", ""),
			getStringDefault(args, "query", ""), getIntDefault(args, "position", 0))
	case tracker.KindFilter:
		event = tracker.FilterEvent(category, types.FilterField(getStringDefault(args, "filter_name", "")),
			getStringDefault(args, "filter_value", ""))
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid interaction type", map[string]interface{}{
			"param":   "type",
			"value":   kind,
			"allowed": []tracker.Kind{tracker.KindSearch, tracker.KindView, tracker.KindClick, tracker.KindFilter},
		})
	}

	if err := s.searcher.Record(event); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid interaction", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"recorded": true,
		"type":     kind,
		"category": category,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetAnalytics handles the get_analytics tool invocation
func (s *Server) handleGetAnalytics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a := s.searcher.Analytics()

	activity := make(map[string]int, len(a.CategoryActivity))
	for category, n := range a.CategoryActivity {
		activity[string(category)] = n
	}

	keywords := make(map[string][]string)
	for _, category := range types.AllCategories {
		if top := s.searcher.Tracker().TopKeywords(category, TopKeywordsLimit); len(top) > 0 {
			keywords[string(category)] = top
		}
	}

	response := map[string]interface{}{
		"total_searches":    a.TotalSearches,
		"total_views":       a.TotalViews,
		"top_category":      a.TopCategory,
		"search_efficiency": a.SearchEfficiency,
		"engagement_score":  a.EngagementScore,
		"category_activity": activity,
		"top_keywords":      keywords,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetRecommendations handles the get_recommendations tool invocation
func (s *Server) handleGetRecommendations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	category, err := requireCategory(args)
	if err != nil {
		return nil, err
	}
	limit, err := parseLimit(args, DefaultRecommendLimit)
	if err != nil {
		return nil, err
	}

	results, err := s.searcher.Recommend(ctx, category, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "recommendation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"category":        category,
		"recommendations": results,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetTrending handles the get_trending tool invocation
func (s *Server) handleGetTrending(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	category, err := optionalCategory(args)
	if err != nil {
		return nil, err
	}

	items := s.searcher.Trending(ctx, category)
	response := map[string]interface{}{
		"enabled": s.trending != nil,
		"count":   len(items),
		"items":   items,
	}
	if s.trending != nil {
		if fetched := s.trending.FetchedAt(); !fetched.IsZero() {
			response["fetched_at"] = fetched.Format(time.RFC3339)
		}
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleImportCatalog handles the import_catalog tool invocation
func (s *Server) handleImportCatalog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		code := ErrorCodeInvalidParams
		if errors.Is(err, ErrPathNotFound) || errors.Is(err, ErrNoCatalogFiles) {
			code = ErrorCodePathNotFound
		}
		return nil, newMCPError(code, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	stats, err := s.Import(ctx, path, getBoolDefault(args, "force", false))
	if errors.Is(err, importer.ErrImportInProgress) {
		return nil, newMCPError(ErrorCodeImportInProgress, "an import is already running", nil)
	}
	if err != nil {
		data := map[string]interface{}{"error": err.Error()}
		if stats != nil {
			data["files_imported"] = stats.FilesImported
			data["opportunities_imported"] = stats.OpportunitiesImported
		}
		return nil, newMCPError(ErrorCodeInternalError, "import failed", data)
	}

	response := map[string]interface{}{
		"imported":               true,
		"files_imported":         stats.FilesImported,
		"files_skipped":          stats.FilesSkipped,
		"files_failed":           stats.FilesFailed,
		"opportunities_imported": stats.OpportunitiesImported,
		"records_rejected":       stats.RecordsRejected,
		"duration_ms":            stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	catalogInfo := map[string]interface{}{
		"files_count":         status.FilesCount,
		"opportunities":       status.OpportunityCounts,
		"opportunities_total": status.Total(),
		"database_size_mb":    fmt.Sprintf("%.2f", status.DatabaseSizeMB),
	}
	if !status.LastImportedAt.IsZero() {
		catalogInfo["last_imported_at"] = status.LastImportedAt.Format(time.RFC3339)
	}

	trending := map[string]interface{}{"enabled": s.trending != nil}
	if s.trending != nil {
		if fetched, err := s.trending.Status(); err == nil && !fetched.IsZero() {
			trending["last_success_at"] = fetched.Format(time.RFC3339)
		}
	}

	response := map[string]interface{}{
		"catalog": catalogInfo,
		"state": map[string]interface{}{
			"keys":        status.StateKeys,
			"bytes":       status.StateBytes,
			"quota_bytes": status.QuotaBytes,
		},
		"search": map[string]interface{}{
			"cached_queries": s.searcher.CacheSize(),
			"import_running": s.importer.Running(),
		},
		"trending": trending,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// searchResponseMap shapes a search response for tool output
func searchResponseMap(resp *searcher.SearchResponse) map[string]interface{} {
	return map[string]interface{}{
		"category":      resp.Category,
		"query":         resp.Query,
		"results":       resp.Results,
		"returned":      len(resp.Results),
		"total_results": resp.TotalResults,
		"cache_hit":     resp.CacheHit,
		"unscored":      resp.Unscored,
		"duration_ms":   resp.Duration.Milliseconds(),
	}
}

// arguments returns the request's argument map. Tools without required
// parameters may be called with no arguments at all.
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

func requireCategory(args map[string]interface{}) (types.Category, error) {
	raw, ok := args["category"].(string)
	if !ok || raw == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "category parameter is required", map[string]interface{}{
			"param":  "category",
			"reason": "missing or empty",
		})
	}
	return parseCategory(raw)
}

func optionalCategory(args map[string]interface{}) (types.Category, error) {
	raw := getStringDefault(args, "category", "")
	if raw == "" {
		return "", nil
	}
	return parseCategory(raw)
}

func parseCategory(raw string) (types.Category, error) {
	category, err := types.ParseCategory(raw)
	if err != nil {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid category", map[string]interface{}{
			"param":   "category",
			"value":   raw,
			"allowed": types.AllCategories,
		})
	}
	return category, nil
}

func parseFilters(args map[string]interface{}) (types.Filters, error) {
	raw, present := args["filters"]
	if !present || raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "filters must be an object", map[string]interface{}{
			"param": "filters",
		})
	}
	filters, err := types.ParseFilters(m)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid filters", map[string]interface{}{
			"param":  "filters",
			"reason": err.Error(),
		})
	}
	return filters, nil
}

func parseLimit(args map[string]interface{}, def int) (int, error) {
	limit := getIntDefault(args, "limit", def)
	if limit < 0 || limit > MaxLimit {
		return 0, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 0 and %d", MaxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	return limit, nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that path is an absolute, readable catalog directory or JSON file
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		if !strings.EqualFold(filepath.Ext(path), ".json") {
			return ErrNoCatalogFiles
		}
		return nil
	}

	if _, err := os.ReadDir(path); err != nil {
		return ErrPathNotReadable
	}

	hasCatalog := false
	_ = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".json") {
			hasCatalog = true
			return filepath.SkipAll
		}
		return nil
	})
	if !hasCatalog {
		return ErrNoCatalogFiles
	}
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNoCatalogFiles  = errors.New("path does not contain JSON catalog files")
)
