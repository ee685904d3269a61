package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eduportal/eduportal-search/internal/searcher"
	"github.com/eduportal/eduportal-search/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <category> <query>",
	Short: "Rank one category against a query",
	Long:  "Runs a single search against the stored catalog and prints the ranked results as JSON. Use \"all\" as the category to search every category.",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSearch,
}

var (
	searchLimit   int
	searchFilters []string
)

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 10, "Maximum number of results (0 for all)")
	searchCmd.Flags().StringSliceVarP(&searchFilters, "filter", "f", nil, "Filter as field=value, repeatable (fields: category, source, priority, id, url, name)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	filters, err := parseFilterFlags(searchFilters)
	if err != nil {
		return err
	}
	text := strings.Join(args[1:], " ")

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

	var out interface{}
	if strings.EqualFold(args[0], "all") {
		out, err = srv.Searcher().SearchAll(ctx, text, filters, searchLimit)
	} else {
		category, perr := types.ParseCategory(args[0])
		if perr != nil {
			return perr
		}
		out, err = srv.Searcher().Search(ctx, searcher.SearchRequest{
			Category: category,
			Query:    text,
			Filters:  filters,
			Limit:    searchLimit,
		})
	}
	if err != nil {
		return err
	}

	return printJSON(out)
}

// parseFilterFlags converts field=value pairs into Filters
func parseFilterFlags(pairs []string) (types.Filters, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filters := make(types.Filters, len(pairs))
	for _, pair := range pairs {
		field, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not field=value", types.ErrInvalidFilter, pair)
		}
		filters[types.FilterField(strings.TrimSpace(field))] = strings.TrimSpace(value)
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	return filters, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
