package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var categoryEnum = []string{"scholarships", "hackathons", "workshops", "internships"}

func categoryProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
		"enum":        categoryEnum,
	}
}

func filtersProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Exact field values that earn a ranking bonus. Filtered searches are never cached.",
		"properties": map[string]interface{}{
			"category": map[string]interface{}{"type": "string"},
			"source":   map[string]interface{}{"type": "string"},
			"priority": map[string]interface{}{"type": "string"},
			"id":       map[string]interface{}{"type": "string"},
			"url":      map[string]interface{}{"type": "string"},
			"name":     map[string]interface{}{"type": "string"},
		},
		"additionalProperties": false,
	}
}

func limitProperty(description string, def int) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
		"default":     def,
		"minimum":     0,
		"maximum":     MaxLimit,
	}
}

// searchOpportunitiesTool returns the tool definition for search_opportunities
func searchOpportunitiesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_opportunities",
		Description: "Rank scholarships, hackathons, workshops or internships against a free-text query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"category": categoryProperty("Category to search"),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search text. Blank returns the category listing unscored.",
				},
				"filters": filtersProperty(),
				"limit":   limitProperty("Maximum number of results (0 for all)", DefaultLimit),
				"skip_cache": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, bypass the result cache",
					"default":     false,
				},
			},
			Required: []string{"category", "query"},
		},
	}
}

// searchAllTool returns the tool definition for search_all
func searchAllTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_all",
		Description: "Run one query against every category",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search text",
				},
				"filters": filtersProperty(),
				"limit":   limitProperty("Maximum results per category (0 for all)", DefaultLimit),
			},
			Required: []string{"query"},
		},
	}
}

// explainScoreTool returns the tool definition for explain_score
func explainScoreTool() mcp.Tool {
	return mcp.Tool{
		Name:        "explain_score",
		Description: "Show how each ranking signal contributed to one opportunity's score",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"category": categoryProperty("Category of the opportunity"),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search text to score against",
				},
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Opportunity id",
				},
				"filters": filtersProperty(),
			},
			Required: []string{"category", "query", "id"},
		},
	}
}

// suggestTool returns the tool definition for suggest
func suggestTool() mcp.Tool {
	return mcp.Tool{
		Name:        "suggest",
		Description: "Complete a partially typed query from catalog names, known synonyms and recent searches",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"input": map[string]interface{}{
					"type":        "string",
					"description": "Text typed so far (at least 2 characters)",
				},
				"category": categoryProperty("Restrict suggestions to one category"),
			},
			Required: []string{"input"},
		},
	}
}

// recordInteractionTool returns the tool definition for record_interaction
func recordInteractionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "record_interaction",
		Description: "Record a view, click or filter interaction to personalize later rankings",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Interaction kind",
					"enum":        []string{"search", "view", "click", "filter"},
				},
				"category": categoryProperty("Category the interaction happened in"),
				"item_id": map[string]interface{}{
					"type":        "string",
					"description": "Opportunity id (view and click)",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Query that produced the clicked result, or the search text",
				},
				"position": map[string]interface{}{
					"type":        "integer",
					"description": "1-based position of the clicked result",
					"minimum":     0,
				},
				"filter_name": map[string]interface{}{
					"type":        "string",
					"description": "Filter field (filter)",
					"enum":        []string{"category", "source", "priority", "id", "url", "name"},
				},
				"filter_value": map[string]interface{}{
					"type":        "string",
					"description": "Filter value (filter)",
				},
			},
			Required: []string{"type", "category"},
		},
	}
}

// getAnalyticsTool returns the tool definition for get_analytics
func getAnalyticsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_analytics",
		Description: "Summarize recorded search and view activity, including the most searched keywords per category",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getRecommendationsTool returns the tool definition for get_recommendations
func getRecommendationsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_recommendations",
		Description: "Rank a category by past engagement, official status and recency",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"category": categoryProperty("Category to recommend from"),
				"limit":    limitProperty("Maximum number of recommendations", DefaultRecommendLimit),
			},
			Required: []string{"category"},
		},
	}
}

// getTrendingTool returns the tool definition for get_trending
func getTrendingTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_trending",
		Description: "Fetch the remote trending list, falling back to the last good result",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"category": categoryProperty("Restrict the list to one category"),
			},
		},
	}
}

// importCatalogTool returns the tool definition for import_catalog
func importCatalogTool() mcp.Tool {
	return mcp.Tool{
		Name:        "import_catalog",
		Description: "Import opportunity JSON files from a directory or a single file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a catalog directory or JSON file",
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-import files whose content hash is unchanged",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report catalog size, stored state usage, cache size and trending feed health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
