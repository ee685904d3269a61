// Package mcp implements the Model Context Protocol (MCP) server for EduPortal search.
//
// The server exposes the search engine to MCP clients as tools:
//   - search_opportunities: Rank one category against a query
//   - search_all: Run one query against every category
//   - explain_score: Show the per-signal breakdown of one opportunity's score
//   - suggest: Complete a partially typed query
//   - record_interaction: Record a view, click, filter or search interaction
//   - get_analytics: Summarize recorded activity
//   - get_recommendations: Rank a category by engagement
//   - get_trending: Fetch the remote trending list
//   - import_catalog: Import opportunity JSON files
//   - get_status: Report catalog, state and cache statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout carries protocol messages only; logs go to stderr.
//
// # Basic Usage
//
//	eduportal serve
//
// # Tool: search_opportunities
//
//	Request:
//	{
//	  "name": "search_opportunities",
//	  "arguments": {
//	    "category": "scholarships",
//	    "query": "nsp",
//	    "filters": {"source": "Government of India"},
//	    "limit": 10
//	  }
//	}
//
//	Response:
//	{
//	  "category": "scholarships",
//	  "query": "nsp",
//	  "results": [{"name": "National Scholarship Portal (NSP)", "score": 186, "rank": 1, ...}],
//	  "returned": 1,
//	  "total_results": 1,
//	  "cache_hit": false,
//	  "unscored": false,
//	  "duration_ms": 0
//	}
//
// A blank query returns the category listing in catalog order with "unscored": true.
// Unfiltered queries are cached per category; "skip_cache" forces a fresh ranking.
//
// # Tool: record_interaction
//
// Interactions personalize later rankings and recommendations:
//
//	{"type": "view", "category": "hackathons", "item_id": "https://www.sih.gov.in"}
//	{"type": "click", "category": "hackathons", "item_id": "https://www.sih.gov.in", "query": "sih", "position": 1}
//	{"type": "filter", "category": "scholarships", "filter_name": "source", "filter_value": "AICTE"}
//
// # Tool: import_catalog
//
//	{"path": "/data/catalog", "force": false}
//
// Files are JSON arrays of records, or objects keyed by category. A file named after a
// category (e.g. hackathons.json) supplies the category for records that omit it.
// Unchanged files are skipped unless "force" is set. Any import that commits a file clears the
// result caches.
//
// # Error Handling
//
// Errors are returned as MCPError values with JSON-RPC codes:
//
//	-32602  Invalid parameters (unknown category, bad filter, limit out of range)
//	-32603  Internal error (storage failure)
//	-32001  Import path missing or without catalog files
//	-32002  Another import is already running
//	-32003  No opportunity with the requested id
//
// Searches themselves never fail on data: an empty catalog or an unavailable trending
// feed yields an empty result.
package mcp
