// Package query turns a raw search string into the values the scorer works with.
//
// The pipeline has three pure steps:
//
//	normalized := query.Normalize("  Scholership for Engg students ")
//	// "scholarship for engineering students"
//
//	expanded := query.Expand(normalized)
//	// "scholarship for engineering students grant financial aid fellowship ..."
//
//	terms := query.ExtractTerms(expanded)
//	// ["scholarship", "engineering", "students", ..., "scholarship engineering", ...]
//
// Parse runs all three and keeps the pre-expansion string separate from the expanded one.
// Exact-phrase scoring must use Original; term extraction uses Expanded.
//
// All tables are static and iterated in a fixed order, so the same raw query always
// yields the same output.
package query
