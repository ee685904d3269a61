// Package types provides shared type definitions for the EduPortal search engine.
//
// # Core Types
//
// Opportunity is a catalog entry owned by the external catalog and read-only to the
// search core:
//
//	opp := types.Opportunity{
//	    Name:        "National Scholarship Portal (NSP)",
//	    Description: "Central scholarships for SC, ST, OBC and minority students",
//	    Category:    types.CategoryScholarships,
//	    Priority:    types.IntPtr(types.PriorityOfficial),
//	    URL:         "https://scholarships.gov.in",
//	}
//
// Optional fields (Priority, DatePosted) are pointers. Scoring rules branch on presence,
// so a priority of 0 is never confused with a missing priority.
//
// # Filters
//
// Filters map a closed set of fields to expected values and are validated at the boundary:
//
//	filters := types.Filters{types.FilterSource: "Government of India"}
//	if err := filters.Validate(); err != nil {
//	    return err
//	}
//
// # Search Results
//
// ScoredResult embeds the opportunity and adds the raw additive score and its 1-based rank.
// Scores are not normalized; percentage display is a presentation concern.
package types
