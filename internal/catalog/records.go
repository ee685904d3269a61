package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eduportal/eduportal-search/pkg/types"
)

// Record is the JSON shape of a catalog entry in import files and feeds
type Record struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Source      string   `json:"source"`
	Category    string   `json:"category"`
	DatePosted  string   `json:"datePosted"`
	Priority    *int     `json:"priority"`
	URL         string   `json:"url"`
	States      []string `json:"statesList"`
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ToOpportunity converts the record, using fallback when it names no category
func (r Record) ToOpportunity(fallback types.Category) (types.Opportunity, error) {
	opp := types.Opportunity{
		ID:          strings.TrimSpace(r.ID),
		Name:        strings.TrimSpace(r.Name),
		Description: strings.TrimSpace(r.Description),
		Source:      strings.TrimSpace(r.Source),
		URL:         strings.TrimSpace(r.URL),
		Priority:    r.Priority,
		States:      r.States,
		Category:    fallback,
	}
	if r.Category != "" {
		c, err := types.ParseCategory(r.Category)
		if err != nil {
			return types.Opportunity{}, err
		}
		opp.Category = c
	}
	if r.DatePosted != "" {
		posted, err := parseDate(r.DatePosted)
		if err != nil {
			return types.Opportunity{}, err
		}
		opp.DatePosted = &posted
	}
	if err := opp.Validate(); err != nil {
		return types.Opportunity{}, err
	}
	return opp, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

type recordGroup struct {
	category types.Category
	records  []Record
}

// DecodeRecords parses catalog JSON. Two shapes are accepted: an array of records,
// or an object mapping category names to arrays. Records that fail validation are
// returned as a joined error alongside the valid ones.
func DecodeRecords(data []byte, fallback types.Category) ([]types.Opportunity, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty catalog document")
	}

	var groups []recordGroup
	switch trimmed[0] {
	case '[':
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("failed to decode records: %w", err)
		}
		groups = append(groups, recordGroup{fallback, records})
	case '{':
		var byCategory map[string][]Record
		if err := json.Unmarshal(trimmed, &byCategory); err != nil {
			return nil, fmt.Errorf("failed to decode records: %w", err)
		}
		parsed := make(map[types.Category][]Record, len(byCategory))
		for name, records := range byCategory {
			c, err := types.ParseCategory(name)
			if err != nil {
				return nil, err
			}
			parsed[c] = append(parsed[c], records...)
		}
		// Fixed category order keeps insertion order deterministic
		for _, c := range types.AllCategories {
			if records, ok := parsed[c]; ok {
				groups = append(groups, recordGroup{c, records})
			}
		}
	default:
		return nil, errors.New("catalog document must be a JSON array or object")
	}

	opps := make([]types.Opportunity, 0)
	var errs []error
	for _, g := range groups {
		for i, r := range g.records {
			opp, err := r.ToOpportunity(g.category)
			if err != nil {
				errs = append(errs, fmt.Errorf("record %d (%s): %w", i, r.Name, err))
				continue
			}
			opps = append(opps, opp)
		}
	}
	return opps, errors.Join(errs...)
}
