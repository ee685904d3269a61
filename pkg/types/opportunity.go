package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category identifies one of the four opportunity listings
type Category string

const (
	CategoryScholarships Category = "scholarships"
	CategoryHackathons   Category = "hackathons"
	CategoryWorkshops    Category = "workshops"
	CategoryInternships  Category = "internships"
)

// AllCategories lists every category in display order
var AllCategories = []Category{
	CategoryScholarships,
	CategoryHackathons,
	CategoryWorkshops,
	CategoryInternships,
}

// ParseCategory converts a user supplied string into a Category
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// PriorityOfficial marks an opportunity published by an official, high-trust source
const PriorityOfficial = 1

// Opportunity is a catalog entry: a scholarship, hackathon, workshop or internship listing.
// Optional fields are pointers so that presence is checked explicitly; a priority of 0
// is a value, not an absence.
type Opportunity struct {
	// Identification
	ID  string `json:"id,omitempty"`
	URL string `json:"url,omitempty"`

	// Content
	Name        string `json:"name"`
	Description string `json:"description"`
	Source      string `json:"source,omitempty"` // Issuing organization, empty if unknown

	// Classification
	Category   Category   `json:"category"`
	DatePosted *time.Time `json:"datePosted,omitempty"`
	Priority   *int       `json:"priority,omitempty"`

	// Availability annotation, e.g. the states an opportunity is open to
	States []string `json:"statesList,omitempty"`
}

// Key returns the deduplication key: the URL, or the name when the URL is absent
func (o *Opportunity) Key() string {
	if o.URL != "" {
		return o.URL
	}
	return o.Name
}

// HasPriority reports whether a priority value is present
func (o *Opportunity) HasPriority() bool {
	return o.Priority != nil
}

// IsOfficial reports whether the opportunity carries the official priority flag
func (o *Opportunity) IsOfficial() bool {
	return o.Priority != nil && *o.Priority == PriorityOfficial
}

// FullText joins the searchable text fields: name, description and source
func (o *Opportunity) FullText() string {
	return o.Name + " " + o.Description + " " + o.Source
}

// Field returns the string form of a filterable field and whether it has a value
func (o *Opportunity) Field(f FilterField) (string, bool) {
	switch f {
	case FilterCategory:
		return string(o.Category), o.Category != ""
	case FilterSource:
		return o.Source, o.Source != ""
	case FilterPriority:
		if o.Priority == nil {
			return "", false
		}
		return strconv.Itoa(*o.Priority), true
	case FilterID:
		return o.ID, o.ID != ""
	case FilterURL:
		return o.URL, o.URL != ""
	case FilterName:
		return o.Name, o.Name != ""
	}
	return "", false
}

// Validate checks that the opportunity can be stored and identified
func (o *Opportunity) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return ErrEmptyName
	}
	if o.Key() == "" {
		return ErrMissingIdentity
	}
	if !o.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, o.Category)
	}
	return nil
}

// Clone returns a copy that shares no mutable state with o
func (o Opportunity) Clone() Opportunity {
	if o.DatePosted != nil {
		d := *o.DatePosted
		o.DatePosted = &d
	}
	if o.Priority != nil {
		p := *o.Priority
		o.Priority = &p
	}
	if o.States != nil {
		o.States = append([]string(nil), o.States...)
	}
	return o
}

// IntPtr returns a pointer to v, for building optional priorities
func IntPtr(v int) *int {
	return &v
}

// TimePtr returns a pointer to t, for building optional dates
func TimePtr(t time.Time) *time.Time {
	return &t
}
