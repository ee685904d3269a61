package tracker

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/eduportal/eduportal-search/pkg/types"
)

// Kind identifies an interaction
type Kind string

const (
	KindSearch Kind = "search"
	KindView   Kind = "view"
	KindClick  Kind = "click"
	KindFilter Kind = "filter"
)

// Event is one recorded interaction. Which fields are meaningful depends on Kind:
// search uses Query, Keywords and Filters; view uses ItemID; click uses ItemID,
// Query and Position; filter uses FilterName and FilterValue.
type Event struct {
	Kind        Kind           `json:"type" validate:"required,oneof=search view click filter"`
	Category    types.Category `json:"category" validate:"required"`
	Query       string         `json:"query,omitempty"`
	Keywords    []string       `json:"keywords,omitempty"`
	Filters     types.Filters  `json:"filters,omitempty"`
	ItemID      string         `json:"itemId,omitempty" validate:"required_if=Kind view,required_if=Kind click"`
	Position    int            `json:"position,omitempty" validate:"gte=0"`
	FilterName  string         `json:"filterName,omitempty" validate:"required_if=Kind filter"`
	FilterValue string         `json:"filterValue,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

var validate = validator.New()

// Validate checks the event is well formed for its kind
func (e *Event) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("invalid %s event: %w", e.Kind, err)
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidCategory, e.Category)
	}
	if e.Filters != nil {
		if err := e.Filters.Validate(); err != nil {
			return err
		}
	}
	if e.Kind == KindFilter {
		if err := (types.Filters{types.FilterField(e.FilterName): e.FilterValue}).Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SearchEvent builds a search interaction
func SearchEvent(category types.Category, query string, keywords []string, filters types.Filters) Event {
	return Event{Kind: KindSearch, Category: category, Query: query, Keywords: keywords, Filters: filters}
}

// ViewEvent builds a view interaction
func ViewEvent(category types.Category, itemID string) Event {
	return Event{Kind: KindView, Category: category, ItemID: itemID}
}

// ClickEvent builds a click interaction at a 1-based result position
func ClickEvent(category types.Category, itemID, query string, position int) Event {
	return Event{Kind: KindClick, Category: category, ItemID: itemID, Query: query, Position: position}
}

// FilterEvent builds a filter interaction
func FilterEvent(category types.Category, field types.FilterField, value string) Event {
	return Event{Kind: KindFilter, Category: category, FilterName: string(field), FilterValue: value}
}
