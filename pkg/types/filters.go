package types

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

// FilterField names an opportunity field that a search can be filtered on
type FilterField string

const (
	FilterCategory FilterField = "category"
	FilterSource   FilterField = "source"
	FilterPriority FilterField = "priority"
	FilterID       FilterField = "id"
	FilterURL      FilterField = "url"
	FilterName     FilterField = "name"
)

// Filters maps known fields to the exact value a candidate must carry to earn the filter bonus
type Filters map[FilterField]string

var validate = validator.New()

// Validate checks every key against the closed set of filter fields and rejects empty values
func (f Filters) Validate() error {
	for field, value := range f {
		if err := validate.Var(string(field), "required,oneof=category source priority id url name"); err != nil {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidFilter, field)
		}
		if err := validate.Var(value, "required"); err != nil {
			return fmt.Errorf("%w: empty value for %q", ErrInvalidFilter, field)
		}
	}
	return nil
}

// Fields returns the filter keys in sorted order
func (f Filters) Fields() []FilterField {
	fields := make([]FilterField, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// ParseFilters converts loosely typed input (e.g. decoded JSON) into validated Filters
func ParseFilters(raw map[string]interface{}) (Filters, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	filters := make(Filters, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			filters[FilterField(k)] = val
		case float64:
			filters[FilterField(k)] = fmt.Sprintf("%g", val)
		case int:
			filters[FilterField(k)] = fmt.Sprintf("%d", val)
		default:
			return nil, fmt.Errorf("%w: unsupported value for %q", ErrInvalidFilter, k)
		}
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	return filters, nil
}
