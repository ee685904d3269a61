package storage

import (
	"context"
	"time"

	"github.com/eduportal/eduportal-search/pkg/types"
)

// Storage defines the interface for persisting the opportunity catalog and the
// key/value state of the search engine
type Storage interface {
	// Opportunity operations
	UpsertOpportunity(ctx context.Context, opp *Opportunity) error
	ListOpportunities(ctx context.Context, category string) ([]*Opportunity, error)
	CountOpportunities(ctx context.Context, category string) (int, error)
	DeleteOpportunitiesByFile(ctx context.Context, fileID int64) error

	// Catalog file operations
	UpsertCatalogFile(ctx context.Context, file *CatalogFile) error
	GetCatalogFile(ctx context.Context, path string) (*CatalogFile, error)
	ListCatalogFiles(ctx context.Context) ([]*CatalogFile, error)

	// Key/value operations
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, key string) error

	// Status operations
	GetStatus(ctx context.Context) (*CatalogStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Opportunity represents a stored catalog entry
type Opportunity struct {
	ID          int64 // Row id; ascending ids preserve catalog insertion order
	FileID      *int64
	Category    string
	DedupKey    string // URL, or name when the URL is absent
	ExternalID  string // ID supplied by the catalog record, may be empty
	Name        string
	Description string
	Source      string
	URL         string
	DatePosted  *time.Time
	Priority    *int
	States      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CatalogFile represents an imported catalog source file
type CatalogFile struct {
	ID             int64
	Path           string
	ContentHash    [32]byte
	ModTime        time.Time
	SizeBytes      int64
	ParseError     *string // Nullable
	LastImportedAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CatalogStatus contains statistics about the stored catalog
type CatalogStatus struct {
	FilesCount        int
	OpportunityCounts map[string]int
	StateKeys         int
	StateBytes        int64
	QuotaBytes        int64
	DatabaseSizeMB    float64
	LastImportedAt    time.Time
}

// Total returns the number of opportunities across categories
func (s *CatalogStatus) Total() int {
	total := 0
	for _, n := range s.OpportunityCounts {
		total += n
	}
	return total
}

// ToTypesOpportunity converts a stored row to types.Opportunity. The id falls back to
// the dedup key when the catalog record had none.
func (o *Opportunity) ToTypesOpportunity() types.Opportunity {
	id := o.ExternalID
	if id == "" {
		id = o.DedupKey
	}
	opp := types.Opportunity{
		ID:          id,
		URL:         o.URL,
		Name:        o.Name,
		Description: o.Description,
		Source:      o.Source,
		Category:    types.Category(o.Category),
		States:      o.States,
	}
	if o.DatePosted != nil {
		opp.DatePosted = types.TimePtr(*o.DatePosted)
	}
	if o.Priority != nil {
		opp.Priority = types.IntPtr(*o.Priority)
	}
	return opp
}

// FromTypesOpportunity converts types.Opportunity to a storage row
func FromTypesOpportunity(opp types.Opportunity, fileID *int64) *Opportunity {
	row := &Opportunity{
		FileID:      fileID,
		Category:    string(opp.Category),
		DedupKey:    opp.Key(),
		ExternalID:  opp.ID,
		Name:        opp.Name,
		Description: opp.Description,
		Source:      opp.Source,
		URL:         opp.URL,
		States:      opp.States,
	}
	if opp.DatePosted != nil {
		row.DatePosted = types.TimePtr(*opp.DatePosted)
	}
	if opp.Priority != nil {
		row.Priority = types.IntPtr(*opp.Priority)
	}
	return row
}
