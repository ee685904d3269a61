package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/eduportal/eduportal-search/internal/logger"
	"github.com/eduportal/eduportal-search/internal/storage"
	"github.com/eduportal/eduportal-search/pkg/types"
)

// Source yields opportunities for one category
type Source interface {
	Name() string
	Opportunities(ctx context.Context, category types.Category) ([]types.Opportunity, error)
}

// Catalog merges sources into deduplicated candidate sets
type Catalog struct {
	sources []Source
	logger  *zap.Logger
}

// New creates a Catalog reading sources in order. Earlier sources win on duplicates.
func New(log *zap.Logger, sources ...Source) *Catalog {
	return &Catalog{sources: sources, logger: logger.OrNop(log)}
}

// GetCategory returns the merged candidate set for category in source order. Entries
// without an id get their dedup key as id.
func (c *Catalog) GetCategory(ctx context.Context, category types.Category) []types.Opportunity {
	merged := make([]types.Opportunity, 0)
	seen := make(map[string]struct{})

	for _, src := range c.sources {
		opps, err := src.Opportunities(ctx, category)
		if err != nil {
			c.logger.Warn("catalog source unavailable",
				zap.String("source", src.Name()),
				zap.String("category", string(category)),
				zap.Error(err))
			continue
		}
		for _, opp := range opps {
			key := opp.Key()
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			opp = opp.Clone()
			if opp.ID == "" {
				opp.ID = key
			}
			if opp.Category == "" {
				opp.Category = category
			}
			merged = append(merged, opp)
		}
	}
	return merged
}

// StorageSource reads imported opportunities from storage
type StorageSource struct {
	store storage.Storage
}

// NewStorageSource wraps store as a catalog source
func NewStorageSource(store storage.Storage) *StorageSource {
	return &StorageSource{store: store}
}

func (s *StorageSource) Name() string { return "storage" }

func (s *StorageSource) Opportunities(ctx context.Context, category types.Category) ([]types.Opportunity, error) {
	rows, err := s.store.ListOpportunities(ctx, string(category))
	if err != nil {
		return nil, err
	}
	opps := make([]types.Opportunity, 0, len(rows))
	for _, row := range rows {
		opps = append(opps, row.ToTypesOpportunity())
	}
	return opps, nil
}

// StaticSource serves a fixed list, filtered by category
type StaticSource struct {
	name string
	opps []types.Opportunity
}

// NewStaticSource creates a source over opps
func NewStaticSource(name string, opps []types.Opportunity) *StaticSource {
	return &StaticSource{name: name, opps: opps}
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) Opportunities(ctx context.Context, category types.Category) ([]types.Opportunity, error) {
	out := make([]types.Opportunity, 0)
	for _, opp := range s.opps {
		if opp.Category == category {
			out = append(out, opp)
		}
	}
	return out, nil
}
