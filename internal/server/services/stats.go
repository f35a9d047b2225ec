package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/qrbind/internal/common"
	"github.com/dmitrijs2005/qrbind/internal/server/models"
	"github.com/dmitrijs2005/qrbind/internal/server/repositories/repomanager"
)

// StatsService exposes pool counts for admin tooling. Every figure comes
// from committed rows only, so a bind is either fully counted or not at all.
type StatsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewStatsService(db *sql.DB, m repomanager.RepositoryManager) *StatsService {
	return &StatsService{db: db, repomanager: m}
}

func (s *StatsService) Overview(ctx context.Context) (*models.Stats, error) {
	st, err := s.repomanager.Originals(s.db).Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}
	return st, nil
}

// Category returns the inventory of one category. An unknown category is
// reported as common.ErrorNotFound.
func (s *StatsService) Category(ctx context.Context, c models.Category) (*models.CategoryStats, error) {
	originals, free, err := s.repomanager.Originals(s.db).CategoryStats(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}
	replicas, scanned, err := s.repomanager.Replicas(s.db).CountByCategory(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}
	if originals == 0 && replicas == 0 {
		return nil, fmt.Errorf("category %s: %w", c, common.ErrorNotFound)
	}

	return &models.CategoryStats{
		BrandID:   c.BrandID,
		TypeID:    c.TypeID,
		Originals: originals,
		Free:      free,
		Replicas:  replicas,
		Scanned:   scanned,
	}, nil
}
