// Package services contains server-side business logic: the binder that
// allocates originals to replicas, the resolver that turns tokens into
// destinations, and read-only inventory statistics.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/qrbind/internal/common"
	"github.com/dmitrijs2005/qrbind/internal/dbx"
	"github.com/dmitrijs2005/qrbind/internal/logging"
	"github.com/dmitrijs2005/qrbind/internal/server/config"
	"github.com/dmitrijs2005/qrbind/internal/server/models"
	"github.com/dmitrijs2005/qrbind/internal/server/repositories/repomanager"
)

// maxBindAttempts bounds how many candidates one bind tries when a
// conditional update reports that the candidate was taken meanwhile.
const maxBindAttempts = 3

// BindResult describes the original a replica is bound to.
type BindResult struct {
	ReplicaID   string
	OriginalID  string
	Destination string
	// FirstBind is false when the replica turned out to be bound already,
	// e.g. a concurrent first scan won the row lock.
	FirstBind bool
	BoundAt   time.Time
}

// BindingService performs the one state mutation in a replica's life.
type BindingService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	timeout     time.Duration
	now         func() time.Time
}

func NewBindingService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, l logging.Logger) *BindingService {
	return &BindingService{
		db:          db,
		repomanager: m,
		logger:      l.With("module", "binder"),
		timeout:     cfg.BindTimeout,
		now:         time.Now,
	}
}

// Bind allocates the oldest unconsumed original of the replica's category
// to the replica. Both rows change in one transaction or not at all.
//
// The replica row is locked first, so concurrent binds of the same replica
// serialize and the later ones return the winner's original. Candidates are
// taken with SKIP LOCKED, so binds of different replicas in one category
// never receive the same original.
//
// Returned errors: common.ErrTokenNotFound, common.ErrCategoryExhausted,
// common.ErrLinkedOriginalMissing, or anything else wrapped with
// common.ErrStoreUnavailable.
func (s *BindingService) Bind(ctx context.Context, replicaID string, category models.Category) (*BindResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var result *BindResult

	err := dbx.WithTx(ctx, s.db, dbx.ReadCommitted(), func(ctx context.Context, tx dbx.DBTX) error {
		replicaRepo := s.repomanager.Replicas(tx)
		originalRepo := s.repomanager.Originals(tx)

		replica, err := replicaRepo.GetByIDForUpdate(ctx, replicaID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrTokenNotFound
			}
			return err
		}

		if replica.Category != category {
			s.logger.Warn(ctx, "category differs from stored replica, using stored",
				"replica_id", replica.ID, "requested", category.String(), "stored", replica.Category.String())
		}

		if replica.Bound() {
			original, err := originalRepo.GetByID(ctx, *replica.BoundOriginalID)
			if err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return common.ErrLinkedOriginalMissing
				}
				return err
			}
			result = &BindResult{
				ReplicaID:   replica.ID,
				OriginalID:  original.ID,
				Destination: original.URL,
				FirstBind:   false,
			}
			if replica.ScannedAt != nil {
				result.BoundAt = *replica.ScannedAt
			}
			return nil
		}

		for attempt := 1; attempt <= maxBindAttempts; attempt++ {
			original, err := originalRepo.NextAvailable(ctx, replica.Category)
			if err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return common.ErrCategoryExhausted
				}
				return err
			}

			now := s.now().UTC()

			err = originalRepo.MarkConsumed(ctx, original.ID, replica.ID, now)
			if errors.Is(err, common.ErrBindConflict) {
				s.logger.Debug(ctx, "candidate taken, retrying", "original_id", original.ID, "attempt", attempt)
				continue
			}
			if err != nil {
				return err
			}

			if err := replicaRepo.MarkBound(ctx, replica.ID, original.ID, now); err != nil {
				return err
			}

			result = &BindResult{
				ReplicaID:   replica.ID,
				OriginalID:  original.ID,
				Destination: original.URL,
				FirstBind:   true,
				BoundAt:     now,
			}
			return nil
		}

		return fmt.Errorf("no candidate after %d attempts: %w", maxBindAttempts, common.ErrBindConflict)
	})

	if err != nil {
		return nil, classifyBindError(err)
	}
	return result, nil
}

func classifyBindError(err error) error {
	switch {
	case errors.Is(err, common.ErrTokenNotFound),
		errors.Is(err, common.ErrCategoryExhausted),
		errors.Is(err, common.ErrLinkedOriginalMissing):
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
}
