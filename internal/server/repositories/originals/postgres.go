// Package originals stores the scarce pool of one-time destinations.
package originals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/qrbind/internal/common"
	"github.com/dmitrijs2005/qrbind/internal/dbx"
	"github.com/dmitrijs2005/qrbind/internal/server/models"
)

const selectColumns = `SELECT id, brand_id, type_id, url, scanned, scanned_at, replica_id, created_at
		 FROM originals`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Original, error) {
	query := selectColumns + `
		 WHERE id = $1
		 `
	return scanOriginal(r.db.QueryRowContext(ctx, query, id))
}

// NextAvailable locks the oldest unconsumed original of the category.
// Rows already locked by concurrent binders are skipped, so a contender
// moves on to the next candidate instead of waiting for one it would lose.
// When every free row is locked it waits for them, since a holder that
// rolls back leaves its candidate free. Returns common.ErrorNotFound only
// when nothing is left.
func (r *PostgresRepository) NextAvailable(ctx context.Context, c models.Category) (*models.Original, error) {
	query := selectColumns + `
		 WHERE brand_id = $1 AND type_id = $2 AND NOT scanned
		 ORDER BY created_at, id
		 LIMIT 1
		 FOR UPDATE SKIP LOCKED
		 `
	o, err := scanOriginal(r.db.QueryRowContext(ctx, query, c.BrandID, c.TypeID))
	if !errors.Is(err, common.ErrorNotFound) {
		return o, err
	}

	query = selectColumns + `
		 WHERE brand_id = $1 AND type_id = $2 AND NOT scanned
		 ORDER BY created_at, id
		 LIMIT 1
		 FOR UPDATE
		 `
	return scanOriginal(r.db.QueryRowContext(ctx, query, c.BrandID, c.TypeID))
}

// MarkConsumed flips an unconsumed original to consumed and records the
// back-reference. Zero rows affected yields common.ErrBindConflict.
func (r *PostgresRepository) MarkConsumed(ctx context.Context, originalID, replicaID string, at time.Time) error {
	query :=
		`UPDATE originals
		 SET scanned = true, scanned_at = $3, replica_id = $2, updated_at = now()
		 WHERE id = $1 AND NOT scanned
		 `
	res, err := r.db.ExecContext(ctx, query, originalID, replicaID, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrBindConflict
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// Stats counts both pools in a single round trip.
func (r *PostgresRepository) Stats(ctx context.Context) (*models.Stats, error) {
	query :=
		`SELECT
		   (SELECT count(*) FROM brands),
		   (SELECT count(*) FROM types),
		   (SELECT count(*) FROM originals),
		   (SELECT count(*) FROM originals WHERE NOT scanned),
		   (SELECT count(*) FROM replicas),
		   (SELECT count(*) FROM replicas WHERE scanned)
		 `
	s := &models.Stats{}
	err := r.db.QueryRowContext(ctx, query).
		Scan(&s.Brands, &s.Types, &s.Originals, &s.FreeOriginals, &s.Replicas, &s.ScannedReplicas)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) CategoryStats(ctx context.Context, c models.Category) (int, int, error) {
	query :=
		`SELECT count(*), count(*) FILTER (WHERE NOT scanned)
		 FROM originals
		 WHERE brand_id = $1 AND type_id = $2
		 `
	var total, free int
	if err := r.db.QueryRowContext(ctx, query, c.BrandID, c.TypeID).Scan(&total, &free); err != nil {
		return 0, 0, fmt.Errorf("db error: %w", err)
	}
	return total, free, nil
}

func scanOriginal(row *sql.Row) (*models.Original, error) {
	o := &models.Original{}
	err := row.Scan(&o.ID, &o.Category.BrandID, &o.Category.TypeID, &o.URL,
		&o.Scanned, &o.ScannedAt, &o.ReplicaID, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return o, nil
}
