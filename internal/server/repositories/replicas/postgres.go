// Package replicas stores issued replica tokens and their forward
// references to originals.
package replicas

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

const selectColumns = `SELECT id, brand_id, type_id, token, scanned, scanned_at, bound_original_id, batch_id, created_at
		 FROM replicas`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByToken looks a replica up by its public token without locking.
func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*models.Replica, error) {
	query := selectColumns + `
		 WHERE token = $1
		 `
	return scanReplica(r.db.QueryRowContext(ctx, query, token))
}

// GetByIDForUpdate reads the replica and holds its row lock until the
// surrounding transaction ends. Concurrent first scans of the same replica
// queue here.
func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Replica, error) {
	query := selectColumns + `
		 WHERE id = $1
		 FOR UPDATE
		 `
	return scanReplica(r.db.QueryRowContext(ctx, query, id))
}

// MarkBound records the forward reference. It only touches an unbound row;
// zero rows affected means someone else bound it first.
func (r *PostgresRepository) MarkBound(ctx context.Context, replicaID, originalID string, at time.Time) error {
	query :=
		`UPDATE replicas
		 SET scanned = true, scanned_at = $3, bound_original_id = $2, updated_at = now()
		 WHERE id = $1 AND bound_original_id IS NULL
		 `
	res, err := r.db.ExecContext(ctx, query, replicaID, originalID, at)
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

func (r *PostgresRepository) CountByCategory(ctx context.Context, c models.Category) (int, int, error) {
	query :=
		`SELECT count(*), count(*) FILTER (WHERE scanned)
		 FROM replicas
		 WHERE brand_id = $1 AND type_id = $2
		 `
	var total, scanned int
	if err := r.db.QueryRowContext(ctx, query, c.BrandID, c.TypeID).Scan(&total, &scanned); err != nil {
		return 0, 0, fmt.Errorf("db error: %w", err)
	}
	return total, scanned, nil
}

func scanReplica(row *sql.Row) (*models.Replica, error) {
	rep := &models.Replica{}
	err := row.Scan(&rep.ID, &rep.Category.BrandID, &rep.Category.TypeID, &rep.Token,
		&rep.Scanned, &rep.ScannedAt, &rep.BoundOriginalID, &rep.BatchID, &rep.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rep, nil
}
