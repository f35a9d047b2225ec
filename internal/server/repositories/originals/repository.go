package originals

import (
	"context"
	"time"

	"github.com/dmitrijs2005/qrbind/internal/server/models"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*models.Original, error)
	NextAvailable(ctx context.Context, c models.Category) (*models.Original, error)
	MarkConsumed(ctx context.Context, originalID, replicaID string, at time.Time) error
	Stats(ctx context.Context) (*models.Stats, error)
	CategoryStats(ctx context.Context, c models.Category) (total int, free int, err error)
}
