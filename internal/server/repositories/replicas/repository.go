package replicas

import (
	"context"
	"time"

	"github.com/dmitrijs2005/qrbind/internal/server/models"
)

type Repository interface {
	GetByToken(ctx context.Context, token string) (*models.Replica, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Replica, error)
	MarkBound(ctx context.Context, replicaID, originalID string, at time.Time) error
	CountByCategory(ctx context.Context, c models.Category) (total int, scanned int, err error)
}
