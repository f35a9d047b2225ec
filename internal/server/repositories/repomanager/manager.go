package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/qrbind/internal/dbx"
	"github.com/dmitrijs2005/qrbind/internal/server/repositories/originals"
	"github.com/dmitrijs2005/qrbind/internal/server/repositories/replicas"
)

// RepositoryManager vends repositories bound to a DBTX so that services can
// run several of them inside one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Originals(db dbx.DBTX) originals.Repository
	Replicas(db dbx.DBTX) replicas.Repository
}
