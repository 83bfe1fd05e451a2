package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/flightkeeper/internal/dbx"
	"github.com/dmitrijs2005/flightkeeper/internal/server/repositories/emailrecords"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	EmailRecords(db dbx.DBTX) emailrecords.Repository
}
