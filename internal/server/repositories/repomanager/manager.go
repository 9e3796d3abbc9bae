package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/featureboard/internal/dbx"
	"github.com/dmitrijs2005/featureboard/internal/server/repositories/activities"
	"github.com/dmitrijs2005/featureboard/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/featureboard/internal/server/repositories/requests"
	"github.com/dmitrijs2005/featureboard/internal/server/repositories/users"
	"github.com/dmitrijs2005/featureboard/internal/server/repositories/votes"
)

// RepositoryManager hands out repositories bound to a DBTX. Passing the *sql.Tx
// from dbx.WithTx makes every repository share one unit of work.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Requests(db dbx.DBTX) requests.Repository
	Votes(db dbx.DBTX) votes.Repository
	Activities(db dbx.DBTX) activities.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
