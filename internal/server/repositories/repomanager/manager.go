package repomanager

import (
	"context"
	"database/sql"

	"github.com/antonpetrovs/whisperline/internal/dbx"
	"github.com/antonpetrovs/whisperline/internal/server/repositories/messages"
	"github.com/antonpetrovs/whisperline/internal/server/repositories/pairingtokens"
	"github.com/antonpetrovs/whisperline/internal/server/repositories/sessions"
	"github.com/antonpetrovs/whisperline/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to a connection or an open
// transaction, so services can compose repository calls under dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Messages(db dbx.DBTX) messages.Repository
	PairingTokens(db dbx.DBTX) pairingtokens.Repository
}
