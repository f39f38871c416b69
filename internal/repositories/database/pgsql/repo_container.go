package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/pse-app/pse-sub001/internal/core/ports/repositories"
)

// NewRepositoryProvider wires the Postgres repositories onto a shared pool.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	ledgerRepo := newPgxLedgerRepository(dbPool)
	membershipRepo := newPgxMembershipRepository(dbPool)

	return portsrepo.RepositoryProvider{
		LedgerRepo:     ledgerRepo,
		MembershipRepo: membershipRepo,
	}
}
