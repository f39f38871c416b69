package services

import (
	"context"

	"github.com/pse-app/pse-sub001/internal/core/domain"
)

// LedgerReaderSvc defines read operations on the ledger
type LedgerReaderSvc interface {
	// GetTransactions returns every transaction of an existing group, oldest first.
	GetTransactions(ctx context.Context, groupID string) ([]domain.Transaction, error)
}

// LedgerWriterSvc defines write operations on the ledger
type LedgerWriterSvc interface {
	// PostTransactions validates the batch and persists it atomically with fresh IDs.
	PostTransactions(ctx context.Context, txns []domain.Transaction) error
}

// BalanceSvc defines balance aggregation
type BalanceSvc interface {
	// GetBalances returns the balance of every membership among users x groups.
	GetBalances(ctx context.Context, userIDs, groupIDs []string) (domain.Balances, error)
}

// LedgerSvcFacade combines all ledger-related service interfaces
// This is a facade for clients that need access to all operations
type LedgerSvcFacade interface {
	LedgerReaderSvc
	LedgerWriterSvc
	BalanceSvc
}
