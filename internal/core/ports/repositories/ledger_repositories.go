package repositories

import (
	"context"

	"github.com/pse-app/pse-sub001/internal/core/domain"
)

// MembershipOracle answers existence and membership questions about entities owned by
// the group/user subsystem.
type MembershipOracle interface {
	// ExistingUsers returns the subset of ids that name existing users.
	ExistingUsers(ctx context.Context, ids []string) (map[string]struct{}, error)

	// ExistingGroups returns the subset of ids that name existing groups.
	ExistingGroups(ctx context.Context, ids []string) (map[string]struct{}, error)

	// Memberships returns every current membership among userIDs x groupIDs.
	Memberships(ctx context.Context, userIDs, groupIDs []string) ([]domain.Membership, error)
}

// TransactionReader defines read operations for ledger transactions
type TransactionReader interface {
	// FindTransactionsByGroupID returns all transactions of a group ordered by timestamp,
	// ties broken by insertion order. It does not check that the group exists.
	FindTransactionsByGroupID(ctx context.Context, groupID string) ([]domain.Transaction, error)
}

// BalanceReader defines balance aggregation over balance-change rows
type BalanceReader interface {
	// SumBalances returns the summed balance of every membership among userIDs x groupIDs.
	// Memberships without balance changes map to zero; non-memberships are absent.
	SumBalances(ctx context.Context, userIDs, groupIDs []string) (domain.Balances, error)
}

// TransactionWriter defines write operations for ledger transactions
type TransactionWriter interface {
	// InsertTransactions persists every transaction and its balance-change rows.
	// Transaction IDs must already be assigned.
	InsertTransactions(ctx context.Context, txns []domain.Transaction) error
}

// LedgerReadTx is the view of the ledger available inside a read-only unit of work.
type LedgerReadTx interface {
	MembershipOracle
	TransactionReader
	BalanceReader
}

// LedgerTx is the view of the ledger available inside a read-write unit of work.
type LedgerTx interface {
	LedgerReadTx
	TransactionWriter
}

// LedgerRepositoryFacade combines the ledger read path on the pool with unit-of-work support
type LedgerRepositoryFacade interface {
	MembershipOracle
	TransactionReader
	BalanceReader
	TransactionManager
}
