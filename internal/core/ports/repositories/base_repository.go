package repositories

import (
	"context"
)

// TransactionManager runs a unit of work inside one storage transaction.
// The callback's error rolls the transaction back; a nil return commits it.
type TransactionManager interface {
	// RunInTx opens a read-write transaction. Reads through the LedgerTx lock the
	// users, groups and memberships they observe until the transaction ends.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error

	// RunInReadTx opens a read-only transaction that sees one consistent snapshot.
	RunInReadTx(ctx context.Context, fn func(ctx context.Context, tx LedgerReadTx) error) error
}
