package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pse-app/pse-sub001/internal/core/domain"
	portsrepo "github.com/pse-app/pse-sub001/internal/core/ports/repositories"
	"github.com/pse-app/pse-sub001/internal/models"
	"github.com/pse-app/pse-sub001/internal/utils/accounting"
	"github.com/pse-app/pse-sub001/internal/utils/mapping"
)

// LedgerRepository stores transactions and balance changes in SQLite.
// Balances are folded in process from the exact decimal text of each row.
type LedgerRepository struct {
	BaseRepository
	ledgerQueries
}

func newLedgerRepository(db *sql.DB) portsrepo.LedgerRepositoryFacade {
	return &LedgerRepository{
		BaseRepository: BaseRepository{DB: db},
		ledgerQueries:  ledgerQueries{q: db},
	}
}

var (
	_ portsrepo.LedgerRepositoryFacade = (*LedgerRepository)(nil)
	_ portsrepo.LedgerTx               = (*ledgerQueries)(nil)
)

// RunInTx runs fn inside a BEGIN IMMEDIATE transaction, which holds the database
// write lock from the first statement until commit or rollback.
func (r *LedgerRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(tx)

	if err := fn(ctx, &ledgerQueries{q: tx}); err != nil {
		return err
	}
	return r.Commit(tx)
}

// RunInReadTx runs fn inside a deferred read-only transaction, which reads one snapshot.
func (r *LedgerRepository) RunInReadTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerReadTx) error) error {
	tx, err := r.BeginReadOnly(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(tx)

	if err := fn(ctx, &ledgerQueries{q: tx}); err != nil {
		return err
	}
	return r.Commit(tx)
}

// ledgerQueries implements the ledger reads and writes on a pool or a transaction.
type ledgerQueries struct {
	q querier
}

func (l *ledgerQueries) ExistingUsers(ctx context.Context, ids []string) (map[string]struct{}, error) {
	return l.existing(ctx, "SELECT user_id FROM users WHERE user_id IN (%s)", ids)
}

func (l *ledgerQueries) ExistingGroups(ctx context.Context, ids []string) (map[string]struct{}, error) {
	return l.existing(ctx, "SELECT group_id FROM groups WHERE group_id IN (%s)", ids)
}

func (l *ledgerQueries) existing(ctx context.Context, queryFmt string, ids []string) (map[string]struct{}, error) {
	found := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	rows, err := l.q.QueryContext(ctx, fmt.Sprintf(queryFmt, placeholders(len(ids))), stringArgs(ids)...)
	if err != nil {
		return nil, storageError("failed to query existing ids", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageError("failed to scan id", err)
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("error iterating id rows", err)
	}
	return found, nil
}

func (l *ledgerQueries) Memberships(ctx context.Context, userIDs, groupIDs []string) ([]domain.Membership, error) {
	if len(userIDs) == 0 || len(groupIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(
		"SELECT user_id, group_id FROM memberships WHERE user_id IN (%s) AND group_id IN (%s)",
		placeholders(len(userIDs)), placeholders(len(groupIDs)),
	)
	args := append(stringArgs(userIDs), stringArgs(groupIDs)...)

	rows, err := l.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError("failed to query memberships", err)
	}
	defer rows.Close()

	var memberships []domain.Membership
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.UserID, &m.GroupID); err != nil {
			return nil, storageError("failed to scan membership", err)
		}
		memberships = append(memberships, mapping.ToDomainMembership(m))
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("error iterating membership rows", err)
	}
	return memberships, nil
}

func (l *ledgerQueries) FindTransactionsByGroupID(ctx context.Context, groupID string) ([]domain.Transaction, error) {
	rows, err := l.q.QueryContext(ctx, `
		SELECT seq, transaction_id, group_id, name, comment, timestamp, originating_user_id, kind, expense_amount
		FROM transactions
		WHERE group_id = ?
		ORDER BY timestamp ASC, seq ASC`, groupID)
	if err != nil {
		return nil, storageError("failed to query transactions for group "+groupID, err)
	}
	defer rows.Close()

	var txnRows []models.Transaction
	for rows.Next() {
		var (
			m         models.Transaction
			comment   sql.NullString
			expense   sql.NullString
			timestamp string
		)
		if err := rows.Scan(&m.Seq, &m.TransactionID, &m.GroupID, &m.Name, &comment, &timestamp, &m.OriginatingUserID, &m.Kind, &expense); err != nil {
			return nil, storageError("failed to scan transaction", err)
		}
		if m.Timestamp, err = parseTimestamp(timestamp); err != nil {
			return nil, err
		}
		if comment.Valid {
			m.Comment = &comment.String
		}
		if expense.Valid {
			m.ExpenseAmount = &expense.String
		}
		txnRows = append(txnRows, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("error iterating transaction rows", err)
	}
	rows.Close()

	changes, err := l.changesByTransaction(ctx, groupID)
	if err != nil {
		return nil, err
	}

	txns := make([]domain.Transaction, 0, len(txnRows))
	for _, m := range txnRows {
		txn, err := mapping.ToDomainTransaction(m, changes[m.TransactionID])
		if err != nil {
			return nil, storageError("failed to decode transaction", err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func (l *ledgerQueries) changesByTransaction(ctx context.Context, groupID string) (map[string][]models.BalanceChange, error) {
	rows, err := l.q.QueryContext(ctx, `
		SELECT bc.transaction_id, bc.user_id, bc.amount
		FROM balance_changes bc
		JOIN transactions t ON t.transaction_id = bc.transaction_id
		WHERE t.group_id = ?`, groupID)
	if err != nil {
		return nil, storageError("failed to query balance changes for group "+groupID, err)
	}
	defer rows.Close()

	changes := make(map[string][]models.BalanceChange)
	for rows.Next() {
		var c models.BalanceChange
		if err := rows.Scan(&c.TransactionID, &c.UserID, &c.Amount); err != nil {
			return nil, storageError("failed to scan balance change", err)
		}
		changes[c.TransactionID] = append(changes[c.TransactionID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("error iterating balance change rows", err)
	}
	return changes, nil
}

func (l *ledgerQueries) SumBalances(ctx context.Context, userIDs, groupIDs []string) (domain.Balances, error) {
	memberships, err := l.Memberships(ctx, userIDs, groupIDs)
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return domain.Balances{}, nil
	}

	query := fmt.Sprintf(`
		SELECT t.group_id, bc.user_id, bc.amount
		FROM balance_changes bc
		JOIN transactions t ON t.transaction_id = bc.transaction_id
		WHERE bc.user_id IN (%s) AND t.group_id IN (%s)`,
		placeholders(len(userIDs)), placeholders(len(groupIDs)),
	)
	args := append(stringArgs(userIDs), stringArgs(groupIDs)...)

	rows, err := l.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError("failed to query balance changes", err)
	}
	defer rows.Close()

	var changeRows []accounting.ChangeRow
	for rows.Next() {
		var (
			row  accounting.ChangeRow
			text string
		)
		if err := rows.Scan(&row.GroupID, &row.UserID, &text); err != nil {
			return nil, storageError("failed to scan balance change", err)
		}
		if row.Amount, err = domain.ParseAmount(text); err != nil {
			return nil, storageError("corrupt balance change amount", err)
		}
		changeRows = append(changeRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("error iterating balance change rows", err)
	}

	return accounting.FoldBalances(memberships, changeRows), nil
}

func (l *ledgerQueries) InsertTransactions(ctx context.Context, txns []domain.Transaction) error {
	for _, txn := range txns {
		m, changes := mapping.ToModelTransaction(txn)
		timestamp, err := formatTimestamp(m.Timestamp)
		if err != nil {
			return err
		}
		_, err = l.q.ExecContext(ctx, `
			INSERT INTO transactions (transaction_id, group_id, name, comment, timestamp, originating_user_id, kind, expense_amount)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.TransactionID, m.GroupID, m.Name, m.Comment, timestamp, m.OriginatingUserID, string(m.Kind), m.ExpenseAmount,
		)
		if err != nil {
			return storageError("failed to insert transaction "+m.TransactionID, err)
		}

		for _, c := range changes {
			_, err := l.q.ExecContext(ctx,
				"INSERT INTO balance_changes (transaction_id, user_id, amount) VALUES (?, ?, ?)",
				c.TransactionID, c.UserID, c.Amount,
			)
			if err != nil {
				return storageError("failed to insert balance change for transaction "+m.TransactionID, err)
			}
		}
	}
	return nil
}
