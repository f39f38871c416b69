package pgsql

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pse-app/pse-sub001/internal/core/domain"
	portsrepo "github.com/pse-app/pse-sub001/internal/core/ports/repositories"
	"github.com/pse-app/pse-sub001/internal/models"
	"github.com/pse-app/pse-sub001/internal/utils/mapping"
)

// PgxLedgerRepository stores transactions and balance changes in Postgres.
// Balances are summed by the database over NUMERIC amounts.
type PgxLedgerRepository struct {
	BaseRepository
	pgxLedgerQueries
}

// newPgxLedgerRepository creates a new repository for transactions and balances.
func newPgxLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerRepositoryFacade {
	return &PgxLedgerRepository{
		BaseRepository:   BaseRepository{Pool: pool},
		pgxLedgerQueries: pgxLedgerQueries{q: pool},
	}
}

var (
	_ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)
	_ portsrepo.LedgerTx               = (*pgxLedgerQueries)(nil)
)

// RunInTx runs fn in a read-committed transaction. Reads of users, groups and
// memberships take FOR SHARE locks, so a membership cannot be removed between
// validation and insert.
func (r *PgxLedgerRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx) // Will be ignored if transaction is committed successfully

	if err := fn(ctx, &pgxLedgerQueries{q: tx, lockRefs: true}); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// RunInReadTx runs fn in a read-only repeatable-read transaction.
func (r *PgxLedgerRepository) RunInReadTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerReadTx) error) error {
	tx, err := r.BeginReadOnly(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := fn(ctx, &pgxLedgerQueries{q: tx}); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

type pgxLedgerQueries struct {
	q        querier
	lockRefs bool
}

func (l *pgxLedgerQueries) lockClause() string {
	if l.lockRefs {
		return " FOR SHARE"
	}
	return ""
}

func (l *pgxLedgerQueries) ExistingUsers(ctx context.Context, ids []string) (map[string]struct{}, error) {
	return l.existing(ctx, "SELECT user_id FROM users WHERE user_id = ANY($1)"+l.lockClause(), ids)
}

func (l *pgxLedgerQueries) ExistingGroups(ctx context.Context, ids []string) (map[string]struct{}, error) {
	return l.existing(ctx, "SELECT group_id FROM groups WHERE group_id = ANY($1)"+l.lockClause(), ids)
}

func (l *pgxLedgerQueries) existing(ctx context.Context, query string, ids []string) (map[string]struct{}, error) {
	found := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	rows, err := l.q.Query(ctx, query, ids)
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

func (l *pgxLedgerQueries) Memberships(ctx context.Context, userIDs, groupIDs []string) ([]domain.Membership, error) {
	if len(userIDs) == 0 || len(groupIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT user_id, group_id
		FROM memberships
		WHERE user_id = ANY($1) AND group_id = ANY($2)` + l.lockClause()

	rows, err := l.q.Query(ctx, query, userIDs, groupIDs)
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

// FindTransactionsByGroupID returns the group's transactions ordered by timestamp,
// ties broken by insertion order.
func (l *pgxLedgerQueries) FindTransactionsByGroupID(ctx context.Context, groupID string) ([]domain.Transaction, error) {
	query := `
		SELECT seq, transaction_id, group_id, name, comment, timestamp, originating_user_id, kind, expense_amount::text
		FROM transactions
		WHERE group_id = $1
		ORDER BY timestamp ASC, seq ASC;
	`
	rows, err := l.q.Query(ctx, query, groupID)
	if err != nil {
		return nil, storageError("failed to query transactions for group "+groupID, err)
	}
	defer rows.Close()

	var txnRows []models.Transaction
	for rows.Next() {
		var m models.Transaction
		var comment sql.NullString
		var expense sql.NullString
		var kind string
		if err := rows.Scan(&m.Seq, &m.TransactionID, &m.GroupID, &m.Name, &comment, &m.Timestamp, &m.OriginatingUserID, &kind, &expense); err != nil {
			return nil, storageError("failed to scan transaction row", err)
		}
		m.Kind = models.TransactionKind(kind)
		m.Timestamp = m.Timestamp.UTC()
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

	changes, err := l.changesByTransaction(ctx, groupID)
	if err != nil {
		return nil, err
	}

	txns := make([]domain.Transaction, 0, len(txnRows))
	for _, m := range txnRows {
		txn, err := mapping.ToDomainTransaction(m, changes[m.TransactionID])
		if err != nil {
			return nil, storageError("failed to decode transaction "+m.TransactionID, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func (l *pgxLedgerQueries) changesByTransaction(ctx context.Context, groupID string) (map[string][]models.BalanceChange, error) {
	query := `
		SELECT bc.transaction_id, bc.user_id, bc.amount::text
		FROM balance_changes bc
		JOIN transactions t ON t.transaction_id = bc.transaction_id
		WHERE t.group_id = $1;
	`
	rows, err := l.q.Query(ctx, query, groupID)
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

// SumBalances sums in NUMERIC, which is exact. Members without changes get zero
// from the outer join; pairs that are not memberships produce no row.
func (l *pgxLedgerQueries) SumBalances(ctx context.Context, userIDs, groupIDs []string) (domain.Balances, error) {
	balances := domain.Balances{}
	if len(userIDs) == 0 || len(groupIDs) == 0 {
		return balances, nil
	}

	query := `
		SELECT m.user_id, m.group_id, COALESCE(SUM(c.amount), 0)::text
		FROM memberships m
		LEFT JOIN (
			SELECT t.group_id, bc.user_id, bc.amount
			FROM balance_changes bc
			JOIN transactions t ON t.transaction_id = bc.transaction_id
		) c ON c.group_id = m.group_id AND c.user_id = m.user_id
		WHERE m.user_id = ANY($1) AND m.group_id = ANY($2)
		GROUP BY m.user_id, m.group_id;
	`
	rows, err := l.q.Query(ctx, query, userIDs, groupIDs)
	if err != nil {
		return nil, storageError("failed to sum balances", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key domain.MembershipKey
		var amount domain.Amount
		if err := rows.Scan(&key.UserID, &key.GroupID, &amount); err != nil {
			return nil, storageError("failed to scan balance row", err)
		}
		balances[key] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("error iterating balance rows", err)
	}
	return balances, nil
}

func (l *pgxLedgerQueries) InsertTransactions(ctx context.Context, txns []domain.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	txnQuery := `
		INSERT INTO transactions (transaction_id, group_id, name, comment, timestamp, originating_user_id, kind, expense_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric);
	`
	changeQuery := `
		INSERT INTO balance_changes (transaction_id, user_id, amount)
		VALUES ($1, $2, $3::numeric);
	`

	// Queue order is execution order, so seq follows batch order.
	batch := &pgx.Batch{}
	for _, txn := range txns {
		m, changes := mapping.ToModelTransaction(txn)
		batch.Queue(txnQuery,
			m.TransactionID,
			m.GroupID,
			m.Name,
			m.Comment,
			m.Timestamp,
			m.OriginatingUserID,
			string(m.Kind),
			m.ExpenseAmount,
		)
		for _, c := range changes {
			batch.Queue(changeQuery, c.TransactionID, c.UserID, c.Amount)
		}
	}

	br := l.q.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return storageError("failed to execute transaction batch", err)
	}
	return nil
}
