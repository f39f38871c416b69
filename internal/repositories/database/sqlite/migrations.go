package sqlite

import (
	"context"
	"database/sql"
)

// schema mirrors the Postgres migrations. Amounts are stored as exact decimal text
// and timestamps as fixed-width UTC text (see timestampLayout).
// Tables are created in foreign-key order.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    user_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
    group_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS memberships (
    user_id TEXT NOT NULL,
    group_id TEXT NOT NULL,
    PRIMARY KEY (user_id, group_id),
    FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE,
    FOREIGN KEY (group_id) REFERENCES groups(group_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS transactions (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    transaction_id TEXT NOT NULL UNIQUE,
    group_id TEXT NOT NULL,
    name TEXT NOT NULL,
    comment TEXT,
    timestamp TEXT NOT NULL,
    originating_user_id TEXT NOT NULL,
    kind TEXT NOT NULL CHECK (kind IN ('PAYMENT', 'EXPENSE')),
    expense_amount TEXT,
    CHECK ((kind = 'EXPENSE') = (expense_amount IS NOT NULL)),
    FOREIGN KEY (group_id) REFERENCES groups(group_id),
    FOREIGN KEY (originating_user_id) REFERENCES users(user_id)
);

CREATE TABLE IF NOT EXISTS balance_changes (
    transaction_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    amount TEXT NOT NULL,
    PRIMARY KEY (transaction_id, user_id),
    FOREIGN KEY (transaction_id) REFERENCES transactions(transaction_id) ON DELETE CASCADE,
    FOREIGN KEY (user_id) REFERENCES users(user_id)
);

CREATE INDEX IF NOT EXISTS idx_memberships_group_id ON memberships(group_id);
CREATE INDEX IF NOT EXISTS idx_transactions_group_ts ON transactions(group_id, timestamp, seq);
CREATE INDEX IF NOT EXISTS idx_balance_changes_user_id ON balance_changes(user_id);
`

// runMigrations executes the schema setup.
func runMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
