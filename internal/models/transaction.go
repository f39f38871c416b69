package models

import "time"

// TransactionKind is the stored variant tag of a transaction.
type TransactionKind string

const (
	Payment TransactionKind = "PAYMENT"
	Expense TransactionKind = "EXPENSE"
)

// Transaction is a row of the transactions table.
// Amounts are kept as exact decimal text between the driver and the domain.
type Transaction struct {
	Seq               int64           `json:"-"`                       // Insertion sequence, breaks timestamp ties
	TransactionID     string          `json:"transactionID"`           // Primary Key (UUID)
	GroupID           string          `json:"groupID"`                 // FK -> groups.group_id
	Name              string          `json:"name"`                    // Not Null
	Comment           *string         `json:"comment,omitempty"`       // Nullable
	Timestamp         time.Time       `json:"timestamp"`               // Not Null
	OriginatingUserID string          `json:"originatingUserID"`       // FK -> users.user_id
	Kind              TransactionKind `json:"kind"`                    // PAYMENT or EXPENSE
	ExpenseAmount     *string         `json:"expenseAmount,omitempty"` // Null for payments
}

// BalanceChange is a row of the balance_changes table, keyed by (transaction, user).
type BalanceChange struct {
	TransactionID string `json:"transactionID"` // FK -> transactions.transaction_id
	UserID        string `json:"userID"`        // FK -> users.user_id
	Amount        string `json:"amount"`        // Signed exact decimal text
}
