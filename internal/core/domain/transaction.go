package domain

import "time"

// TransactionKind tags the variant of a Transaction.
type TransactionKind string

const (
	Payment TransactionKind = "PAYMENT"
	Expense TransactionKind = "EXPENSE"
)

// Transaction is an immutable ledger entry moving balance between members of one group.
// Kind selects the variant: an Expense carries ExpenseAmount, a Payment never does.
type Transaction struct {
	TransactionID     string            `json:"transactionID"`           // Generated at persist time
	GroupID           string            `json:"groupID"`                 // Owning group
	Name              string            `json:"name"`                    // Human-readable name
	Comment           *string           `json:"comment,omitempty"`       // Optional
	Timestamp         time.Time         `json:"timestamp"`               // Creation time as stated by the caller
	OriginatingUserID string            `json:"originatingUserID"`       // User who recorded it
	BalanceChanges    map[string]Amount `json:"balanceChanges"`          // UserID -> signed change
	Kind              TransactionKind   `json:"kind"`                    // PAYMENT or EXPENSE
	ExpenseAmount     *Amount           `json:"expenseAmount,omitempty"` // Informational total, Expense only
}

// NewPayment builds a Payment.
func NewPayment(groupID, name string, comment *string, timestamp time.Time, originatingUserID string, changes map[string]Amount) Transaction {
	return Transaction{
		GroupID:           groupID,
		Name:              name,
		Comment:           comment,
		Timestamp:         timestamp,
		OriginatingUserID: originatingUserID,
		BalanceChanges:    changes,
		Kind:              Payment,
	}
}

// NewExpense builds an Expense with its stated total.
func NewExpense(groupID, name string, comment *string, timestamp time.Time, originatingUserID string, changes map[string]Amount, total Amount) Transaction {
	tx := NewPayment(groupID, name, comment, timestamp, originatingUserID, changes)
	tx.Kind = Expense
	tx.ExpenseAmount = &total
	return tx
}

// IsExpense reports whether the transaction is the Expense variant.
func (t Transaction) IsExpense() bool {
	return t.Kind == Expense
}

// Total returns the expense total, or false for a Payment.
func (t Transaction) Total() (Amount, bool) {
	if t.Kind != Expense || t.ExpenseAmount == nil {
		return ZeroAmount, false
	}
	return *t.ExpenseAmount, true
}

// Sum adds up all balance changes. A valid transaction sums to zero.
func (t Transaction) Sum() Amount {
	return SumAmounts(t.BalanceChanges)
}

// ReferencedUserIDs lists the originating user and every user with a balance change, without duplicates.
func (t Transaction) ReferencedUserIDs() []string {
	seen := make(map[string]struct{}, len(t.BalanceChanges)+1)
	ids := make([]string, 0, len(t.BalanceChanges)+1)
	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	add(t.OriginatingUserID)
	for userID := range t.BalanceChanges {
		add(userID)
	}
	return ids
}

// TimestampInRange reports whether t falls in the years 0000-9999 that RFC 3339 can express.
func TimestampInRange(t time.Time) bool {
	year := t.UTC().Year()
	return year >= 0 && year <= 9999
}

// BalanceChange is one user's signed contribution to a transaction.
type BalanceChange struct {
	TransactionID string `json:"transactionID"`
	UserID        string `json:"userID"`
	Amount        Amount `json:"amount"`
}

// Changes flattens the balance-change map into rows.
func (t Transaction) Changes() []BalanceChange {
	rows := make([]BalanceChange, 0, len(t.BalanceChanges))
	for userID, amount := range t.BalanceChanges {
		rows = append(rows, BalanceChange{TransactionID: t.TransactionID, UserID: userID, Amount: amount})
	}
	return rows
}
