package accounting

import (
	"fmt"

	"github.com/pse-app/pse-sub001/internal/core/domain"
)

// ChangeRow is one balance-change row joined with the group of its transaction.
type ChangeRow struct {
	GroupID string
	UserID  string
	Amount  domain.Amount
}

// ValidateZeroSum checks that the balance changes of a transaction sum to exactly zero.
// This is used by the validator and by stores that re-check rows before insert.
func ValidateZeroSum(txn domain.Transaction) error {
	if sum := txn.Sum(); !sum.IsZero() {
		return fmt.Errorf("%w: transaction %q sums to %s", domain.ErrTransactionUnbalanced, txn.Name, sum.String())
	}
	return nil
}

// FoldBalances applies balance-change rows one by one onto the given memberships.
// Every membership starts at zero; rows for pairs that are not memberships are ignored.
func FoldBalances(memberships []domain.Membership, rows []ChangeRow) domain.Balances {
	balances := make(domain.Balances, len(memberships))
	for _, m := range memberships {
		balances[m.Key()] = domain.ZeroAmount
	}
	for _, row := range rows {
		key := domain.MembershipKey{UserID: row.UserID, GroupID: row.GroupID}
		current, ok := balances[key]
		if !ok {
			continue
		}
		balances[key] = current.Add(row.Amount)
	}
	return balances
}
