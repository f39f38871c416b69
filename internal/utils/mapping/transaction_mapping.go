package mapping

import (
	"fmt"
	"sort"

	"github.com/pse-app/pse-sub001/internal/core/domain"
	"github.com/pse-app/pse-sub001/internal/models"
)

// ToModelTransaction converts a domain Transaction to its transaction row and balance-change rows.
// Change rows are sorted by user ID so inserts touch rows in a stable order.
func ToModelTransaction(d domain.Transaction) (models.Transaction, []models.BalanceChange) {
	m := models.Transaction{
		TransactionID:     d.TransactionID,
		GroupID:           d.GroupID,
		Name:              d.Name,
		Comment:           d.Comment,
		Timestamp:         d.Timestamp,
		OriginatingUserID: d.OriginatingUserID,
		Kind:              models.TransactionKind(d.Kind),
	}
	if total, ok := d.Total(); ok {
		text := total.String()
		m.ExpenseAmount = &text
	}

	rows := d.Changes()
	changes := make([]models.BalanceChange, 0, len(rows))
	for _, c := range rows {
		changes = append(changes, models.BalanceChange{
			TransactionID: c.TransactionID,
			UserID:        c.UserID,
			Amount:        c.Amount.String(),
		})
	}
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].UserID < changes[j].UserID
	})
	return m, changes
}

// ToDomainTransaction converts a transaction row and its balance-change rows to a domain Transaction.
func ToDomainTransaction(m models.Transaction, changes []models.BalanceChange) (domain.Transaction, error) {
	balanceChanges := make(map[string]domain.Amount, len(changes))
	for _, c := range changes {
		amount, err := domain.ParseAmount(c.Amount)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("corrupt balance change %s/%s: %w", c.TransactionID, c.UserID, err)
		}
		balanceChanges[c.UserID] = amount
	}

	d := domain.Transaction{
		TransactionID:     m.TransactionID,
		GroupID:           m.GroupID,
		Name:              m.Name,
		Comment:           m.Comment,
		Timestamp:         m.Timestamp,
		OriginatingUserID: m.OriginatingUserID,
		BalanceChanges:    balanceChanges,
		Kind:              domain.TransactionKind(m.Kind),
	}
	if m.ExpenseAmount != nil {
		total, err := domain.ParseAmount(*m.ExpenseAmount)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("corrupt expense amount on %s: %w", m.TransactionID, err)
		}
		d.ExpenseAmount = &total
	}
	return d, nil
}

// ToModelUser converts a domain User to a model User
func ToModelUser(d domain.User) models.User {
	return models.User{UserID: d.UserID, Name: d.Name, CreatedAt: d.CreatedAt}
}

// ToModelGroup converts a domain Group to a model Group
func ToModelGroup(d domain.Group) models.Group {
	return models.Group{GroupID: d.GroupID, Name: d.Name, CreatedAt: d.CreatedAt}
}

// ToDomainMembership converts a model Membership to a domain Membership
func ToDomainMembership(m models.Membership) domain.Membership {
	return domain.Membership{UserID: m.UserID, GroupID: m.GroupID}
}
