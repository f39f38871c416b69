package services

import (
	"context"
	"fmt"

	"github.com/pse-app/pse-sub001/internal/core/domain"
	portsrepo "github.com/pse-app/pse-sub001/internal/core/ports/repositories"
	"github.com/pse-app/pse-sub001/internal/utils/accounting"
)

// Validator checks transaction batches before they are persisted.
// Checks run in a fixed order and the first violation wins:
// field limits, zero sum, user existence, group existence, membership.
type Validator struct {
	currency domain.Currency
}

// NewValidator creates a Validator for amounts booked in the given currency.
func NewValidator(currency domain.Currency) *Validator {
	return &Validator{currency: currency}
}

// Validate runs every check against the batch. An empty batch is valid.
func (v *Validator) Validate(ctx context.Context, oracle portsrepo.MembershipOracle, txns []domain.Transaction) error {
	if err := v.ValidateAmounts(txns); err != nil {
		return err
	}
	return v.ValidateReferences(ctx, oracle, txns)
}

// ValidateAmounts runs the checks that need no storage: timestamp range, variant shape, amount limits and zero sum.
func (v *Validator) ValidateAmounts(txns []domain.Transaction) error {
	for _, txn := range txns {
		if err := v.validateFields(txn); err != nil {
			return err
		}
		for userID, amount := range txn.BalanceChanges {
			if err := v.validateAmount(amount); err != nil {
				return fmt.Errorf("%w (user %s)", err, userID)
			}
		}
		if total, ok := txn.Total(); ok {
			if err := v.validateAmount(total); err != nil {
				return fmt.Errorf("%w (expense total)", err)
			}
		}
	}
	for _, txn := range txns {
		if err := accounting.ValidateZeroSum(txn); err != nil {
			return err
		}
	}
	return nil
}

// ValidateReferences checks that every referenced user and group exists and that each
// transaction only involves members of its group. The oracle decides the isolation.
func (v *Validator) ValidateReferences(ctx context.Context, oracle portsrepo.MembershipOracle, txns []domain.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	userIDs := referencedUsers(txns)
	groupIDs := referencedGroups(txns)

	existingUsers, err := oracle.ExistingUsers(ctx, userIDs)
	if err != nil {
		return fmt.Errorf("failed to look up users: %w", err)
	}
	for _, id := range userIDs {
		if _, ok := existingUsers[id]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrUserNotFound, id)
		}
	}

	existingGroups, err := oracle.ExistingGroups(ctx, groupIDs)
	if err != nil {
		return fmt.Errorf("failed to look up groups: %w", err)
	}
	for _, id := range groupIDs {
		if _, ok := existingGroups[id]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrGroupNotFound, id)
		}
	}

	memberships, err := oracle.Memberships(ctx, userIDs, groupIDs)
	if err != nil {
		return fmt.Errorf("failed to look up memberships: %w", err)
	}
	members := make(map[domain.MembershipKey]struct{}, len(memberships))
	for _, m := range memberships {
		members[m.Key()] = struct{}{}
	}
	for _, txn := range txns {
		for _, userID := range txn.ReferencedUserIDs() {
			if _, ok := members[domain.MembershipKey{UserID: userID, GroupID: txn.GroupID}]; !ok {
				return fmt.Errorf("%w: %s is not a member of group %s", domain.ErrUserNotFound, userID, txn.GroupID)
			}
		}
	}
	return nil
}

func (v *Validator) validateFields(txn domain.Transaction) error {
	if !domain.TimestampInRange(txn.Timestamp) {
		return fmt.Errorf("%w: %d", domain.ErrTimestampRange, txn.Timestamp.UTC().Year())
	}
	switch txn.Kind {
	case domain.Payment:
		if txn.ExpenseAmount != nil {
			return domain.ErrPaymentHasTotal
		}
	case domain.Expense:
		if txn.ExpenseAmount == nil {
			return domain.ErrExpenseTotalMissing
		}
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownKind, txn.Kind)
	}
	return nil
}

func (v *Validator) validateAmount(amount domain.Amount) error {
	if !v.currency.FitsScale(amount) {
		return fmt.Errorf("%w: more than %d fractional digits", domain.ErrAmountScale, v.currency.Scale)
	}
	if !v.currency.FitsMagnitude(amount) {
		return fmt.Errorf("%w: more than %d integer digits", domain.ErrAmountMagnitude, v.currency.IntegerDigits())
	}
	return nil
}

// referencedUsers lists every originating user and balance-change key in the batch, once each.
func referencedUsers(txns []domain.Transaction) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, txn := range txns {
		for _, id := range txn.ReferencedUserIDs() {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func referencedGroups(txns []domain.Transaction) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, txn := range txns {
		if _, ok := seen[txn.GroupID]; !ok {
			seen[txn.GroupID] = struct{}{}
			ids = append(ids, txn.GroupID)
		}
	}
	return ids
}
