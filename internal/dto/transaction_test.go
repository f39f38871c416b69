package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pse-app/pse-sub001/internal/apperrors"
	"github.com/pse-app/pse-sub001/internal/core/domain"
)

func TestToDomainTransaction(t *testing.T) {
	comment := "split evenly"
	total := "9.90"
	req := TransactionRequest{
		GroupID:           "g1",
		Name:              "Lunch",
		Comment:           &comment,
		Timestamp:         time.Date(2024, 6, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*60*60)),
		OriginatingUserID: "a",
		Kind:              "EXPENSE",
		BalanceChanges:    map[string]string{"a": "6.60", "b": "-3.30", "c": "-3.3"},
		ExpenseAmount:     &total,
	}

	txn, err := ToDomainTransaction(req)
	require.NoError(t, err)

	assert.Equal(t, domain.Expense, txn.Kind)
	assert.Equal(t, time.UTC, txn.Timestamp.Location())
	assert.True(t, req.Timestamp.Equal(txn.Timestamp))
	assert.Equal(t, &comment, txn.Comment)
	assert.True(t, txn.Sum().IsZero())
	got, ok := txn.Total()
	require.True(t, ok)
	assert.Equal(t, "9.9", got.String())
}

func TestToDomainTransaction_InvalidAmounts(t *testing.T) {
	_, err := ToDomainTransaction(TransactionRequest{Kind: "PAYMENT", BalanceChanges: map[string]string{"a": "1,5"}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	bad := "x"
	_, err = ToDomainTransaction(TransactionRequest{Kind: "EXPENSE", ExpenseAmount: &bad})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = ToDomainTransactions([]TransactionRequest{
		{Kind: "PAYMENT", BalanceChanges: map[string]string{"a": "1", "b": "-1"}},
		{Kind: "PAYMENT", BalanceChanges: map[string]string{"a": "NaN"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction 1")
}

func TestToTransactionResponse(t *testing.T) {
	txn := domain.NewPayment("g1", "Back", nil, time.Unix(0, 0).UTC(), "b", map[string]domain.Amount{
		"a": domain.MustParseAmount("-2.50"),
		"b": domain.MustParseAmount("2.5"),
	})
	txn.TransactionID = "t9"

	resp := ToTransactionResponse(txn)

	assert.Equal(t, "t9", resp.TransactionID)
	assert.Equal(t, "PAYMENT", resp.Kind)
	assert.Nil(t, resp.ExpenseAmount)
	assert.Equal(t, map[string]string{"a": "-2.5", "b": "2.5"}, resp.BalanceChanges)
}

func TestToBalancesResponse_Sorted(t *testing.T) {
	resp := ToBalancesResponse(domain.Balances{
		{UserID: "z", GroupID: "g1"}: domain.MustParseAmount("1"),
		{UserID: "a", GroupID: "g2"}: domain.MustParseAmount("-1"),
		{UserID: "a", GroupID: "g1"}: domain.ZeroAmount,
	})

	assert.Equal(t, []BalanceEntry{
		{UserID: "a", GroupID: "g1", Amount: "0"},
		{UserID: "z", GroupID: "g1", Amount: "1"},
		{UserID: "a", GroupID: "g2", Amount: "-1"},
	}, resp.Balances)

	assert.NotNil(t, ToBalancesResponse(nil).Balances)
}

func TestRegisterValidations_Idempotent(t *testing.T) {
	require.NoError(t, RegisterValidations())
	require.NoError(t, RegisterValidations())
}
