package dto

import (
	"fmt"
	"sort"
	"time"

	"github.com/pse-app/pse-sub001/internal/apperrors"
	"github.com/pse-app/pse-sub001/internal/core/domain"
)

// TransactionRequest defines the wire shape of a transaction to post.
// Amounts are decimal strings so no precision is lost in JSON numbers.
type TransactionRequest struct {
	GroupID           string            `json:"groupID" binding:"required"`
	Name              string            `json:"name"`
	Comment           *string           `json:"comment,omitempty"`
	Timestamp         time.Time         `json:"timestamp" binding:"required"`
	OriginatingUserID string            `json:"originatingUserID" binding:"required"`
	Kind              string            `json:"kind" binding:"required,oneof=PAYMENT EXPENSE"`
	BalanceChanges    map[string]string `json:"balanceChanges" binding:"dive,keys,required,endkeys,amount"`
	ExpenseAmount     *string           `json:"expenseAmount,omitempty" binding:"omitempty,amount"`
}

// PostTransactionsRequest is the body of a batch post. The batch is all-or-nothing.
type PostTransactionsRequest struct {
	Transactions []TransactionRequest `json:"transactions" binding:"dive"`
}

// PostTransactionsResponse reports how many transactions were committed.
type PostTransactionsResponse struct {
	Posted int `json:"posted"`
}

// TransactionResponse defines the data returned for a stored transaction.
type TransactionResponse struct {
	TransactionID     string            `json:"transactionID"`
	GroupID           string            `json:"groupID"`
	Name              string            `json:"name"`
	Comment           *string           `json:"comment,omitempty"`
	Timestamp         time.Time         `json:"timestamp"`
	OriginatingUserID string            `json:"originatingUserID"`
	Kind              string            `json:"kind"`
	BalanceChanges    map[string]string `json:"balanceChanges"`
	ExpenseAmount     *string           `json:"expenseAmount,omitempty"`
}

// ListTransactionsResponse wraps the transactions of a group, oldest first.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// ToDomainTransaction parses a request into a domain transaction. The result is
// not yet validated against currency limits or membership.
func ToDomainTransaction(req TransactionRequest) (domain.Transaction, error) {
	changes := make(map[string]domain.Amount, len(req.BalanceChanges))
	for userID, text := range req.BalanceChanges {
		amount, err := domain.ParseAmount(text)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("%w: balance change for %s: %v", apperrors.ErrValidation, userID, err)
		}
		changes[userID] = amount
	}

	txn := domain.Transaction{
		GroupID:           req.GroupID,
		Name:              req.Name,
		Comment:           req.Comment,
		Timestamp:         req.Timestamp.UTC(),
		OriginatingUserID: req.OriginatingUserID,
		BalanceChanges:    changes,
		Kind:              domain.TransactionKind(req.Kind),
	}
	if req.ExpenseAmount != nil {
		total, err := domain.ParseAmount(*req.ExpenseAmount)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("%w: expense amount: %v", apperrors.ErrValidation, err)
		}
		txn.ExpenseAmount = &total
	}
	return txn, nil
}

// ToDomainTransactions converts a batch, failing on the first unparsable entry.
func ToDomainTransactions(reqs []TransactionRequest) ([]domain.Transaction, error) {
	txns := make([]domain.Transaction, 0, len(reqs))
	for i, req := range reqs {
		txn, err := ToDomainTransaction(req)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse DTO.
func ToTransactionResponse(txn domain.Transaction) TransactionResponse {
	changes := make(map[string]string, len(txn.BalanceChanges))
	for userID, amount := range txn.BalanceChanges {
		changes[userID] = amount.String()
	}
	resp := TransactionResponse{
		TransactionID:     txn.TransactionID,
		GroupID:           txn.GroupID,
		Name:              txn.Name,
		Comment:           txn.Comment,
		Timestamp:         txn.Timestamp,
		OriginatingUserID: txn.OriginatingUserID,
		Kind:              string(txn.Kind),
		BalanceChanges:    changes,
	}
	if total, ok := txn.Total(); ok {
		s := total.String()
		resp.ExpenseAmount = &s
	}
	return resp
}

// ToListTransactionsResponse converts transactions to the list response, keeping their order.
func ToListTransactionsResponse(txns []domain.Transaction) ListTransactionsResponse {
	responses := make([]TransactionResponse, len(txns))
	for i, txn := range txns {
		responses[i] = ToTransactionResponse(txn)
	}
	return ListTransactionsResponse{Transactions: responses}
}

// BalanceEntry is the balance of one user in one group.
type BalanceEntry struct {
	UserID  string `json:"userID"`
	GroupID string `json:"groupID"`
	Amount  string `json:"amount"`
}

// BalancesResponse lists balances sorted by group, then user.
type BalancesResponse struct {
	Balances []BalanceEntry `json:"balances"`
}

func ToBalancesResponse(balances domain.Balances) BalancesResponse {
	entries := make([]BalanceEntry, 0, len(balances))
	for key, amount := range balances {
		entries = append(entries, BalanceEntry{UserID: key.UserID, GroupID: key.GroupID, Amount: amount.String()})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].GroupID != entries[j].GroupID {
			return entries[i].GroupID < entries[j].GroupID
		}
		return entries[i].UserID < entries[j].UserID
	})
	return BalancesResponse{Balances: entries}
}
