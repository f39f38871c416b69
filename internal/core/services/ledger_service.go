package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pse-app/pse-sub001/internal/apperrors"
	"github.com/pse-app/pse-sub001/internal/core/domain"
	portsrepo "github.com/pse-app/pse-sub001/internal/core/ports/repositories"
	portssvc "github.com/pse-app/pse-sub001/internal/core/ports/services"
	"github.com/pse-app/pse-sub001/internal/platform/metrics"
)

// ledgerService records transactions and derives balances from them.
type ledgerService struct {
	BaseService
	ledgerRepo portsrepo.LedgerRepositoryFacade
	validator  *Validator
	metrics    *metrics.LedgerMetrics
	newID      func() string
}

// LedgerServiceOption is a functional option for configuring the ledger service
type LedgerServiceOption func(*ledgerService)

// WithCurrency sets the currency whose scale bounds every amount.
func WithCurrency(currency domain.Currency) LedgerServiceOption {
	return func(s *ledgerService) {
		s.validator = NewValidator(currency)
	}
}

// WithMetrics attaches prometheus collectors to the service.
func WithMetrics(m *metrics.LedgerMetrics) LedgerServiceOption {
	return func(s *ledgerService) {
		s.metrics = m
	}
}

// WithIDGenerator replaces the transaction ID generator.
func WithIDGenerator(fn func() string) LedgerServiceOption {
	return func(s *ledgerService) {
		s.newID = fn
	}
}

// NewLedgerService creates a new ledger service with the provided options
func NewLedgerService(repo portsrepo.LedgerRepositoryFacade, options ...LedgerServiceOption) portssvc.LedgerSvcFacade {
	svc := &ledgerService{
		ledgerRepo: repo,
		validator:  NewValidator(domain.DefaultCurrency),
		newID:      uuid.NewString,
	}

	for _, option := range options {
		option(svc)
	}

	return svc
}

// Ensure ledgerService implements the LedgerSvcFacade interface
var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

func (s *ledgerService) GetTransactions(ctx context.Context, groupID string) ([]domain.Transaction, error) {
	defer s.metrics.ObserveOperation("get_transactions", time.Now())

	var txns []domain.Transaction
	err := s.ledgerRepo.RunInReadTx(ctx, func(ctx context.Context, tx portsrepo.LedgerReadTx) error {
		groups, err := tx.ExistingGroups(ctx, []string{groupID})
		if err != nil {
			return err
		}
		if _, ok := groups[groupID]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrGroupNotFound, groupID)
		}
		txns, err = tx.FindTransactionsByGroupID(ctx, groupID)
		return err
	})
	if err != nil {
		s.logFailure(ctx, err, "Failed to get transactions", slog.String("group_id", groupID))
		return nil, err
	}

	s.LogDebug(ctx, "Transactions retrieved",
		slog.String("group_id", groupID),
		slog.Int("count", len(txns)))
	return txns, nil
}

func (s *ledgerService) PostTransactions(ctx context.Context, txns []domain.Transaction) error {
	if len(txns) == 0 {
		s.LogDebug(ctx, "Empty transaction batch, nothing to post")
		return nil
	}
	defer s.metrics.ObserveOperation("post_transactions", time.Now())

	if err := s.validator.ValidateAmounts(txns); err != nil {
		s.metrics.RecordRejection(err)
		s.LogWarn(ctx, err, "Transaction batch rejected", slog.Int("batch_size", len(txns)))
		return err
	}

	prepared := make([]domain.Transaction, len(txns))
	for i, txn := range txns {
		prepared[i] = s.withFreshID(txn)
	}

	err := s.ledgerRepo.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		if err := s.validator.ValidateReferences(ctx, tx, prepared); err != nil {
			return err
		}
		return tx.InsertTransactions(ctx, prepared)
	})
	if err != nil {
		s.metrics.RecordRejection(err)
		s.logFailure(ctx, err, "Failed to post transactions", slog.Int("batch_size", len(txns)))
		return err
	}

	s.metrics.AddPosted(len(prepared))
	s.LogInfo(ctx, "Transactions posted", slog.Int("batch_size", len(prepared)))
	return nil
}

func (s *ledgerService) GetBalances(ctx context.Context, userIDs, groupIDs []string) (domain.Balances, error) {
	if len(userIDs) == 0 || len(groupIDs) == 0 {
		return domain.Balances{}, nil
	}
	defer s.metrics.ObserveOperation("get_balances", time.Now())

	userIDs = uniqueStrings(userIDs)
	groupIDs = uniqueStrings(groupIDs)

	var balances domain.Balances
	err := s.ledgerRepo.RunInReadTx(ctx, func(ctx context.Context, tx portsrepo.LedgerReadTx) error {
		users, err := tx.ExistingUsers(ctx, userIDs)
		if err != nil {
			return err
		}
		for _, id := range userIDs {
			if _, ok := users[id]; !ok {
				return fmt.Errorf("%w: %s", domain.ErrUserNotFound, id)
			}
		}
		groups, err := tx.ExistingGroups(ctx, groupIDs)
		if err != nil {
			return err
		}
		for _, id := range groupIDs {
			if _, ok := groups[id]; !ok {
				return fmt.Errorf("%w: %s", domain.ErrGroupNotFound, id)
			}
		}
		balances, err = tx.SumBalances(ctx, userIDs, groupIDs)
		return err
	})
	if err != nil {
		s.logFailure(ctx, err, "Failed to get balances",
			slog.Int("user_count", len(userIDs)),
			slog.Int("group_count", len(groupIDs)))
		return nil, err
	}
	return balances, nil
}

// withFreshID copies txn under a new ID. The balance-change map is copied so the
// caller's value is never shared with storage.
func (s *ledgerService) withFreshID(txn domain.Transaction) domain.Transaction {
	changes := make(map[string]domain.Amount, len(txn.BalanceChanges))
	for userID, amount := range txn.BalanceChanges {
		changes[userID] = amount
	}
	txn.TransactionID = s.newID()
	txn.BalanceChanges = changes
	return txn
}

// logFailure logs caller errors as warnings and everything else as errors.
func (s *ledgerService) logFailure(ctx context.Context, err error, msg string, keyvals ...any) {
	if errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrNotFound) {
		s.LogWarn(ctx, err, msg, keyvals...)
		return
	}
	s.LogError(ctx, err, msg, keyvals...)
}

func uniqueStrings(input []string) []string {
	seen := make(map[string]struct{}, len(input))
	result := make([]string, 0, len(input))
	for _, v := range input {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}
	return result
}
