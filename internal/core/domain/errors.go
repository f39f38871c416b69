package domain

import (
	"fmt"

	"github.com/pse-app/pse-sub001/internal/apperrors"
)

// Ledger errors. Each wraps an apperrors category so callers can branch with errors.Is.
var (
	ErrAmountScale           = fmt.Errorf("%w: amount exceeds currency scale", apperrors.ErrValidation)
	ErrAmountMagnitude       = fmt.Errorf("%w: amount exceeds maximum magnitude", apperrors.ErrValidation)
	ErrTransactionUnbalanced = fmt.Errorf("%w: balance changes do not sum to zero", apperrors.ErrValidation)
	ErrExpenseTotalMissing   = fmt.Errorf("%w: expense requires a total amount", apperrors.ErrValidation)
	ErrPaymentHasTotal       = fmt.Errorf("%w: payment cannot carry a total amount", apperrors.ErrValidation)
	ErrUnknownKind           = fmt.Errorf("%w: unknown transaction kind", apperrors.ErrValidation)
	ErrTimestampRange        = fmt.Errorf("%w: timestamp year outside 0000-9999", apperrors.ErrValidation)
	ErrUserNotFound          = fmt.Errorf("%w: user not found", apperrors.ErrNotFound)
	ErrGroupNotFound         = fmt.Errorf("%w: group not found", apperrors.ErrNotFound)
)
