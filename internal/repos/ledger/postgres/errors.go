package postgres

import (
	"errors"
	"fmt"

	"github.com/fastprodman/progression/internal/infra/pgutils"
	"github.com/fastprodman/progression/internal/repos/ledger"
)

var domainErrors = []error{
	ledger.ErrNotFound,
	ledger.ErrInvalidInput,
	ledger.ErrInsufficientFunds,
	ledger.ErrAlreadyClaimed,
	ledger.ErrNotEligible,
	ledger.ErrConflict,
	ledger.ErrUnavailable,
	ledger.ErrReceiptNotFound,
}

// classify maps driver errors onto the ledger taxonomy. Domain errors pass
// through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}

	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return err
		}
	}

	switch {
	case pgutils.IsRetryable(err), pgutils.IsUniqueViolation(err):
		return fmt.Errorf("%w: %w", ledger.ErrConflict, err)
	case pgutils.IsUnavailable(err):
		return fmt.Errorf("%w: %w", ledger.ErrUnavailable, err)
	default:
		return err
	}
}
