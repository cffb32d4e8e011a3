package port

import (
	"context"

	"github.com/expenseflow/expenseflow/internal/domain/approval"
)

// RateProvider supplies a conversion rate table anchored at the given
// base currency. Implementations may serve cached or stale tables; the
// absence of a needed code in the result is a recoverable condition for
// the caller, not a fatal one.
type RateProvider interface {
	Rates(ctx context.Context, base string) (approval.RateTable, error)
}
