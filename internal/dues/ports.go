package dues

import (
	"context"

	"gymdash/internal/core"
)

// Ports the fetcher and the calendar view depend on.
type (
	// Lister returns payments due in [from, to], both inclusive.
	Lister interface {
		ListDue(ctx context.Context, from, to core.Date) ([]core.PendingPayment, error)
	}

	// Mutator applies payment actions taken from the calendar.
	Mutator interface {
		Confirm(ctx context.Context, paymentID string) error
		Remind(ctx context.Context, paymentID string) error
	}
)
