package dues

import (
	"context"
)

// invalidating drops the fetcher's cache after every successful confirm.
// A confirm schedules the member's next payment, which can land in any
// cached month.
type invalidating struct {
	next    Mutator
	fetcher *Fetcher
}

// Invalidating wraps m so confirmations purge f's cache. Reminders leave
// fetched records untouched.
func (f *Fetcher) Invalidating(m Mutator) Mutator {
	return &invalidating{next: m, fetcher: f}
}

func (m *invalidating) Confirm(ctx context.Context, paymentID string) error {
	if err := m.next.Confirm(ctx, paymentID); err != nil {
		return err
	}
	m.fetcher.InvalidateAll()
	return nil
}

func (m *invalidating) Remind(ctx context.Context, paymentID string) error {
	return m.next.Remind(ctx, paymentID)
}
