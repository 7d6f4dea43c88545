// Package store declares the persistence ports shared by the memory and
// SQLite backends.
package store

import (
	"context"
	"time"

	"gymdash/internal/core"
)

// Ports for outbound adapters.
type (
	MemberStore interface {
		CreateMember(ctx context.Context, m core.Member) error
		UpdateMember(ctx context.Context, m core.Member) error
		DeleteMember(ctx context.Context, id string) error
		GetMember(ctx context.Context, id string) (core.Member, error)
		ListMembers(ctx context.Context) ([]core.Member, error)
		RecordCheckIn(ctx context.Context, id string, at time.Time) (core.Member, error)
	}

	PaymentStore interface {
		CreatePayment(ctx context.Context, p core.Payment) error
		GetPayment(ctx context.Context, id string) (core.Payment, error)
		// HasPayment reports whether memberID already owes or paid for due.
		HasPayment(ctx context.Context, memberID string, due core.Date) (bool, error)
		// ListDue returns payments of every status due in [from, to] with the
		// member name and latest reminder resolved. A zero bound is open.
		ListDue(ctx context.Context, from, to core.Date) ([]core.PendingPayment, error)
		// ListPayments returns stored payments due in [from, to].
		ListPayments(ctx context.Context, from, to core.Date) ([]core.Payment, error)
		// ConfirmPayment flips a pending payment to confirmed.
		ConfirmPayment(ctx context.Context, id string, at time.Time) (core.Payment, error)
	}

	ReminderStore interface {
		CreateReminder(ctx context.Context, r core.Reminder) error
		MarkReminderProcessed(ctx context.Context, id string, at time.Time) error
	}

	// LedgerStore tracks which confirmed payments reached the ledger.
	LedgerStore interface {
		ListUnexported(ctx context.Context, limit int) ([]core.Payment, error)
		IsExported(ctx context.Context, id string) (bool, error)
		MarkExported(ctx context.Context, id, ref string, at time.Time) error
	}

	AdminStore interface {
		GetAdminByEmail(ctx context.Context, email string) (core.Admin, error)
		CreateAdmin(ctx context.Context, a core.Admin) error
		CountAdmins(ctx context.Context) (int, error)
	}

	// Store is everything a backend provides.
	Store interface {
		MemberStore
		PaymentStore
		ReminderStore
		LedgerStore
		AdminStore
		Ping(ctx context.Context) error
		Close() error
	}
)

// InRange reports whether d falls in [from, to], treating zero bounds as open.
func InRange(d, from, to core.Date) bool {
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && to.Before(d) {
		return false
	}
	return true
}
