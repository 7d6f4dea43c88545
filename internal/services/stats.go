package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"gymdash/internal/calendar"
	"gymdash/internal/core"
	"gymdash/internal/store"
)

// StatsService computes the dashboard summary.
type StatsService struct {
	members  store.MemberStore
	payments store.PaymentStore
	loc      *time.Location
	now      func() time.Time
}

func NewStatsService(members store.MemberStore, payments store.PaymentStore, loc *time.Location, now func() time.Time) *StatsService {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &StatsService{members: members, payments: payments, loc: loc, now: now}
}

// Stats loads members, the month's payments and everything overdue
// concurrently, then folds them into one summary.
func (s *StatsService) Stats(ctx context.Context, month core.Date) (core.DashboardStats, error) {
	today := calendar.Today(s.now(), s.loc)
	if month.IsZero() {
		month = today
	}
	from, to := calendar.StartOfMonth(month), calendar.EndOfMonth(month)

	var (
		members []core.Member
		monthly []core.Payment
		overdue []core.PendingPayment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if members, err = s.members.ListMembers(gctx); err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if monthly, err = s.payments.ListPayments(gctx, from, to); err != nil {
			return fmt.Errorf("list month payments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if overdue, err = s.payments.ListDue(gctx, core.Date{}, today.AddDays(-1)); err != nil {
			return fmt.Errorf("list overdue payments: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.DashboardStats{}, err
	}

	st := core.DashboardStats{Month: calendar.MonthKey(month), TotalMembers: len(members)}
	for _, m := range members {
		if m.IsActive {
			st.ActiveMembers++
		} else {
			st.InactiveMembers++
		}
		if m.LastCheckIn != nil && core.DateOf(m.LastCheckIn.In(s.loc)).Equal(today) {
			st.TodayCheckIns++
		}
	}
	for _, p := range monthly {
		switch p.Status {
		case core.StatusConfirmed:
			st.MonthlyRevenue += p.AmountCRC
		case core.StatusPending:
			st.PendingCount++
			st.PendingAmount += p.AmountCRC
		}
	}
	for _, p := range overdue {
		if p.Status == core.StatusPending {
			st.OverdueCount++
			st.OverdueAmount += p.AmountCRC
		}
	}
	return st, nil
}
