// Package memory is an in-process store for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gymdash/internal/core"
	"gymdash/internal/store"
)

type exportMark struct {
	ref string
	at  time.Time
}

// Store keeps everything in maps guarded by one mutex.
type Store struct {
	mu        sync.Mutex
	members   map[string]core.Member
	payments  map[string]core.Payment
	order     []string
	reminders map[string]core.Reminder
	admins    map[string]core.Admin
	exported  map[string]exportMark
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		members:   make(map[string]core.Member),
		payments:  make(map[string]core.Payment),
		reminders: make(map[string]core.Reminder),
		admins:    make(map[string]core.Admin),
		exported:  make(map[string]exportMark),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateMember(_ context.Context, m core.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.ID] = m
	return nil
}

func (s *Store) UpdateMember(_ context.Context, m core.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[m.ID]; !ok {
		return core.ErrMemberNotFound
	}
	s.members[m.ID] = m
	return nil
}

func (s *Store) DeleteMember(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return core.ErrMemberNotFound
	}
	delete(s.members, id)
	return nil
}

func (s *Store) GetMember(_ context.Context, id string) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return core.Member{}, core.ErrMemberNotFound
	}
	return m, nil
}

// ListMembers returns members newest join date first.
func (s *Store) ListMembers(context.Context) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinDate.Equal(out[j].JoinDate) {
			return out[j].JoinDate.Before(out[i].JoinDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) RecordCheckIn(_ context.Context, id string, at time.Time) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return core.Member{}, core.ErrMemberNotFound
	}
	at = at.UTC()
	m.LastCheckIn = &at
	m.TotalCheckIns++
	m.UpdatedAt = at
	s.members[id] = m
	return m, nil
}

func (s *Store) CreatePayment(_ context.Context, p core.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.payments[p.ID] = p
	return nil
}

func (s *Store) GetPayment(_ context.Context, id string) (core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return core.Payment{}, core.ErrPaymentNotFound
	}
	return p, nil
}

func (s *Store) HasPayment(_ context.Context, memberID string, due core.Date) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.MemberID == memberID && p.DueDate.Equal(due) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) lastReminderLocked(paymentID string) *time.Time {
	var last *time.Time
	for _, r := range s.reminders {
		if r.PaymentID != paymentID {
			continue
		}
		if last == nil || r.RequestedAt.After(*last) {
			at := r.RequestedAt
			last = &at
		}
	}
	return last
}

// ListDue returns payments in insertion order, ordered by due date.
func (s *Store) ListDue(_ context.Context, from, to core.Date) ([]core.PendingPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.PendingPayment, 0)
	for _, id := range s.order {
		p := s.payments[id]
		if !store.InRange(p.DueDate, from, to) {
			continue
		}
		out = append(out, core.PendingPayment{
			ID:             p.ID,
			MemberID:       p.MemberID,
			MemberName:     s.members[p.MemberID].Name,
			AmountCRC:      p.AmountCRC,
			DueDate:        p.DueDate,
			Status:         p.Status,
			LastReminderAt: s.lastReminderLocked(p.ID),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (s *Store) ListPayments(_ context.Context, from, to core.Date) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Payment, 0)
	for _, id := range s.order {
		if p := s.payments[id]; store.InRange(p.DueDate, from, to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) ConfirmPayment(_ context.Context, id string, at time.Time) (core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return core.Payment{}, core.ErrPaymentNotFound
	}
	if p.Status == core.StatusConfirmed {
		return p, core.ErrAlreadyConfirmed
	}
	at = at.UTC()
	p.Status = core.StatusConfirmed
	p.ConfirmedAt = &at
	s.payments[id] = p
	return p, nil
}

func (s *Store) CreateReminder(_ context.Context, r core.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[r.PaymentID]; !ok {
		return core.ErrPaymentNotFound
	}
	s.reminders[r.ID] = r
	return nil
}

func (s *Store) MarkReminderProcessed(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return core.ErrPaymentNotFound
	}
	at = at.UTC()
	r.ProcessedAt = &at
	s.reminders[id] = r
	return nil
}

func (s *Store) ListUnexported(_ context.Context, limit int) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Payment, 0)
	for _, id := range s.order {
		p := s.payments[id]
		if p.Status != core.StatusConfirmed {
			continue
		}
		if _, done := s.exported[id]; done {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) IsExported(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[id]; !ok {
		return false, core.ErrPaymentNotFound
	}
	_, done := s.exported[id]
	return done, nil
}

func (s *Store) MarkExported(_ context.Context, id, ref string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[id]; !ok {
		return core.ErrPaymentNotFound
	}
	s.exported[id] = exportMark{ref: ref, at: at}
	return nil
}

func (s *Store) GetAdminByEmail(_ context.Context, email string) (core.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[strings.ToLower(email)]
	if !ok {
		return core.Admin{}, core.ErrAdminNotFound
	}
	return a, nil
}

func (s *Store) CreateAdmin(_ context.Context, a core.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(a.Email)
	if _, ok := s.admins[key]; ok {
		return core.ErrEmailTaken
	}
	s.admins[key] = a
	return nil
}

func (s *Store) CountAdmins(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.admins), nil
}
