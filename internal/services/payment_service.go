package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gymdash/internal/amqp"
	"gymdash/internal/core"
	applog "gymdash/internal/log"
)

// DefaultMonthlyFee is the monthly plan price in colones.
const DefaultMonthlyFee int64 = 25000

type PaymentOptions struct {
	MonthlyFee int64
	Now        func() time.Time
	NewID      func() string
	Logger     *applog.Logger
}

// PaymentService orchestrates payment operations across the store and AMQP.
// It satisfies dues.Lister and dues.Mutator.
type PaymentService struct {
	repo       PaymentRepository
	publisher  Publisher
	monthlyFee int64
	now        func() time.Time
	newID      func() string
	logger     *applog.Logger
}

func NewPaymentService(repo PaymentRepository, publisher Publisher, opts PaymentOptions) *PaymentService {
	if opts.MonthlyFee <= 0 {
		opts.MonthlyFee = DefaultMonthlyFee
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	return &PaymentService{
		repo:       repo,
		publisher:  publisher,
		monthlyFee: opts.MonthlyFee,
		now:        opts.Now,
		newID:      opts.NewID,
		logger:     opts.Logger.WithComponent(applog.ComponentPayments),
	}
}

// ListDue returns payments due in [from, to].
func (s *PaymentService) ListDue(ctx context.Context, from, to core.Date) ([]core.PendingPayment, error) {
	items, err := s.repo.ListDue(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list due payments: %w", err)
	}
	return items, nil
}

func (s *PaymentService) Confirm(ctx context.Context, paymentID string) error {
	_, err := s.ConfirmPayment(ctx, paymentID)
	return err
}

func (s *PaymentService) Remind(ctx context.Context, paymentID string) error {
	_, err := s.RequestReminder(ctx, paymentID)
	return err
}

// ConfirmPayment marks the payment confirmed, schedules the member's next
// payment and announces the confirmation.
func (s *PaymentService) ConfirmPayment(ctx context.Context, paymentID string) (core.Payment, error) {
	p, err := s.repo.ConfirmPayment(ctx, paymentID, s.now())
	if err != nil {
		return core.Payment{}, fmt.Errorf("confirm payment %s: %w", paymentID, err)
	}

	applog.NewStructuredLogger(s.logger).LogPaymentConfirmed(ctx, p.ID, p.MemberID, p.AmountCRC, p.DueDate.Key())

	if _, _, err := s.ScheduleNext(ctx, p); err != nil {
		s.logger.WarnContext(ctx, "Failed to schedule next payment",
			applog.FieldPaymentID, p.ID,
			applog.FieldError, err)
	}

	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping confirmation message")
		return p, nil
	}
	confirmedAt := s.now()
	if p.ConfirmedAt != nil {
		confirmedAt = *p.ConfirmedAt
	}
	msg := amqp.NewPaymentConfirmedMessage(p.ID, p.MemberID, p.AmountCRC, p.DueDate.Key(), confirmedAt)
	if err := s.publisher.PublishPaymentConfirmed(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish payment confirmed message",
			applog.FieldPaymentID, p.ID,
			applog.FieldError, err)
	}
	return p, nil
}

// RequestReminder records a reminder request. Nothing is delivered here; the
// worker picks the request up.
func (s *PaymentService) RequestReminder(ctx context.Context, paymentID string) (core.Reminder, error) {
	p, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return core.Reminder{}, fmt.Errorf("remind payment %s: %w", paymentID, err)
	}

	r := core.Reminder{ID: s.newID(), PaymentID: p.ID, RequestedAt: s.now().UTC()}
	if err := s.repo.CreateReminder(ctx, r); err != nil {
		return core.Reminder{}, fmt.Errorf("save reminder: %w", err)
	}

	s.logger.InfoContext(ctx, "Reminder requested",
		applog.FieldPaymentID, p.ID,
		applog.FieldMemberID, p.MemberID)

	if s.publisher == nil {
		return r, nil
	}
	msg := amqp.NewReminderRequestedMessage(r.ID, p.ID, p.MemberID, r.RequestedAt)
	if err := s.publisher.PublishReminderRequested(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish reminder message",
			applog.FieldPaymentID, p.ID,
			applog.FieldError, err)
	}
	return r, nil
}

// SchedulePayment creates the pending obligation for m due on due unless one
// already exists. It reports whether a payment was created.
func (s *PaymentService) SchedulePayment(ctx context.Context, m core.Member, due core.Date) (core.Payment, bool, error) {
	cycle, err := GetBillingCycle(m.MembershipType)
	if err != nil {
		return core.Payment{}, false, err
	}
	exists, err := s.repo.HasPayment(ctx, m.ID, due)
	if err != nil {
		return core.Payment{}, false, fmt.Errorf("check existing payment: %w", err)
	}
	if exists {
		return core.Payment{}, false, nil
	}

	p := core.Payment{
		ID:        s.newID(),
		MemberID:  m.ID,
		AmountCRC: cycle.Fee(s.monthlyFee),
		DueDate:   due,
		Status:    core.StatusPending,
		Method:    "cash",
		Plan:      m.MembershipType,
		Reference: core.Reference(m.ID, due),
		CreatedAt: s.now().UTC(),
	}
	if err := p.Validate(); err != nil {
		return core.Payment{}, false, fmt.Errorf("validate payment: %w", err)
	}
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return core.Payment{}, false, fmt.Errorf("save payment: %w", err)
	}

	s.logger.InfoContext(ctx, "Payment scheduled",
		applog.FieldPaymentID, p.ID,
		applog.FieldMemberID, m.ID,
		applog.FieldAmountCRC, p.AmountCRC,
		applog.FieldDueDate, due.Key())
	return p, true, nil
}

// ScheduleNext creates the payment one billing period after p for its member.
// Deleted or inactive members get nothing.
func (s *PaymentService) ScheduleNext(ctx context.Context, p core.Payment) (core.Payment, bool, error) {
	m, err := s.repo.GetMember(ctx, p.MemberID)
	if errors.Is(err, core.ErrMemberNotFound) {
		return core.Payment{}, false, nil
	}
	if err != nil {
		return core.Payment{}, false, fmt.Errorf("load member: %w", err)
	}
	if !m.IsActive {
		return core.Payment{}, false, nil
	}

	cycle, err := GetBillingCycle(m.MembershipType)
	if err != nil {
		return core.Payment{}, false, err
	}
	anchor := m.JoinDate.Day()
	if m.JoinDate.IsZero() {
		anchor = p.DueDate.Day()
	}
	return s.SchedulePayment(ctx, m, cycle.NextDue(p.DueDate, anchor))
}
