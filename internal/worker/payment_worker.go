// Package worker handles payment events published by the dashboard.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gymdash/internal/amqp"
	"gymdash/internal/core"
	applog "gymdash/internal/log"
)

// Exporter writes a confirmed payment to the ledger.
type Exporter interface {
	ExportPayment(ctx context.Context, paymentID string) error
}

// ReminderMarker records that a reminder request was handled.
type ReminderMarker interface {
	MarkReminderProcessed(ctx context.Context, id string, at time.Time) error
}

// PaymentWorker consumes payment.confirmed and payment.reminder_requested.
type PaymentWorker struct {
	exporter  Exporter
	reminders ReminderMarker
	now       func() time.Time
	logger    *applog.Logger
}

var _ amqp.Handler = (*PaymentWorker)(nil)

// NewPaymentWorker builds a worker. A nil exporter means no ledger is
// configured and confirmations are acknowledged without export.
func NewPaymentWorker(exporter Exporter, reminders ReminderMarker, logger *applog.Logger) *PaymentWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &PaymentWorker{
		exporter:  exporter,
		reminders: reminders,
		now:       time.Now,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// HandlePaymentConfirmed exports the payment to the ledger.
func (w *PaymentWorker) HandlePaymentConfirmed(ctx context.Context, msg *amqp.PaymentConfirmedMessage) error {
	w.logger.InfoContext(ctx, "Processing payment confirmed message",
		applog.FieldPaymentID, msg.PaymentID,
		applog.FieldAmountCRC, msg.AmountCRC)

	if w.exporter == nil {
		w.logger.WarnContext(ctx, "No ledger configured, skipping export", applog.FieldPaymentID, msg.PaymentID)
		return nil
	}

	err := w.exporter.ExportPayment(ctx, msg.PaymentID)
	if errors.Is(err, core.ErrPaymentNotFound) {
		// Unknown payments are acked.
		w.logger.WarnContext(ctx, "Dropping confirmation for unknown payment", applog.FieldPaymentID, msg.PaymentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("export payment %s: %w", msg.PaymentID, err)
	}
	return nil
}

// HandleReminderRequested marks the request processed. Reminder delivery is
// not implemented; the request is only recorded.
func (w *PaymentWorker) HandleReminderRequested(ctx context.Context, msg *amqp.ReminderRequestedMessage) error {
	w.logger.InfoContext(ctx, "Processing reminder requested message",
		"reminder_id", msg.ReminderID,
		applog.FieldPaymentID, msg.PaymentID,
		applog.FieldMemberID, msg.MemberID)

	err := w.reminders.MarkReminderProcessed(ctx, msg.ReminderID, w.now())
	if errors.Is(err, core.ErrPaymentNotFound) {
		w.logger.WarnContext(ctx, "Dropping unknown reminder", "reminder_id", msg.ReminderID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark reminder %s processed: %w", msg.ReminderID, err)
	}
	return nil
}
