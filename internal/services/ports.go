package services

import (
	"context"

	"gymdash/internal/amqp"
	"gymdash/internal/store"
)

// Ports for outbound adapters.
type (
	// Publisher announces payment events to the worker. A nil Publisher
	// disables messaging.
	Publisher interface {
		PublishPaymentConfirmed(ctx context.Context, msg *amqp.PaymentConfirmedMessage) error
		PublishReminderRequested(ctx context.Context, msg *amqp.ReminderRequestedMessage) error
	}

	PaymentRepository interface {
		store.PaymentStore
		store.ReminderStore
		store.MemberStore
	}

	// LedgerWriter appends confirmed payments to the external ledger and
	// returns where the row landed.
	LedgerWriter interface {
		AppendPayment(ctx context.Context, row LedgerRow) (string, error)
	}
)
