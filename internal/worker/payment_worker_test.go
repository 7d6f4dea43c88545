package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"gymdash/internal/amqp"
	"gymdash/internal/core"
	"gymdash/internal/store/memory"
)

type stubExporter struct {
	calls []string
	err   error
}

func (s *stubExporter) ExportPayment(_ context.Context, id string) error {
	s.calls = append(s.calls, id)
	return s.err
}

func confirmedMsg(id string) *amqp.PaymentConfirmedMessage {
	return amqp.NewPaymentConfirmedMessage(id, "m1", 25000, "2025-09-13", time.Now())
}

func TestHandlePaymentConfirmed(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		exporter *stubExporter
		wantErr  bool
	}{
		{"exports", &stubExporter{}, false},
		{"unknown payment is dropped", &stubExporter{err: core.ErrPaymentNotFound}, false},
		{"ledger failure requeues", &stubExporter{err: errors.New("sheets quota")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewPaymentWorker(tt.exporter, memory.New(), nil)
			err := w.HandlePaymentConfirmed(ctx, confirmedMsg("mock-s-001"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(tt.exporter.calls) != 1 || tt.exporter.calls[0] != "mock-s-001" {
				t.Fatalf("calls = %v", tt.exporter.calls)
			}
		})
	}
}

func TestHandlePaymentConfirmed_NoLedger(t *testing.T) {
	w := NewPaymentWorker(nil, memory.New(), nil)
	if err := w.HandlePaymentConfirmed(context.Background(), confirmedMsg("p1")); err != nil {
		t.Fatalf("err = %v", err)
	}
}

func TestHandleReminderRequested(t *testing.T) {
	repo := memory.Seeded()
	ctx := context.Background()
	requested := time.Date(2025, 9, 10, 9, 0, 0, 0, time.UTC)
	if err := repo.CreateReminder(ctx, core.Reminder{ID: "r1", PaymentID: "mock-s-003", RequestedAt: requested}); err != nil {
		t.Fatalf("seed reminder: %v", err)
	}

	w := NewPaymentWorker(nil, repo, nil)
	msg := amqp.NewReminderRequestedMessage("r1", "mock-s-003", "H8h9i0j1k2l3m4n5o6p", requested)
	if err := w.HandleReminderRequested(ctx, msg); err != nil {
		t.Fatalf("HandleReminderRequested: %v", err)
	}

	ghost := amqp.NewReminderRequestedMessage("ghost", "mock-s-003", "H8h9i0j1k2l3m4n5o6p", requested)
	if err := w.HandleReminderRequested(ctx, ghost); err != nil {
		t.Fatalf("unknown reminder should be dropped, got %v", err)
	}
}
