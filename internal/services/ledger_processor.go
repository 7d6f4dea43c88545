package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gymdash/internal/core"
	applog "gymdash/internal/log"
	"gymdash/internal/store"
)

// LedgerRow is one confirmed payment as written to the ledger.
type LedgerRow struct {
	PaymentID   string
	Reference   string
	MemberName  string
	AmountCRC   int64
	DueDate     core.Date
	ConfirmedAt time.Time
	Method      string
	Plan        core.MembershipType
}

// LedgerProcessorConfig holds configuration for the ledger processor
type LedgerProcessorConfig struct {
	// PollInterval is how often to look for unexported payments (default: 1m)
	PollInterval time.Duration

	// BatchSize is the max number of payments exported per cycle (default: 25)
	BatchSize int
}

// DefaultLedgerProcessorConfig returns sensible defaults
func DefaultLedgerProcessorConfig() LedgerProcessorConfig {
	return LedgerProcessorConfig{
		PollInterval: time.Minute,
		BatchSize:    25,
	}
}

type LedgerRepository interface {
	store.LedgerStore
	store.MemberStore
	GetPayment(ctx context.Context, id string) (core.Payment, error)
}

// LedgerProcessor exports confirmed payments to the ledger, both on demand
// (one message per confirmation) and as a periodic backfill.
type LedgerProcessor struct {
	repo   LedgerRepository
	ledger LedgerWriter
	config LedgerProcessorConfig
	now    func() time.Time
	logger *applog.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// exportMu serialises exports so the backfill and the consumer never
	// append the same payment twice.
	exportMu sync.Mutex
}

func NewLedgerProcessor(repo LedgerRepository, ledger LedgerWriter, config LedgerProcessorConfig, logger *applog.Logger) *LedgerProcessor {
	def := DefaultLedgerProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &LedgerProcessor{
		repo:   repo,
		ledger: ledger,
		config: config,
		now:    time.Now,
		logger: logger.WithComponent(applog.ComponentLedger),
	}
}

// Start begins the backfill loop. Returns an error if already running.
func (p *LedgerProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("ledger processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Ledger processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *LedgerProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		p.logger.InfoContext(ctx, "Ledger processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Ledger processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *LedgerProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *LedgerProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.Backfill(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Backfill(ctx)
		}
	}
}

// Backfill exports one batch of confirmed payments not yet in the ledger and
// returns how many were written.
func (p *LedgerProcessor) Backfill(ctx context.Context) int {
	items, err := p.repo.ListUnexported(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to list unexported payments", applog.FieldError, err)
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	p.logger.DebugContext(ctx, "Exporting ledger batch", applog.FieldCount, len(items))

	written := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return written
		}
		if err := p.ExportPayment(ctx, item.ID); err != nil {
			p.logger.WarnContext(ctx, "Ledger export failed",
				applog.FieldPaymentID, item.ID,
				applog.FieldError, err)
			continue
		}
		written++
	}
	return written
}

// ExportPayment appends the payment to the ledger and marks it exported.
// Pending payments are rejected; already exported ones are skipped.
func (p *LedgerProcessor) ExportPayment(ctx context.Context, paymentID string) error {
	p.exportMu.Lock()
	defer p.exportMu.Unlock()

	pay, err := p.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("load payment: %w", err)
	}
	if pay.Status != core.StatusConfirmed {
		return fmt.Errorf("payment %s is %s", pay.ID, pay.Status)
	}
	done, err := p.repo.IsExported(ctx, pay.ID)
	if err != nil {
		return fmt.Errorf("check export: %w", err)
	}
	if done {
		p.logger.DebugContext(ctx, "Payment already exported", applog.FieldPaymentID, pay.ID)
		return nil
	}

	row := LedgerRow{
		PaymentID:  pay.ID,
		Reference:  pay.Reference,
		MemberName: core.MemberNamePlaceholder,
		AmountCRC:  pay.AmountCRC,
		DueDate:    pay.DueDate,
		Method:     pay.Method,
		Plan:       pay.Plan,
	}
	if pay.ConfirmedAt != nil {
		row.ConfirmedAt = *pay.ConfirmedAt
	}
	m, err := p.repo.GetMember(ctx, pay.MemberID)
	switch {
	case err == nil && m.Name != "":
		row.MemberName = m.Name
	case err != nil && !errors.Is(err, core.ErrMemberNotFound):
		return fmt.Errorf("load member: %w", err)
	}

	ref, err := p.ledger.AppendPayment(ctx, row)
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}
	if err := p.repo.MarkExported(ctx, pay.ID, ref, p.now()); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}

	p.logger.InfoContext(ctx, "Payment exported to ledger",
		applog.FieldPaymentID, pay.ID,
		applog.FieldAmountCRC, pay.AmountCRC,
		"ledger_ref", ref)
	return nil
}
