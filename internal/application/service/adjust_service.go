// Package service orchestrates adjustment calculations against billing
// providers: fetch the invoice, solve for the discount, apply it as a
// single line item, and record an audit row.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/invoice-adjust-backend/internal/adapters/billing"
	"github.com/ledgerline/invoice-adjust-backend/internal/domain/adjuster"
	"github.com/ledgerline/invoice-adjust-backend/internal/domain/tax"
	"github.com/ledgerline/invoice-adjust-backend/internal/domain/validator"
	"github.com/ledgerline/invoice-adjust-backend/internal/infrastructure/storage"
)

// Sentinel errors for callers that need to branch on failure kind.
var (
	ErrInvoiceNotDraft   = errors.New("invoice is not in draft status")
	ErrZeroSubtotal      = errors.New("invoice subtotal is zero")
	ErrTargetUnreachable = errors.New("target total is not exactly reachable")
	ErrInvalidRequest    = errors.New("invalid adjustment request")
)

// DefaultLineItemDescription is used when the caller does not set one.
const DefaultLineItemDescription = "Total adjustment"

// ApplyRequest holds parameters for adjusting one invoice.
type ApplyRequest struct {
	Provider    string // registry name; empty uses the configured default
	InvoiceID   string
	TargetTotal int64
	TaxRate     decimal.Decimal
	RoundMode   tax.RoundMode
	Description string
	DryRun      bool
}

// ApplyResult is returned on a successful (or dry-run) apply.
type ApplyResult struct {
	RequestID  string
	Provider   string
	Invoice    *billing.Invoice
	Outcome    adjuster.Outcome
	LineItemID string
	DryRun     bool
}

// AdjustmentService coordinates the solver, billing providers and the
// audit store.
type AdjustmentService struct {
	registry        *billing.Registry
	storage         storage.Repository
	logger          *slog.Logger
	defaultProvider string

	// Reconcile job management
	jobs      map[string]*ReconcileJob
	jobsMutex sync.RWMutex

	// Provider-level locking (only one reconcile per provider at a time)
	providerLocks map[string]*sync.Mutex
	locksMutex    sync.Mutex
}

// NewAdjustmentService creates a new adjustment service.
func NewAdjustmentService(
	registry *billing.Registry,
	store storage.Repository,
	logger *slog.Logger,
	defaultProvider string,
) *AdjustmentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdjustmentService{
		registry:        registry,
		storage:         store,
		logger:          logger,
		defaultProvider: defaultProvider,
		jobs:            make(map[string]*ReconcileJob),
		providerLocks:   make(map[string]*sync.Mutex),
	}
}

// Preview solves an adjustment without touching any provider. The outcome
// may be invalid; callers inspect Outcome.Valid and Outcome.Reason.
func (s *AdjustmentService) Preview(req adjuster.Request) adjuster.Outcome {
	return adjuster.Solve(req)
}

// Apply fetches the invoice, solves for the discount, and applies it as a
// single line item. No remote write happens unless the solver found an
// exact adjustment and DryRun is false.
func (s *AdjustmentService) Apply(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = s.defaultProvider
	}

	provider, err := s.registry.Get(providerName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	invoice, err := provider.GetInvoice(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}

	// Only draft invoices can still receive line items.
	if invoice.Status != billing.InvoiceStatusDraft {
		return nil, fmt.Errorf("%w: invoice %s is %s", ErrInvoiceNotDraft, invoice.ID, invoice.Status)
	}
	if invoice.Subtotal == 0 {
		return nil, fmt.Errorf("%w: invoice %s", ErrZeroSubtotal, invoice.ID)
	}

	// Sanity-check the provider's own total against the requested tax
	// policy. A mismatch does not block the adjustment but is worth a
	// warning: it usually means the wrong rate or mode for this invoice.
	if check := validator.ValidateTotals(invoice.Subtotal, invoice.Total, req.TaxRate, req.RoundMode); !check.Valid {
		s.logger.Warn("invoice total inconsistent with requested tax policy",
			"invoice_id", invoice.ID,
			"provider", providerName,
			"reason", check.Reason,
		)
	}

	outcome := adjuster.Solve(adjuster.Request{
		Subtotal:    invoice.Subtotal,
		TargetTotal: req.TargetTotal,
		TaxRate:     req.TaxRate,
		RoundMode:   req.RoundMode,
	})

	requestID := uuid.NewString()
	record := s.buildRecord(requestID, providerName, invoice, req, outcome)

	if !outcome.Valid {
		record.Status = storage.StatusFailed
		record.ErrorMessage = outcome.Reason
		s.saveRecord(record)
		return nil, fmt.Errorf("%w: %s", ErrTargetUnreachable, outcome.Reason)
	}

	result := &ApplyResult{
		RequestID: requestID,
		Provider:  providerName,
		Invoice:   invoice,
		Outcome:   outcome,
		DryRun:    req.DryRun,
	}

	if req.DryRun {
		record.Status = storage.StatusDryRun
		record.DryRun = true
		s.saveRecord(record)
		s.logger.Info("dry run: would apply adjustment",
			"provider", providerName,
			"invoice_id", invoice.ID,
			"discount", outcome.Discount,
			"final_total", outcome.FinalTotal,
		)
		return result, nil
	}

	description := req.Description
	if description == "" {
		description = DefaultLineItemDescription
	}

	// A positive discount becomes a negative line item and vice versa.
	lineItemID, err := provider.CreateLineItem(ctx, invoice.ID, billing.LineItem{
		Amount:      -outcome.Discount,
		Description: description,
		Metadata: map[string]string{
			"original_subtotal": strconv.FormatInt(invoice.Subtotal, 10),
			"target_total":      strconv.FormatInt(req.TargetTotal, 10),
			"discount":          strconv.FormatInt(outcome.Discount, 10),
			"request_id":        requestID,
		},
	})
	if err != nil {
		record.Status = storage.StatusFailed
		record.ErrorMessage = err.Error()
		s.saveRecord(record)
		return nil, fmt.Errorf("apply adjustment to %s: %w", invoice.ID, err)
	}

	record.Status = storage.StatusApplied
	record.LineItemID = lineItemID
	s.saveRecord(record)

	result.LineItemID = lineItemID

	s.logger.Info("applied adjustment",
		"provider", providerName,
		"invoice_id", invoice.ID,
		"line_item_id", lineItemID,
		"discount", outcome.Discount,
		"final_total", outcome.FinalTotal,
	)

	return result, nil
}

func (s *AdjustmentService) buildRecord(
	requestID, providerName string,
	invoice *billing.Invoice,
	req ApplyRequest,
	outcome adjuster.Outcome,
) *storage.AdjustmentRecord {
	mode := req.RoundMode
	if mode == "" {
		mode = tax.DefaultRoundMode
	}
	return &storage.AdjustmentRecord{
		RequestID:        requestID,
		Provider:         providerName,
		InvoiceID:        invoice.ID,
		Currency:         invoice.Currency,
		Subtotal:         invoice.Subtotal,
		TargetTotal:      req.TargetTotal,
		TaxRate:          req.TaxRate.String(),
		RoundMode:        string(mode),
		Discount:         outcome.Discount,
		AdjustedSubtotal: outcome.AdjustedSubtotal,
		TaxAmount:        outcome.TaxAmount,
		FinalTotal:       outcome.FinalTotal,
		DryRun:           req.DryRun,
	}
}

// saveRecord writes the audit row. A storage failure must not undo an
// already-applied remote write, so it is logged instead of returned.
func (s *AdjustmentService) saveRecord(record *storage.AdjustmentRecord) {
	if s.storage == nil {
		return
	}
	if err := s.storage.SaveRecord(record); err != nil {
		s.logger.Error("failed to save adjustment record",
			"request_id", record.RequestID,
			"invoice_id", record.InvoiceID,
			"error", err,
		)
	}
}
