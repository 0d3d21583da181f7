package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/invoice-adjust-backend/internal/adapters/billing"
	"github.com/ledgerline/invoice-adjust-backend/internal/api/dto"
	"github.com/ledgerline/invoice-adjust-backend/internal/application/service"
)

// InvoicesHandler handles invoice adjustment HTTP requests.
type InvoicesHandler struct {
	*Base
	adjustService *service.AdjustmentService
}

// NewInvoicesHandler creates a new invoices handler.
func NewInvoicesHandler(adjustService *service.AdjustmentService) *InvoicesHandler {
	return &InvoicesHandler{
		Base:          &Base{},
		adjustService: adjustService,
	}
}

// Apply handles POST /api/invoices/{id}/adjustments - solves for the
// discount and writes it to the provider as a single line item.
func (h *InvoicesHandler) Apply(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "id")
	if invoiceID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invoice ID is required"))
		return
	}

	var req dto.ApplyAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	if req.TaxRate == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("tax_rate is required"))
		return
	}

	rate, err := parseTaxRate(req.TaxRate)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("invalid tax_rate"))
		return
	}

	mode, err := parseRoundMode(req.RoundMode)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	result, err := h.adjustService.Apply(r.Context(), service.ApplyRequest{
		Provider:    req.Provider,
		InvoiceID:   invoiceID,
		TargetTotal: req.TargetTotal,
		TaxRate:     rate,
		RoundMode:   mode,
		Description: req.Description,
		DryRun:      req.DryRun,
	})
	if err != nil {
		h.writeApplyError(w, err)
		return
	}

	response := dto.ApplyAdjustmentResponse{
		RequestID:  result.RequestID,
		Provider:   result.Provider,
		InvoiceID:  invoiceID,
		LineItemID: result.LineItemID,
		DryRun:     result.DryRun,
		Outcome:    toOutcomeResponse(result.Outcome),
	}
	if result.Invoice != nil {
		response.Currency = result.Invoice.Currency
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// writeApplyError maps service errors to HTTP status codes.
func (h *InvoicesHandler) writeApplyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, billing.ErrInvoiceNotFound):
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("invoice"))
	case errors.Is(err, service.ErrInvoiceNotDraft), errors.Is(err, service.ErrZeroSubtotal):
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
	case errors.Is(err, service.ErrTargetUnreachable):
		h.WriteError(w, http.StatusUnprocessableEntity, dto.UnprocessableError(err.Error()))
	case errors.Is(err, service.ErrInvalidRequest):
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
	default:
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
	}
}
