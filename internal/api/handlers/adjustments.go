package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/invoice-adjust-backend/internal/api/dto"
	"github.com/ledgerline/invoice-adjust-backend/internal/application/service"
	"github.com/ledgerline/invoice-adjust-backend/internal/domain/adjuster"
	"github.com/ledgerline/invoice-adjust-backend/internal/infrastructure/storage"
)

// AdjustmentsHandler handles adjustment-related HTTP requests.
type AdjustmentsHandler struct {
	*Base
	adjustService *service.AdjustmentService
}

// NewAdjustmentsHandler creates a new adjustments handler.
func NewAdjustmentsHandler(repo storage.Repository, adjustService *service.AdjustmentService) *AdjustmentsHandler {
	return &AdjustmentsHandler{
		Base:          NewBase(repo),
		adjustService: adjustService,
	}
}

// Preview handles POST /api/adjustments/preview - solves without touching
// any provider. Always returns 200 for a well-formed request; an
// unreachable target comes back with valid=false and a reason.
func (h *AdjustmentsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req dto.PreviewRequest
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

	outcome := h.adjustService.Preview(adjuster.Request{
		Subtotal:    req.Subtotal,
		TargetTotal: req.TargetTotal,
		TaxRate:     rate,
		RoundMode:   mode,
	})

	h.WriteJSON(w, http.StatusOK, toOutcomeResponse(outcome))
}

// List handles GET /api/adjustments - returns audit records with filters.
func (h *AdjustmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := storage.AdjustmentFilters{
		Provider:  r.URL.Query().Get("provider"),
		InvoiceID: r.URL.Query().Get("invoice_id"),
		Status:    r.URL.Query().Get("status"),
		Limit:     ParseIntParam(r, "limit", 50),
		Offset:    ParseIntParam(r, "offset", 0),
		OrderDesc: ParseBoolParam(r, "desc", true),
	}

	result, err := h.repo.ListAdjustments(filters)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.AdjustmentListResponse{
		Adjustments: make([]dto.AdjustmentResponse, 0, len(result.Adjustments)),
		TotalCount:  result.TotalCount,
		Limit:       result.Limit,
		Offset:      result.Offset,
	}

	for _, record := range result.Adjustments {
		response.Adjustments = append(response.Adjustments, toAdjustmentResponse(record))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/adjustments/{requestId} - returns one audit record.
func (h *AdjustmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestId")
	if requestID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("request ID is required"))
		return
	}

	record, err := h.repo.GetRecord(requestID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	if record == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("adjustment"))
		return
	}

	h.WriteJSON(w, http.StatusOK, toAdjustmentResponse(record))
}

// Stats handles GET /api/adjustments/stats - returns aggregate statistics.
func (h *AdjustmentsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.StatsResponse{
		TotalAdjustments: stats.TotalAdjustments,
		AppliedCount:     stats.AppliedCount,
		FailedCount:      stats.FailedCount,
		DryRunCount:      stats.DryRunCount,
		TotalDiscount:    stats.TotalDiscount,
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// toOutcomeResponse converts a solver outcome to an API response.
func toOutcomeResponse(outcome adjuster.Outcome) dto.OutcomeResponse {
	return dto.OutcomeResponse{
		Valid:            outcome.Valid,
		Discount:         outcome.Discount,
		AdjustedSubtotal: outcome.AdjustedSubtotal,
		TaxAmount:        outcome.TaxAmount,
		FinalTotal:       outcome.FinalTotal,
		Reason:           outcome.Reason,
	}
}

// toAdjustmentResponse converts a storage record to an API response.
func toAdjustmentResponse(record *storage.AdjustmentRecord) dto.AdjustmentResponse {
	return dto.AdjustmentResponse{
		ID:               record.ID,
		RequestID:        record.RequestID,
		Provider:         record.Provider,
		InvoiceID:        record.InvoiceID,
		Currency:         record.Currency,
		Subtotal:         record.Subtotal,
		TargetTotal:      record.TargetTotal,
		TaxRate:          record.TaxRate,
		RoundMode:        record.RoundMode,
		Discount:         record.Discount,
		AdjustedSubtotal: record.AdjustedSubtotal,
		TaxAmount:        record.TaxAmount,
		FinalTotal:       record.FinalTotal,
		Status:           record.Status,
		ErrorMessage:     record.ErrorMessage,
		LineItemID:       record.LineItemID,
		DryRun:           record.DryRun,
		AppliedAt:        record.AppliedAt.Format(time.RFC3339),
	}
}
