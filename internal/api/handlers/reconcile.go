package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/invoice-adjust-backend/internal/api/dto"
	"github.com/ledgerline/invoice-adjust-backend/internal/application/service"
)

// ReconcileHandler handles reconcile job HTTP requests.
type ReconcileHandler struct {
	*Base
	adjustService *service.AdjustmentService
}

// NewReconcileHandler creates a new reconcile handler.
func NewReconcileHandler(adjustService *service.AdjustmentService) *ReconcileHandler {
	return &ReconcileHandler{
		Base:          &Base{},
		adjustService: adjustService,
	}
}

// Start handles POST /api/reconcile - starts a batch reconcile job.
func (h *ReconcileHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	if len(req.Targets) == 0 {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("targets is required"))
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

	targets := make([]service.ReconcileTarget, 0, len(req.Targets))
	for _, target := range req.Targets {
		targets = append(targets, service.ReconcileTarget{
			InvoiceID:   target.InvoiceID,
			TargetTotal: target.TargetTotal,
		})
	}

	jobID, err := h.adjustService.StartReconcile(r.Context(), service.ReconcileRequest{
		Provider:  req.Provider,
		Targets:   targets,
		TaxRate:   rate,
		RoundMode: mode,
		DryRun:    req.DryRun,
	})
	if err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	job, err := h.adjustService.GetReconcileJob(jobID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusAccepted, dto.StartReconcileResponse{
		JobID:    jobID,
		Provider: job.Provider,
		Status:   string(job.Status),
	})
}

// Get handles GET /api/reconcile/{jobId} - returns reconcile job status.
func (h *ReconcileHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	job, err := h.adjustService.GetReconcileJob(jobID)
	if err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("reconcile job"))
		return
	}

	h.WriteJSON(w, http.StatusOK, toReconcileJobResponse(job))
}

// List handles GET /api/reconcile - lists all reconcile jobs.
func (h *ReconcileHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.adjustService.ListReconcileJobs()

	response := dto.ReconcileJobListResponse{
		Jobs:  make([]dto.ReconcileJobResponse, 0, len(jobs)),
		Count: len(jobs),
	}

	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toReconcileJobResponse(job))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Cancel handles DELETE /api/reconcile/{jobId} - cancels a running job.
func (h *ReconcileHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	if err := h.adjustService.CancelReconcile(jobID); err != nil {
		h.WriteError(w, http.StatusConflict, dto.APIError{
			Code:    "cancel_failed",
			Message: err.Error(),
		})
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "Reconcile job cancelled successfully",
	})
}

// toReconcileJobResponse converts a service job to an API response.
func toReconcileJobResponse(job *service.ReconcileJob) dto.ReconcileJobResponse {
	response := dto.ReconcileJobResponse{
		JobID:     job.ID,
		Provider:  job.Provider,
		Status:    string(job.Status),
		DryRun:    job.Request.DryRun,
		StartedAt: job.StartedAt.Format(time.RFC3339),
		Errors:    job.Errors,
		Progress: dto.ReconcileProgressResponse{
			CurrentPhase:  job.Progress.CurrentPhase,
			TotalInvoices: job.Progress.TotalInvoices,
			Adjusted:      job.Progress.Adjusted,
			Skipped:       job.Progress.Skipped,
			Errored:       job.Progress.Errored,
			LastUpdate:    job.Progress.LastUpdate.Format(time.RFC3339),
		},
	}

	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completedAt
	}

	return response
}
