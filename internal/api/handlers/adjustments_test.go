package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/invoice-adjust-backend/internal/adapters/billing"
	"github.com/ledgerline/invoice-adjust-backend/internal/api/dto"
	"github.com/ledgerline/invoice-adjust-backend/internal/api/handlers"
	"github.com/ledgerline/invoice-adjust-backend/internal/application/service"
	"github.com/ledgerline/invoice-adjust-backend/internal/infrastructure/storage"
)

func setChiURLParam(ctx context.Context, key, value string) context.Context {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, rctx)
}

func newAdjustService(repo storage.Repository) *service.AdjustmentService {
	registry := billing.NewRegistry(nil)
	_ = registry.Register(billing.NewFake())
	return service.NewAdjustmentService(registry, repo, nil, "fake")
}

func TestAdjustmentsHandler_Preview(t *testing.T) {
	repo := storage.NewMockRepository()
	handler := handlers.NewAdjustmentsHandler(repo, newAdjustService(repo))

	t.Run("solves an exact adjustment", func(t *testing.T) {
		body := `{"subtotal": 290000, "target_total": 315000, "tax_rate": "0.1", "round_mode": "floor"}`
		req := httptest.NewRequest(http.MethodPost, "/api/adjustments/preview", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Preview(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.OutcomeResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		assert.True(t, response.Valid)
		assert.Equal(t, int64(3636), response.Discount)
		assert.Equal(t, int64(286364), response.AdjustedSubtotal)
		assert.Equal(t, int64(315000), response.FinalTotal)
	})

	t.Run("returns 200 with reason for unreachable target", func(t *testing.T) {
		body := `{"subtotal": 100, "target_total": 10, "tax_rate": "0.1"}`
		req := httptest.NewRequest(http.MethodPost, "/api/adjustments/preview", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Preview(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.OutcomeResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		assert.False(t, response.Valid)
		assert.NotEmpty(t, response.Reason)
	})

	t.Run("returns 400 for missing tax rate", func(t *testing.T) {
		body := `{"subtotal": 100, "target_total": 110}`
		req := httptest.NewRequest(http.MethodPost, "/api/adjustments/preview", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Preview(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("returns 400 for invalid round mode", func(t *testing.T) {
		body := `{"subtotal": 100, "target_total": 110, "tax_rate": "0.1", "round_mode": "bankers"}`
		req := httptest.NewRequest(http.MethodPost, "/api/adjustments/preview", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Preview(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("returns 400 for malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/adjustments/preview", strings.NewReader("not json"))
		rec := httptest.NewRecorder()

		handler.Preview(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAdjustmentsHandler_List(t *testing.T) {
	t.Run("returns empty list when no records", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewAdjustmentsHandler(repo, newAdjustService(repo))

		req := httptest.NewRequest(http.MethodGet, "/api/adjustments", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.AdjustmentListResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		assert.Empty(t, response.Adjustments)
		assert.Equal(t, 0, response.TotalCount)
	})

	t.Run("filters by provider", func(t *testing.T) {
		repo := storage.NewMockRepository()
		repo.AddRecord(&storage.AdjustmentRecord{
			RequestID: "req-1", Provider: "stripe", InvoiceID: "in_1",
			Status: storage.StatusApplied, AppliedAt: time.Now(),
		})
		repo.AddRecord(&storage.AdjustmentRecord{
			RequestID: "req-2", Provider: "fake", InvoiceID: "in_2",
			Status: storage.StatusApplied, AppliedAt: time.Now(),
		})
		handler := handlers.NewAdjustmentsHandler(repo, newAdjustService(repo))

		req := httptest.NewRequest(http.MethodGet, "/api/adjustments?provider=stripe", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.AdjustmentListResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		require.Len(t, response.Adjustments, 1)
		assert.Equal(t, "req-1", response.Adjustments[0].RequestID)
	})
}

func TestAdjustmentsHandler_Get(t *testing.T) {
	t.Run("returns record by request ID", func(t *testing.T) {
		repo := storage.NewMockRepository()
		repo.AddRecord(&storage.AdjustmentRecord{
			RequestID: "req-123", Provider: "fake", InvoiceID: "in_1",
			Discount: 3636, Status: storage.StatusApplied, AppliedAt: time.Now(),
		})
		handler := handlers.NewAdjustmentsHandler(repo, newAdjustService(repo))

		req := httptest.NewRequest(http.MethodGet, "/api/adjustments/req-123", nil)
		req = req.WithContext(setChiURLParam(req.Context(), "requestId", "req-123"))
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.AdjustmentResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		assert.Equal(t, "req-123", response.RequestID)
		assert.Equal(t, int64(3636), response.Discount)
	})

	t.Run("returns 404 for unknown request ID", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewAdjustmentsHandler(repo, newAdjustService(repo))

		req := httptest.NewRequest(http.MethodGet, "/api/adjustments/missing", nil)
		req = req.WithContext(setChiURLParam(req.Context(), "requestId", "missing"))
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)

		var response dto.APIError
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, dto.ErrCodeNotFound, response.Code)
	})
}

func TestAdjustmentsHandler_Stats(t *testing.T) {
	repo := storage.NewMockRepository()
	repo.AddRecord(&storage.AdjustmentRecord{
		RequestID: "req-1", Provider: "fake", InvoiceID: "in_1",
		Discount: 100, Status: storage.StatusApplied, AppliedAt: time.Now(),
	})
	repo.AddRecord(&storage.AdjustmentRecord{
		RequestID: "req-2", Provider: "fake", InvoiceID: "in_2",
		Status: storage.StatusFailed, AppliedAt: time.Now(),
	})
	handler := handlers.NewAdjustmentsHandler(repo, newAdjustService(repo))

	req := httptest.NewRequest(http.MethodGet, "/api/adjustments/stats", nil)
	rec := httptest.NewRecorder()

	handler.Stats(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.StatsResponse
	err := json.NewDecoder(rec.Body).Decode(&response)
	require.NoError(t, err)

	assert.Equal(t, 2, response.TotalAdjustments)
	assert.Equal(t, 1, response.AppliedCount)
	assert.Equal(t, 1, response.FailedCount)
	assert.Equal(t, int64(100), response.TotalDiscount)
}
