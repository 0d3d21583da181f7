package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/invoice-adjust-backend/internal/adapters/billing"
	"github.com/ledgerline/invoice-adjust-backend/internal/api/dto"
	"github.com/ledgerline/invoice-adjust-backend/internal/api/handlers"
	"github.com/ledgerline/invoice-adjust-backend/internal/application/service"
	"github.com/ledgerline/invoice-adjust-backend/internal/infrastructure/storage"
)

func newInvoicesHandler(t *testing.T) (*handlers.InvoicesHandler, *billing.Fake, *storage.MockRepository) {
	t.Helper()

	fake := billing.NewFake()
	registry := billing.NewRegistry(nil)
	require.NoError(t, registry.Register(fake))

	repo := storage.NewMockRepository()
	svc := service.NewAdjustmentService(registry, repo, nil, "fake")
	return handlers.NewInvoicesHandler(svc), fake, repo
}

func applyRequest(invoiceID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/invoices/"+invoiceID+"/adjustments", strings.NewReader(body))
	return req.WithContext(setChiURLParam(req.Context(), "id", invoiceID))
}

func TestInvoicesHandler_Apply(t *testing.T) {
	t.Run("applies an adjustment", func(t *testing.T) {
		handler, fake, _ := newInvoicesHandler(t)
		fake.SeedInvoice(billing.Invoice{
			ID: "in_1", Currency: "jpy", Subtotal: 290000, Status: billing.InvoiceStatusDraft,
		})

		rec := httptest.NewRecorder()
		handler.Apply(rec, applyRequest("in_1", `{"target_total": 315000, "tax_rate": "0.1"}`))

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.ApplyAdjustmentResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		assert.True(t, response.Outcome.Valid)
		assert.Equal(t, int64(3636), response.Outcome.Discount)
		assert.Equal(t, "jpy", response.Currency)
		assert.NotEmpty(t, response.RequestID)
		assert.NotEmpty(t, response.LineItemID)
		assert.True(t, fake.CreateLineItemCalled)
	})

	t.Run("returns 404 for unknown invoice", func(t *testing.T) {
		handler, _, _ := newInvoicesHandler(t)

		rec := httptest.NewRecorder()
		handler.Apply(rec, applyRequest("in_missing", `{"target_total": 100, "tax_rate": "0.1"}`))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("returns 409 for non-draft invoice", func(t *testing.T) {
		handler, fake, _ := newInvoicesHandler(t)
		fake.SeedInvoice(billing.Invoice{
			ID: "in_1", Subtotal: 1000, Status: billing.InvoiceStatusPaid,
		})

		rec := httptest.NewRecorder()
		handler.Apply(rec, applyRequest("in_1", `{"target_total": 1100, "tax_rate": "0.1"}`))

		assert.Equal(t, http.StatusConflict, rec.Code)

		var response dto.APIError
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, dto.ErrCodeConflict, response.Code)
	})

	t.Run("returns 422 for unreachable target", func(t *testing.T) {
		handler, fake, _ := newInvoicesHandler(t)
		fake.SeedInvoice(billing.Invoice{
			ID: "in_1", Subtotal: 100, Status: billing.InvoiceStatusDraft,
		})

		rec := httptest.NewRecorder()
		handler.Apply(rec, applyRequest("in_1", `{"target_total": 10, "tax_rate": "0.1", "round_mode": "floor"}`))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var response dto.APIError
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, dto.ErrCodeUnprocessable, response.Code)
		assert.False(t, fake.CreateLineItemCalled)
	})

	t.Run("returns 400 for invalid tax rate", func(t *testing.T) {
		handler, _, _ := newInvoicesHandler(t)

		rec := httptest.NewRecorder()
		handler.Apply(rec, applyRequest("in_1", `{"target_total": 100, "tax_rate": "ten percent"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("returns 500 on provider failure", func(t *testing.T) {
		handler, fake, _ := newInvoicesHandler(t)
		fake.SeedInvoice(billing.Invoice{
			ID: "in_1", Subtotal: 1000, Status: billing.InvoiceStatusDraft,
		})
		fake.CreateLineItemErr = errors.New("boom")

		rec := httptest.NewRecorder()
		handler.Apply(rec, applyRequest("in_1", `{"target_total": 990, "tax_rate": "0.1"}`))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.True(t, fake.CreateLineItemCalled)
	})

	t.Run("dry run skips the provider write", func(t *testing.T) {
		handler, fake, repo := newInvoicesHandler(t)
		fake.SeedInvoice(billing.Invoice{
			ID: "in_1", Subtotal: 10000, Status: billing.InvoiceStatusDraft,
		})

		rec := httptest.NewRecorder()
		handler.Apply(rec, applyRequest("in_1", `{"target_total": 9900, "tax_rate": "0.1", "dry_run": true}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, fake.CreateLineItemCalled)
		assert.Equal(t, storage.StatusDryRun, repo.LastSavedRecord.Status)
	})
}
