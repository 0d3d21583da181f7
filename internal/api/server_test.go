package api_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/invoice-adjust-backend/internal/adapters/billing"
	"github.com/ledgerline/invoice-adjust-backend/internal/api"
	"github.com/ledgerline/invoice-adjust-backend/internal/api/dto"
	"github.com/ledgerline/invoice-adjust-backend/internal/application/service"
	"github.com/ledgerline/invoice-adjust-backend/internal/infrastructure/storage"
)

func newTestServer(t *testing.T) (*api.Server, *billing.Fake, *storage.MockRepository) {
	t.Helper()

	fake := billing.NewFake()
	registry := billing.NewRegistry(nil)
	require.NoError(t, registry.Register(fake))

	repo := storage.NewMockRepository()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := service.NewAdjustmentService(registry, repo, logger, "fake")
	server := api.NewServer(api.DefaultConfig(), repo, registry, svc, logger)
	return server, fake, repo
}

func TestServer_HealthEndpoint(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.HealthResponse
	err := json.NewDecoder(rec.Body).Decode(&response)
	require.NoError(t, err)
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "ok", response.Providers["fake"])
}

func TestServer_PreviewEndpoint(t *testing.T) {
	server, _, _ := newTestServer(t)

	body := `{"subtotal": 290000, "target_total": 315000, "tax_rate": "0.1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/adjustments/preview", strings.NewReader(body))
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.OutcomeResponse
	err := json.NewDecoder(rec.Body).Decode(&response)
	require.NoError(t, err)
	assert.True(t, response.Valid)
	assert.Equal(t, int64(3636), response.Discount)
}

func TestServer_ApplyEndpoint(t *testing.T) {
	t.Run("POST /api/invoices/:id/adjustments applies and audits", func(t *testing.T) {
		server, fake, repo := newTestServer(t)
		fake.SeedInvoice(billing.Invoice{
			ID: "in_1", Currency: "usd", Subtotal: 10000, Status: billing.InvoiceStatusDraft,
		})

		body := `{"target_total": 9900, "tax_rate": "0.1"}`
		req := httptest.NewRequest(http.MethodPost, "/api/invoices/in_1/adjustments", strings.NewReader(body))
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.ApplyAdjustmentResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, "in_1", response.InvoiceID)
		assert.True(t, response.Outcome.Valid)

		// Audit record is queryable through the API afterwards
		getReq := httptest.NewRequest(http.MethodGet, "/api/adjustments/"+response.RequestID, nil)
		getRec := httptest.NewRecorder()

		server.Router().ServeHTTP(getRec, getReq)

		assert.Equal(t, http.StatusOK, getRec.Code)
		assert.True(t, repo.SaveRecordCalled)
	})

	t.Run("unknown invoice returns 404", func(t *testing.T) {
		server, _, _ := newTestServer(t)

		body := `{"target_total": 100, "tax_rate": "0.1"}`
		req := httptest.NewRequest(http.MethodPost, "/api/invoices/in_missing/adjustments", strings.NewReader(body))
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_AdjustmentsEndpoints(t *testing.T) {
	t.Run("GET /api/adjustments returns records", func(t *testing.T) {
		server, _, repo := newTestServer(t)
		repo.AddRecord(&storage.AdjustmentRecord{
			RequestID: "req-1", Provider: "fake", InvoiceID: "in_1",
			Status: storage.StatusApplied, AppliedAt: time.Now(),
		})

		req := httptest.NewRequest(http.MethodGet, "/api/adjustments", nil)
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.AdjustmentListResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, 1, response.TotalCount)
	})

	t.Run("GET /api/adjustments/stats returns aggregates", func(t *testing.T) {
		server, _, repo := newTestServer(t)
		repo.AddRecord(&storage.AdjustmentRecord{
			RequestID: "req-1", Provider: "fake", InvoiceID: "in_1",
			Discount: 250, Status: storage.StatusApplied, AppliedAt: time.Now(),
		})

		req := httptest.NewRequest(http.MethodGet, "/api/adjustments/stats", nil)
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.StatsResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, 1, response.AppliedCount)
		assert.Equal(t, int64(250), response.TotalDiscount)
	})
}

func TestServer_ReconcileEndpoints(t *testing.T) {
	server, fake, _ := newTestServer(t)
	fake.SeedInvoice(billing.Invoice{
		ID: "in_1", Subtotal: 10000, Status: billing.InvoiceStatusDraft,
	})

	body := `{"targets": [{"invoice_id": "in_1", "target_total": 9900}], "tax_rate": "0.1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/reconcile", strings.NewReader(body))
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	var started dto.StartReconcileResponse
	err := json.NewDecoder(rec.Body).Decode(&started)
	require.NoError(t, err)
	require.NotEmpty(t, started.JobID)

	require.Eventually(t, func() bool {
		getReq := httptest.NewRequest(http.MethodGet, "/api/reconcile/"+started.JobID, nil)
		getRec := httptest.NewRecorder()
		server.Router().ServeHTTP(getRec, getReq)
		if getRec.Code != http.StatusOK {
			return false
		}
		var job dto.ReconcileJobResponse
		if err := json.NewDecoder(getRec.Body).Decode(&job); err != nil {
			return false
		}
		return job.Status == "completed" && job.Progress.Adjusted == 1
	}, 5*time.Second, 10*time.Millisecond)

	listReq := httptest.NewRequest(http.MethodGet, "/api/reconcile", nil)
	listRec := httptest.NewRecorder()

	server.Router().ServeHTTP(listRec, listReq)

	assert.Equal(t, http.StatusOK, listRec.Code)

	var list dto.ReconcileJobListResponse
	err = json.NewDecoder(listRec.Body).Decode(&list)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Count)
}

func TestServer_CORS(t *testing.T) {
	server, _, _ := newTestServer(t)

	t.Run("sets CORS headers for allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("handles OPTIONS preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/adjustments", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
