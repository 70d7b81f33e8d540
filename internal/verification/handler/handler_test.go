package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriflow/internal/audit"
	"veriflow/internal/verification/engine"
	"veriflow/internal/verification/service"
	"veriflow/internal/verification/store"
	"veriflow/internal/webhook"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	cases := store.NewInMemory()
	svc := service.New(cases, engine.New(cases),
		service.WithAuditPublisher(audit.NewPublisher(audit.NewInMemoryStore())),
		service.WithWebhooks(webhook.NewSigner("test-secret"), nil),
	)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func validIntakeBody() map[string]any {
	return map[string]any{
		"full_name":          "Aisha Rahman",
		"email":              "aisha@example.com",
		"country":            "GB",
		"issuing_country":    "GB",
		"document_type":      "passport",
		"document_number":    "P12345678",
		"date_of_birth":      "1994-06-01",
		"doc_expiry":         "2030-01-01",
		"ip_country":         "GB",
		"device_os":          "iOS",
		"device_fingerprint": "fp-aisha-1",
		"attempt_count":      1,
		"onboarding_channel": "ios",
		"selfie_quality":     88,
	}
}

func createCase(t *testing.T, router http.Handler) CaseResponse {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/cases", validIntakeBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp CaseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleCreate_Approved(t *testing.T) {
	router := newTestRouter(t)

	resp := createCase(t, router)
	assert.Equal(t, "approved", resp.Status)
	assert.Equal(t, 92, resp.DocAuthenticityScore)
	assert.True(t, resp.LivenessPassed)
	assert.True(t, resp.AgeVerified)
	assert.NotEmpty(t, resp.RiskSummary)
	assert.NotEmpty(t, resp.ID)
}

func TestHandleCreate_MalformedBody(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/cases", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad_request")
}

func TestHandleCreate_UnknownDocumentType(t *testing.T) {
	router := newTestRouter(t)

	body := validIntakeBody()
	body["document_type"] = "library_card"
	rec := doJSON(t, router, http.MethodPost, "/cases", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
}

func TestHandleCreate_BadDate(t *testing.T) {
	router := newTestRouter(t)

	body := validIntakeBody()
	body["date_of_birth"] = "01/06/1994"
	rec := doJSON(t, router, http.MethodPost, "/cases", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "date_of_birth")
}

func TestHandleGet_UnknownCase(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/cases/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGet_BadUUID(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/cases/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleList_StatusFilter(t *testing.T) {
	router := newTestRouter(t)
	created := createCase(t, router)

	rec := doJSON(t, router, http.MethodGet, "/cases?status=approved", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Cases, 1)
	assert.Equal(t, created.ID, list.Cases[0].ID)

	rec = doJSON(t, router, http.MethodGet, "/cases?status=needs_review", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Cases)
}

func TestHandleList_BadStatus(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/cases?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleReview(t *testing.T) {
	router := newTestRouter(t)
	created := createCase(t, router)

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/cases/%s/review", created.ID), map[string]any{
		"decision":      "rejected",
		"reviewer_name": "Dana Okafor",
		"notes":         "document image tampered",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CaseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rejected", resp.Status)
	assert.Equal(t, "Dana Okafor", resp.ReviewerName)
	require.NotNil(t, resp.ReviewedAt)
}

func TestHandleReview_MissingReviewer(t *testing.T) {
	router := newTestRouter(t)
	created := createCase(t, router)

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/cases/%s/review", created.ID), map[string]any{
		"decision": "rejected",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "reviewer_name")
}

func TestHandleSimulate_TightenedThreshold(t *testing.T) {
	router := newTestRouter(t)
	created := createCase(t, router)

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/cases/%s/simulate", created.ID), map[string]any{
		"min_doc_score": 95,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SimulationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "needs_review", resp.Decision)
	assert.Equal(t, 95, resp.Thresholds.MinDocScore)

	// The stored case keeps its production decision.
	rec = doJSON(t, router, http.MethodGet, "/cases/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stored CaseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, "approved", stored.Status)
}

func TestHandleSimulate_OutOfRangeThreshold(t *testing.T) {
	router := newTestRouter(t)
	created := createCase(t, router)

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/cases/%s/simulate", created.ID), map[string]any{
		"min_doc_score": 250,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAuditTrail(t *testing.T) {
	router := newTestRouter(t)
	created := createCase(t, router)

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/cases/%s/audit", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AuditTrailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "created", resp.Events[0].Type)
}

func TestHandleWebhookPreview(t *testing.T) {
	router := newTestRouter(t)
	created := createCase(t, router)

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/cases/%s/webhook-preview", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Payload   map[string]any `json:"payload"`
		Signature string         `json:"signature"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Signature)
	assert.Equal(t, "verification.approved", resp.Payload["type"])
}

func TestHandleStats(t *testing.T) {
	router := newTestRouter(t)
	createCase(t, router)

	rec := doJSON(t, router, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats store.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Approved)
}

func TestHandleVelocity(t *testing.T) {
	router := newTestRouter(t)
	createCase(t, router)

	rec := doJSON(t, router, http.MethodGet, "/velocity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	// A single case per fingerprint is not reuse.
	assert.Contains(t, rec.Body.String(), "fingerprints")
}
