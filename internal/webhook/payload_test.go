package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriflow/internal/verification/models"
)

var deliveredAt = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func decidedCase(t *testing.T) *models.Case {
	t.Helper()
	c, err := models.NewCase(uuid.New(), models.Intake{
		FullName:          "Webhook Case",
		Email:             "webhook@test.dev",
		Country:           "Estonia",
		IssuingCountry:    "Estonia",
		DocumentType:      models.DocPassport,
		DocumentNumber:    "P1234567",
		DateOfBirth:       time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		DocExpiry:         deliveredAt.AddDate(1, 0, 0),
		DeviceOS:          "web",
		DeviceFingerprint: "web-abc",
		AttemptCount:      1,
		OnboardingChannel: models.ChannelWeb,
		SelfieQuality:     85,
	}, deliveredAt)
	require.NoError(t, err)
	c.ApplyEvaluation(&models.Evaluation{
		DocAuthenticityScore: 92,
		FaceMatchScore:       88,
		LivenessPassed:       true,
		FraudRiskScore:       10,
		AMLFindings:          models.AMLFindings{Notes: []string{}},
		AgeVerified:          true,
		Status:               models.StatusApproved,
		RiskSummary:          "All signals within acceptable ranges",
		EvaluatedAt:          deliveredAt,
	})
	return c
}

func TestBuildPayload(t *testing.T) {
	c := decidedCase(t)
	id := uuid.New()

	payload := BuildPayload(c, models.StatusApproved, id, deliveredAt)

	assert.Equal(t, id.String(), payload["id"])
	assert.Equal(t, "verification.approved", payload["type"])
	assert.Equal(t, "2026-03-15T12:00:00Z", payload["delivered_at"])

	data, ok := payload["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "approved", data["status"])
	assert.Equal(t, 92, data["doc_authenticity_score"])
	assert.Equal(t, true, data["age_verified"])
	assert.Contains(t, data, "device", "fingerprinted cases include device metadata")
	assert.NotContains(t, data, "aml", "clean cases omit the aml block")
}

func TestSign_Deterministic(t *testing.T) {
	c := decidedCase(t)
	id := uuid.New()
	signer := NewSigner("secret")

	first, err := signer.Sign(BuildPayload(c, models.StatusApproved, id, deliveredAt))
	require.NoError(t, err)
	second, err := signer.Sign(BuildPayload(c, models.StatusApproved, id, deliveredAt))
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical payloads must produce identical signatures")
	assert.Len(t, first, 64, "hex-encoded SHA-256")
}

func TestSign_ChangesWithData(t *testing.T) {
	c := decidedCase(t)
	id := uuid.New()
	signer := NewSigner("secret")

	payload := BuildPayload(c, models.StatusApproved, id, deliveredAt)
	sig, err := signer.Sign(payload)
	require.NoError(t, err)

	payload["data"].(map[string]any)["status"] = "needs_review"
	sig2, err := signer.Sign(payload)
	require.NoError(t, err)

	assert.NotEqual(t, sig, sig2, "any change inside data must change the signature")
}

func TestMarshal_SortedKeys(t *testing.T) {
	c := decidedCase(t)
	payload := BuildPayload(c, models.StatusApproved, uuid.New(), deliveredAt)

	body, err := payload.Marshal()
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &decoded))

	// Top-level keys appear in lexicographic order in the raw bytes.
	idx := func(key string) int {
		for i := 0; i < len(body); i++ {
			if i+len(key)+2 <= len(body) && string(body[i:i+len(key)+2]) == `"`+key+`"` {
				return i
			}
		}
		return -1
	}
	assert.Less(t, idx("data"), idx("delivered_at"))
	assert.Less(t, idx("delivered_at"), idx("id"))
	assert.Less(t, idx("id"), idx("type"))
}

func TestDispatcher_Deliver(t *testing.T) {
	c := decidedCase(t)
	signer := NewSigner("secret")
	payload := BuildPayload(c, models.StatusApproved, uuid.New(), deliveredAt)
	want, err := signer.Sign(payload)
	require.NoError(t, err)

	var hits atomic.Int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, want, r.Header.Get("X-Veriflow-Signature"))
		w.WriteHeader(http.StatusOK)
	}
	first := httptest.NewServer(http.HandlerFunc(handler))
	defer first.Close()
	second := httptest.NewServer(http.HandlerFunc(handler))
	defer second.Close()

	d := NewDispatcher([]string{first.URL, second.URL}, signer, time.Second, nil)
	require.NoError(t, d.Deliver(context.Background(), payload))
	assert.Equal(t, int32(2), hits.Load())
}

func TestDispatcher_FailureSurfaces(t *testing.T) {
	c := decidedCase(t)
	signer := NewSigner("secret")
	payload := BuildPayload(c, models.StatusRejected, uuid.New(), deliveredAt)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDispatcher([]string{srv.URL}, signer, time.Second, nil)
	assert.Error(t, d.Deliver(context.Background(), payload))
}

func TestDispatcher_NoEndpointsIsNoop(t *testing.T) {
	d := NewDispatcher(nil, NewSigner("secret"), time.Second, nil)
	assert.NoError(t, d.Deliver(context.Background(), Payload{"id": "x"}))
}
