// Package webhook builds and signs decision notification payloads.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"veriflow/internal/verification/models"
)

// Payload is the wire shape delivered to webhook consumers. It is built as
// nested maps so serialization always emits keys in lexicographic order,
// which the signature depends on.
type Payload map[string]any

// BuildPayload assembles the notification for a decided case. The id and
// deliveredAt are caller-supplied so payloads stay reproducible in tests.
func BuildPayload(c *models.Case, decision models.Status, id uuid.UUID, deliveredAt time.Time) Payload {
	data := map[string]any{
		"status":                 string(decision),
		"doc_authenticity_score": c.DocAuthenticityScore,
		"face_match_score":       c.FaceMatchScore,
		"liveness_passed":        c.LivenessPassed,
		"fraud_risk_score":       c.FraudRiskScore,
		"age_verified":           c.AgeVerified,
		"risk_summary":           c.RiskSummary,
	}
	if len(c.AMLFindings.Hits()) > 0 {
		data["aml"] = map[string]any{
			"pep":           c.AMLFindings.PEP,
			"sanctions":     c.AMLFindings.Sanctions,
			"adverse_media": c.AMLFindings.AdverseMedia,
		}
	}
	if c.DeviceFingerprint != "" {
		data["device"] = map[string]any{
			"os":          c.DeviceOS,
			"fingerprint": c.DeviceFingerprint,
		}
	}

	return Payload{
		"id":           id.String(),
		"type":         fmt.Sprintf("verification.%s", decision),
		"data":         data,
		"delivered_at": deliveredAt.UTC().Format(time.RFC3339),
	}
}

// Marshal serializes the payload canonically: encoding/json emits map keys
// sorted lexicographically at every level.
func (p Payload) Marshal() ([]byte, error) {
	return json.Marshal(map[string]any(p))
}

// Signer computes payload signatures with a shared secret.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the hex-encoded HMAC-SHA256 of the canonical serialization.
// Identical payloads always produce identical signatures; any change inside
// data changes the signature.
func (s *Signer) Sign(p Payload) (string, error) {
	body, err := p.Marshal()
	if err != nil {
		return "", fmt.Errorf("marshal webhook payload: %w", err)
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil)), nil
}
