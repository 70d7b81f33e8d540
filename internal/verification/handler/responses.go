package handler

import (
	"time"

	"veriflow/internal/audit"
	"veriflow/internal/verification/engine"
	"veriflow/internal/verification/models"
)

// CaseResponse is the HTTP representation of a verification case.
type CaseResponse struct {
	ID                string `json:"id"`
	FullName          string `json:"full_name"`
	Email             string `json:"email"`
	Country           string `json:"country"`
	IssuingCountry    string `json:"issuing_country"`
	DocumentType      string `json:"document_type"`
	DocumentNumber    string `json:"document_number"`
	DateOfBirth       string `json:"date_of_birth"`
	DocExpiry         string `json:"doc_expiry"`
	IPCountry         string `json:"ip_country"`
	DeviceOS          string `json:"device_os"`
	DeviceFingerprint string `json:"device_fingerprint"`
	AttemptCount      int    `json:"attempt_count"`
	OnboardingChannel string `json:"onboarding_channel"`
	SelfieQuality     int    `json:"selfie_quality"`

	DocAuthenticityScore int                `json:"doc_authenticity_score"`
	FaceMatchScore       int                `json:"face_match_score"`
	LivenessPassed       bool               `json:"liveness_passed"`
	FraudRiskScore       int                `json:"fraud_risk_score"`
	FraudSignals         []string           `json:"fraud_signals"`
	AMLFindings          models.AMLFindings `json:"aml_findings"`
	AgeVerified          bool               `json:"age_verified"`
	Status               string             `json:"status"`
	RiskSummary          string             `json:"risk_summary"`

	ReviewerName  string     `json:"reviewer_name,omitempty"`
	ReviewerNotes string     `json:"reviewer_notes,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromCase converts a domain case to its HTTP representation.
func FromCase(c *models.Case) *CaseResponse {
	return &CaseResponse{
		ID:                   c.ID.String(),
		FullName:             c.FullName,
		Email:                c.Email,
		Country:              c.Country,
		IssuingCountry:       c.IssuingCountry,
		DocumentType:         string(c.DocumentType),
		DocumentNumber:       c.DocumentNumber,
		DateOfBirth:          c.DateOfBirth.Format(dateLayout),
		DocExpiry:            c.DocExpiry.Format(dateLayout),
		IPCountry:            c.IPCountry,
		DeviceOS:             c.DeviceOS,
		DeviceFingerprint:    c.DeviceFingerprint,
		AttemptCount:         c.AttemptCount,
		OnboardingChannel:    string(c.OnboardingChannel),
		SelfieQuality:        c.SelfieQuality,
		DocAuthenticityScore: c.DocAuthenticityScore,
		FaceMatchScore:       c.FaceMatchScore,
		LivenessPassed:       c.LivenessPassed,
		FraudRiskScore:       c.FraudRiskScore,
		FraudSignals:         c.FraudSignals,
		AMLFindings:          c.AMLFindings,
		AgeVerified:          c.AgeVerified,
		Status:               string(c.Status),
		RiskSummary:          c.RiskSummary,
		ReviewerName:         c.ReviewerName,
		ReviewerNotes:        c.ReviewerNotes,
		ReviewedAt:           c.ReviewedAt,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

// ListResponse wraps a page of cases.
type ListResponse struct {
	Cases []*CaseResponse `json:"cases"`
}

// FromCases converts a slice of domain cases.
func FromCases(cases []*models.Case) *ListResponse {
	out := &ListResponse{Cases: make([]*CaseResponse, 0, len(cases))}
	for _, c := range cases {
		out.Cases = append(out.Cases, FromCase(c))
	}
	return out
}

// SimulationResponse is the HTTP response for POST /cases/{caseID}/simulate.
type SimulationResponse struct {
	Decision   string            `json:"decision"`
	Reasons    []string          `json:"reasons"`
	Thresholds engine.Thresholds `json:"thresholds"`
}

// FromSimulation converts a simulation result.
func FromSimulation(result *engine.SimulationResult) *SimulationResponse {
	return &SimulationResponse{
		Decision:   string(result.Decision),
		Reasons:    result.Reasons,
		Thresholds: result.Thresholds,
	}
}

// AuditEventResponse is one entry in a case's audit trail.
type AuditEventResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// AuditTrailResponse wraps a case's audit events, newest first.
type AuditTrailResponse struct {
	Events []AuditEventResponse `json:"events"`
}

// FromAuditEvents converts audit events.
func FromAuditEvents(events []audit.Event) *AuditTrailResponse {
	out := &AuditTrailResponse{Events: make([]AuditEventResponse, 0, len(events))}
	for _, e := range events {
		out.Events = append(out.Events, AuditEventResponse{
			ID:          e.ID.String(),
			Type:        string(e.Type),
			Description: e.Description,
			Timestamp:   e.Timestamp,
		})
	}
	return out
}

// WebhookPreviewResponse is the HTTP response for
// POST /cases/{caseID}/webhook-preview.
type WebhookPreviewResponse struct {
	Payload   any    `json:"payload"`
	Signature string `json:"signature"`
}
