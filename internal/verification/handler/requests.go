package handler

import (
	"strings"
	"time"

	"veriflow/internal/verification/engine"
	"veriflow/internal/verification/models"
	dErrors "veriflow/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

// IntakeRequest is the HTTP request body for POST /cases.
type IntakeRequest struct {
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

	// Parsed values (populated by Validate)
	parsed models.Intake
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *IntakeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	docType, err := models.ParseDocumentType(strings.TrimSpace(r.DocumentType))
	if err != nil {
		return err
	}
	channel, err := models.ParseChannel(strings.TrimSpace(r.OnboardingChannel))
	if err != nil {
		return err
	}
	dob, err := parseDate(r.DateOfBirth, "date_of_birth")
	if err != nil {
		return err
	}
	expiry, err := parseDate(r.DocExpiry, "doc_expiry")
	if err != nil {
		return err
	}

	r.parsed = models.Intake{
		FullName:          r.FullName,
		Email:             r.Email,
		Country:           r.Country,
		IssuingCountry:    r.IssuingCountry,
		DocumentType:      docType,
		DocumentNumber:    r.DocumentNumber,
		DateOfBirth:       dob,
		DocExpiry:         expiry,
		IPCountry:         r.IPCountry,
		DeviceOS:          r.DeviceOS,
		DeviceFingerprint: strings.TrimSpace(r.DeviceFingerprint),
		AttemptCount:      r.AttemptCount,
		OnboardingChannel: channel,
		SelfieQuality:     r.SelfieQuality,
	}
	return nil
}

// ParsedIntake returns the validated intake attributes. Field-level checks
// (required fields, attempt and quality ranges) run in models.NewCase.
func (r *IntakeRequest) ParsedIntake() models.Intake {
	return r.parsed
}

// ReviewRequest is the HTTP request body for POST /cases/{caseID}/review.
type ReviewRequest struct {
	Decision     string `json:"decision"`
	ReviewerName string `json:"reviewer_name"`
	Notes        string `json:"notes"`

	parsedDecision models.Status
}

// Validate validates and parses the request.
func (r *ReviewRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.ReviewerName = strings.TrimSpace(r.ReviewerName)
	if r.ReviewerName == "" {
		return dErrors.New(dErrors.CodeValidation, "reviewer_name is required")
	}

	decision, err := models.ParseStatus(strings.TrimSpace(r.Decision))
	if err != nil {
		return err
	}
	if !decision.IsReviewDecision() {
		return dErrors.Newf(dErrors.CodeValidation, "decision %q is not a reviewable outcome", decision)
	}
	r.parsedDecision = decision
	return nil
}

// ParsedDecision returns the validated reviewer decision.
func (r *ReviewRequest) ParsedDecision() models.Status {
	return r.parsedDecision
}

// SimulateRequest is the HTTP request body for POST /cases/{caseID}/simulate.
// Omitted thresholds fall back to the production defaults.
type SimulateRequest struct {
	MinDocScore       *int  `json:"min_doc_score"`
	MinFaceMatch      *int  `json:"min_face_match"`
	FraudReviewCutoff *int  `json:"fraud_review_cutoff"`
	EnforceLiveness   *bool `json:"enforce_liveness"`

	parsed engine.Thresholds
}

// Validate validates and parses the request.
func (r *SimulateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	th := engine.DefaultThresholds()
	if r.MinDocScore != nil {
		th.MinDocScore = *r.MinDocScore
	}
	if r.MinFaceMatch != nil {
		th.MinFaceMatch = *r.MinFaceMatch
	}
	if r.FraudReviewCutoff != nil {
		th.FraudReviewCutoff = *r.FraudReviewCutoff
	}
	if r.EnforceLiveness != nil {
		th.EnforceLiveness = *r.EnforceLiveness
	}

	if th.MinDocScore < 0 || th.MinDocScore > 100 {
		return dErrors.New(dErrors.CodeValidation, "min_doc_score must be between 0 and 100")
	}
	if th.MinFaceMatch < 0 || th.MinFaceMatch > 100 {
		return dErrors.New(dErrors.CodeValidation, "min_face_match must be between 0 and 100")
	}
	if th.FraudReviewCutoff < 0 || th.FraudReviewCutoff > 100 {
		return dErrors.New(dErrors.CodeValidation, "fraud_review_cutoff must be between 0 and 100")
	}

	r.parsed = th
	return nil
}

// ParsedThresholds returns the validated threshold overrides.
func (r *SimulateRequest) ParsedThresholds() engine.Thresholds {
	return r.parsed
}

func parseDate(value, field string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, dErrors.Newf(dErrors.CodeValidation, "%s is required", field)
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, dErrors.Newf(dErrors.CodeValidation, "%s must be a YYYY-MM-DD date", field)
	}
	return t, nil
}
