package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "veriflow/pkg/domain-errors"
)

// Status is the terminal state of a verification case.
type Status string

const (
	StatusPending  Status = "pending"
	StatusReview   Status = "needs_review"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusReview, StatusApproved, StatusRejected:
		return Status(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown status %q", s)
}

// ReviewDecisions are the statuses a human reviewer may set directly.
func (s Status) IsReviewDecision() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusReview
}

// DocumentType enumerates accepted identity documents.
type DocumentType string

const (
	DocPassport        DocumentType = "passport"
	DocDriverLicense   DocumentType = "driver_license"
	DocNationalID      DocumentType = "national_id"
	DocResidencePermit DocumentType = "residence_permit"
)

// ParseDocumentType validates a document type string.
func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(s) {
	case DocPassport, DocDriverLicense, DocNationalID, DocResidencePermit:
		return DocumentType(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown document type %q", s)
}

// Channel is the onboarding surface the case arrived through.
type Channel string

const (
	ChannelWeb     Channel = "web"
	ChannelIOS     Channel = "ios"
	ChannelAndroid Channel = "android"
)

// ParseChannel validates an onboarding channel string.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelWeb, ChannelIOS, ChannelAndroid:
		return Channel(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown onboarding channel %q", s)
}

// AMLFindings is the structured watchlist screening result.
type AMLFindings struct {
	PEP          bool     `json:"pep"`
	Sanctions    bool     `json:"sanctions"`
	AdverseMedia bool     `json:"adverse_media"`
	Notes        []string `json:"notes"`
}

// Hits returns the flag names that fired, in a fixed order.
func (f AMLFindings) Hits() []string {
	var hits []string
	if f.PEP {
		hits = append(hits, "pep")
	}
	if f.Sanctions {
		hits = append(hits, "sanctions")
	}
	if f.AdverseMedia {
		hits = append(hits, "adverse_media")
	}
	return hits
}

// Intake holds the declared attributes submitted by the caller. These are
// immutable after case creation.
type Intake struct {
	FullName          string
	Email             string
	Country           string
	IssuingCountry    string
	DocumentType      DocumentType
	DocumentNumber    string
	DateOfBirth       time.Time
	DocExpiry         time.Time
	IPCountry         string
	DeviceOS          string
	DeviceFingerprint string
	AttemptCount      int
	OnboardingChannel Channel
	SelfieQuality     int
}

// Case is one identity-verification attempt.
//
// Invariants:
//   - All scores are clamped to [0, 100] (face match to [30, 100]).
//   - Status is always one of the four enum values; pending only before
//     the first evaluation run.
//   - Sanctions == true in AML findings forces Status == rejected.
//   - RiskSummary is non-empty after an evaluation run.
//   - AttemptCount >= 1, enforced at intake, never silently clamped.
type Case struct {
	ID uuid.UUID

	// Declared attributes (immutable after intake).
	FullName          string
	Email             string
	Country           string
	IssuingCountry    string
	DocumentType      DocumentType
	DocumentNumber    string
	DateOfBirth       time.Time
	DocExpiry         time.Time
	IPCountry         string
	DeviceOS          string
	DeviceFingerprint string
	AttemptCount      int
	OnboardingChannel Channel
	SelfieQuality     int

	// Derived attributes (written only by the engine or a reviewer).
	DocAuthenticityScore int
	FaceMatchScore       int
	LivenessPassed       bool
	FraudRiskScore       int
	FraudSignals         []string
	AMLFindings          AMLFindings
	AgeVerified          bool
	Status               Status
	RiskSummary          string

	ReviewerName  string
	ReviewerNotes string
	ReviewedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCase validates intake input and constructs a pending case. Malformed
// input is rejected before any evaluation runs.
func NewCase(id uuid.UUID, in Intake, now time.Time) (*Case, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.DocumentNumber = strings.TrimSpace(in.DocumentNumber)

	if in.FullName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "full_name is required")
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if in.DocumentNumber == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "document_number is required")
	}
	if in.DateOfBirth.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "date_of_birth is required")
	}
	if in.DocExpiry.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "doc_expiry is required")
	}
	if in.AttemptCount < 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "attempt_count must be at least 1")
	}
	if in.SelfieQuality < 0 || in.SelfieQuality > 100 {
		return nil, dErrors.New(dErrors.CodeValidation, "selfie_quality must be between 0 and 100")
	}
	if _, err := ParseDocumentType(string(in.DocumentType)); err != nil {
		return nil, err
	}
	if _, err := ParseChannel(string(in.OnboardingChannel)); err != nil {
		return nil, err
	}

	return &Case{
		ID:                id,
		FullName:          in.FullName,
		Email:             in.Email,
		Country:           strings.TrimSpace(in.Country),
		IssuingCountry:    strings.TrimSpace(in.IssuingCountry),
		DocumentType:      in.DocumentType,
		DocumentNumber:    in.DocumentNumber,
		DateOfBirth:       in.DateOfBirth,
		DocExpiry:         in.DocExpiry,
		IPCountry:         strings.TrimSpace(in.IPCountry),
		DeviceOS:          in.DeviceOS,
		DeviceFingerprint: in.DeviceFingerprint,
		AttemptCount:      in.AttemptCount,
		OnboardingChannel: in.OnboardingChannel,
		SelfieQuality:     in.SelfieQuality,
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Evaluation is the immutable result of one full engine run. The engine
// returns it without touching the case; callers apply it to storage. This
// keeps partial writes impossible: either every derived field lands or none.
type Evaluation struct {
	DocAuthenticityScore int
	DocFlags             []string
	FaceMatchScore       int
	LivenessPassed       bool
	BiometricNotes       []string
	FraudRiskScore       int
	FraudSignals         []string
	AMLFindings          AMLFindings
	Age                  int
	AgeVerified          bool
	Status               Status
	Reasons              []string
	RiskSummary          string
	EvaluatedAt          time.Time
}

// ApplyEvaluation writes every derived field from a completed run in one
// step, preserving the all-or-nothing transition invariant.
func (c *Case) ApplyEvaluation(ev *Evaluation) {
	c.DocAuthenticityScore = ev.DocAuthenticityScore
	c.FaceMatchScore = ev.FaceMatchScore
	c.LivenessPassed = ev.LivenessPassed
	c.FraudRiskScore = ev.FraudRiskScore
	c.FraudSignals = ev.FraudSignals
	c.AMLFindings = ev.AMLFindings
	c.AgeVerified = ev.AgeVerified
	c.Status = ev.Status
	c.RiskSummary = ev.RiskSummary
	c.UpdatedAt = ev.EvaluatedAt
}

// MarkReviewed records a direct human decision, bypassing the evaluators.
func (c *Case) MarkReviewed(decision Status, reviewerName, notes string, now time.Time) error {
	if !decision.IsReviewDecision() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid review decision %q", decision)
	}
	c.Status = decision
	c.ReviewerName = reviewerName
	c.ReviewerNotes = notes
	c.ReviewedAt = &now
	c.UpdatedAt = now
	return nil
}
