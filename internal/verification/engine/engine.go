// Package engine holds the evaluation core: the signal evaluators, the
// decision resolver, and the policy simulator. All rules live here so they
// stay centralized and testable; the only I/O is the fingerprint reuse
// lookup, injected as a port.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"veriflow/internal/verification/models"
	"veriflow/internal/verification/ports"
	dErrors "veriflow/pkg/domain-errors"
)

// Decision thresholds for the default policy (see Thresholds for the
// simulator's caller-supplied variants).
const (
	minDocScore       = 55
	minFaceMatch      = 60
	fraudReviewCutoff = 45
)

// allClearSummary is the fixed sentence used when no reasons fired.
const allClearSummary = "All signals within acceptable ranges"

// Engine runs the full evaluation pipeline. It is stateless between
// invocations: each run is a pure function of the case, the clock, and one
// fingerprint reuse read.
type Engine struct {
	fingerprints ports.FingerprintLookup
}

func New(fingerprints ports.FingerprintLookup) *Engine {
	return &Engine{fingerprints: fingerprints}
}

// Evaluate runs every evaluator in order and resolves the final status. The
// case is not mutated; callers apply the returned Evaluation to storage.
//
// Status priority, first match wins:
//  1. sanctions hit            -> rejected
//  2. weak document/biometrics -> needs_review
//  3. elevated fraud risk      -> needs_review
//  4. otherwise                -> approved
//
// Age shortfall and PEP/adverse-media flags are recorded as reasons but do
// not change status under the default policy.
func (e *Engine) Evaluate(ctx context.Context, c *models.Case, now time.Time) (*models.Evaluation, error) {
	today := now

	docScore, docFlags := evaluateDocument(c, today)
	faceMatch, livenessPassed, biometricNotes := evaluateBiometrics(c, docScore)

	reusedCount := 0
	if c.DeviceFingerprint != "" {
		count, err := e.fingerprints.CountOtherCases(ctx, c.DeviceFingerprint, c.ID)
		if err != nil {
			// A failed lookup is not the same as zero reuse; surface it as a
			// retryable infrastructure error instead of undercounting.
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "fingerprint reuse lookup failed")
		}
		reusedCount = count
	}
	fraudRisk, fraudSignals := evaluateFraud(c, docScore, reusedCount)

	findings := evaluateAML(c)
	age, ageOK := evaluateAge(c.DateOfBirth, today)

	reasons := make([]string, 0, len(docFlags)+len(biometricNotes)+len(fraudSignals)+2)
	reasons = append(reasons, docFlags...)
	reasons = append(reasons, biometricNotes...)
	reasons = append(reasons, fraudSignals...)
	if hits := findings.Hits(); len(hits) > 0 {
		reasons = append(reasons, fmt.Sprintf("AML flags: %s", strings.Join(hits, ", ")))
	}
	if !ageOK {
		reasons = append(reasons, fmt.Sprintf("Age %d under threshold", age))
	}

	var status models.Status
	switch {
	case findings.Sanctions:
		status = models.StatusRejected
	case docScore < minDocScore || faceMatch < minFaceMatch || !livenessPassed:
		status = models.StatusReview
	case fraudRisk >= fraudReviewCutoff:
		status = models.StatusReview
	default:
		status = models.StatusApproved
	}

	summary := allClearSummary
	if len(reasons) > 0 {
		summary = strings.Join(reasons, "; ")
	}

	return &models.Evaluation{
		DocAuthenticityScore: docScore,
		DocFlags:             docFlags,
		FaceMatchScore:       faceMatch,
		LivenessPassed:       livenessPassed,
		BiometricNotes:       biometricNotes,
		FraudRiskScore:       fraudRisk,
		FraudSignals:         fraudSignals,
		AMLFindings:          findings,
		Age:                  age,
		AgeVerified:          ageOK,
		Status:               status,
		Reasons:              reasons,
		RiskSummary:          summary,
		EvaluatedAt:          now,
	}, nil
}
