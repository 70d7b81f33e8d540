package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriflow/internal/verification/models"
)

func evaluatedCase(t *testing.T) *models.Case {
	t.Helper()
	c := baseCase(t)
	c.ApplyEvaluation(&models.Evaluation{
		DocAuthenticityScore: 92,
		FaceMatchScore:       85,
		LivenessPassed:       true,
		FraudRiskScore:       10,
		AMLFindings:          models.AMLFindings{Notes: []string{}},
		AgeVerified:          true,
		Status:               models.StatusApproved,
		RiskSummary:          "All signals within acceptable ranges",
		EvaluatedAt:          evalNow,
	})
	return c
}

func TestSimulate_AllWithinThresholds(t *testing.T) {
	c := evaluatedCase(t)

	result := Simulate(c, DefaultThresholds(), evalNow)

	assert.Equal(t, models.StatusApproved, result.Decision)
	assert.Equal(t, []string{"all signals within thresholds"}, result.Reasons)
	assert.Equal(t, DefaultThresholds(), result.Thresholds)
}

func TestSimulate_StricterThresholdsFlipDecision(t *testing.T) {
	c := evaluatedCase(t)

	th := DefaultThresholds()
	th.MinFaceMatch = 90

	result := Simulate(c, th, evalNow)
	assert.Equal(t, models.StatusReview, result.Decision)
	assert.Contains(t, result.Reasons, "face match below threshold")
}

func TestSimulate_SanctionsHit(t *testing.T) {
	c := evaluatedCase(t)
	c.AMLFindings.Sanctions = true

	result := Simulate(c, DefaultThresholds(), evalNow)
	assert.Equal(t, models.StatusRejected, result.Decision)
	assert.Contains(t, result.Reasons, "sanctions hit")
}

// TestSimulate_SequentialOverwrite pins the simulator's documented behavior:
// checks reassign the status in evaluation order, so a review-level failure
// after a sanctions hit lands the decision on needs_review while both
// reasons are still reported. The primary resolver treats sanctions as
// terminal; the simulator deliberately does not.
func TestSimulate_SequentialOverwrite(t *testing.T) {
	c := evaluatedCase(t)
	c.AMLFindings.Sanctions = true
	c.FaceMatchScore = 40

	result := Simulate(c, DefaultThresholds(), evalNow)

	assert.Equal(t, models.StatusReview, result.Decision)
	assert.Contains(t, result.Reasons, "sanctions hit")
	assert.Contains(t, result.Reasons, "face match below threshold")
}

func TestSimulate_LivenessToggle(t *testing.T) {
	c := evaluatedCase(t)
	c.LivenessPassed = false

	t.Run("enforced", func(t *testing.T) {
		result := Simulate(c, DefaultThresholds(), evalNow)
		assert.Equal(t, models.StatusReview, result.Decision)
		assert.Contains(t, result.Reasons, "liveness failed")
	})

	t.Run("not enforced", func(t *testing.T) {
		th := DefaultThresholds()
		th.EnforceLiveness = false
		result := Simulate(c, th, evalNow)
		assert.Equal(t, models.StatusApproved, result.Decision)
	})
}

func TestSimulate_AgeCheck(t *testing.T) {
	c := evaluatedCase(t)
	c.DateOfBirth = evalNow.AddDate(-16, 0, 0)

	result := Simulate(c, DefaultThresholds(), evalNow)
	assert.Equal(t, models.StatusReview, result.Decision)
	assert.Contains(t, result.Reasons, "age below legal threshold")
}

func TestSimulate_DoesNotMutateCase(t *testing.T) {
	c := evaluatedCase(t)
	c.FaceMatchScore = 40
	c.AMLFindings.Sanctions = true
	snapshot := *c

	th := DefaultThresholds()
	th.MinDocScore = 99
	_ = Simulate(c, th, evalNow)

	require.Equal(t, snapshot.Status, c.Status)
	require.Equal(t, snapshot.RiskSummary, c.RiskSummary)
	require.Equal(t, snapshot.FaceMatchScore, c.FaceMatchScore)
	require.Equal(t, snapshot.AMLFindings, c.AMLFindings)
	require.Equal(t, snapshot.UpdatedAt, c.UpdatedAt)
}
