package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"veriflow/internal/verification/models"
)

// Scoring constants. Each evaluator starts from a base and applies
// independent, additive adjustments; multiple triggers all fire and all
// reasons are reported.
const (
	docBaseScore          = 92
	docShortNumberPenalty = 22
	docExpiredPenalty     = 35
	docCountryPenalty     = 10
	docMinNumberLength    = 6

	faceMatchFloor    = 30
	livenessMinSelfie = 55
	livenessMaxTries  = 4
	faceMatchWarnAt   = 65

	fraudBaseRisk       = 10
	fraudGeoMismatch    = 18
	fraudAttemptStep    = 6
	fraudAttemptCap     = 25
	fraudReusePenalty   = 22
	fraudWeakDocPenalty = 14
	fraudWeakDocCutoff  = 60
	fraudAttemptTrigger = 2

	legalAge = 18
)

// pepKeywords are name tokens that trigger a politically-exposed-person flag.
var pepKeywords = []string{"minister", "senator", "mp", "council"}

// adverseTLDs are email TLDs flagged for adverse media screening.
var adverseTLDs = []string{".ru", ".cn", ".ir", ".kp"}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// evaluateDocument scores document authenticity with simple heuristics.
// Deductions are independent; the result is clamped to >= 0.
func evaluateDocument(c *models.Case, today time.Time) (int, []string) {
	score := docBaseScore
	var flags []string

	if len(c.DocumentNumber) < docMinNumberLength {
		score -= docShortNumberPenalty
		flags = append(flags, "Document number is shorter than expected")
	}
	if !c.DocExpiry.After(today) {
		score -= docExpiredPenalty
		flags = append(flags, "Document expired")
	}
	if c.Country != "" && c.IssuingCountry != "" && c.Country != c.IssuingCountry {
		score -= docCountryPenalty
		flags = append(flags, "Residence country differs from issuing country")
	}

	if score < 0 {
		score = 0
	}
	return score, flags
}

// evaluateBiometrics approximates face match and liveness from capture
// quality. It must run after the document evaluator because the document
// score feeds the face-match base. The floor of 30 is always enforced: an
// evaluator never reports below minimal confidence.
func evaluateBiometrics(c *models.Case, docScore int) (int, bool, []string) {
	base := 0.6*float64(c.SelfieQuality) + 0.4*float64(docScore)
	faceMatch := clamp(int(math.Round(base)), faceMatchFloor, 100)
	livenessPassed := c.SelfieQuality >= livenessMinSelfie && c.AttemptCount <= livenessMaxTries

	var reasons []string
	if !livenessPassed {
		reasons = append(reasons, "Motion / liveness confidence below threshold")
	}
	if faceMatch < faceMatchWarnAt {
		reasons = append(reasons, "Face match below recommended threshold")
	}
	return faceMatch, livenessPassed, reasons
}

// evaluateFraud simulates device/velocity/behaviour signals. reusedCount is
// the number of other cases sharing the device fingerprint; callers supply
// zero when the fingerprint is empty.
func evaluateFraud(c *models.Case, docScore, reusedCount int) (int, []string) {
	risk := fraudBaseRisk
	var signals []string

	if c.IPCountry != "" && c.Country != "" && c.IPCountry != c.Country {
		risk += fraudGeoMismatch
		signals = append(signals, "IP geolocation differs from claimed country")
	}
	if c.AttemptCount > fraudAttemptTrigger {
		extra := (c.AttemptCount - 1) * fraudAttemptStep
		if extra > fraudAttemptCap {
			extra = fraudAttemptCap
		}
		risk += extra
		signals = append(signals, fmt.Sprintf("%d capture attempts in session", c.AttemptCount))
	}
	if c.DeviceFingerprint != "" && reusedCount > 0 {
		risk += fraudReusePenalty
		signals = append(signals, fmt.Sprintf("Device fingerprint seen in %d other case(s)", reusedCount))
	}
	if docScore < fraudWeakDocCutoff {
		risk += fraudWeakDocPenalty
		signals = append(signals, "Low document security score")
	}

	if risk > 100 {
		risk = 100
	}
	return risk, signals
}

// evaluateAML runs lightweight watchlist pattern checks. Rules are
// independent; any subset may fire.
func evaluateAML(c *models.Case) models.AMLFindings {
	findings := models.AMLFindings{Notes: []string{}}

	loweredName := strings.ToLower(c.FullName)
	for _, token := range pepKeywords {
		if strings.Contains(loweredName, token) {
			findings.PEP = true
			findings.Notes = append(findings.Notes, "Potential PEP keyword in name")
			break
		}
	}
	if strings.HasSuffix(c.DocumentNumber, "999") {
		findings.Sanctions = true
		findings.Notes = append(findings.Notes, "Document number pattern seen on sanctions list sample")
	}
	loweredEmail := strings.ToLower(c.Email)
	for _, tld := range adverseTLDs {
		if strings.HasSuffix(loweredEmail, tld) {
			findings.AdverseMedia = true
			findings.Notes = append(findings.Notes, "Email TLD flagged for adverse media screening")
			break
		}
	}
	return findings
}

// evaluateAge computes calendar-aware age against the legal threshold.
func evaluateAge(dob, today time.Time) (int, bool) {
	age := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		age--
	}
	return age, age >= legalAge
}
