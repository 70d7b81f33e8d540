package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"veriflow/internal/verification/models"
	"veriflow/pkg/sentinel"
)

// Postgres persists cases in the cases table (see migrations/0001_init.sql).
// Same-case writers are serialized by row-level locking on UPDATE.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const caseColumns = `
	id, full_name, email, country, issuing_country, document_type,
	document_number, date_of_birth, doc_expiry, ip_country, device_os,
	device_fingerprint, attempt_count, onboarding_channel, selfie_quality,
	doc_authenticity_score, face_match_score, liveness_passed,
	fraud_risk_score, fraud_signals, aml_findings, age_verified, status,
	risk_summary, reviewer_name, reviewer_notes, reviewed_at,
	created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, c *models.Case) error {
	findings, err := json.Marshal(c.AMLFindings)
	if err != nil {
		return fmt.Errorf("marshal aml findings: %w", err)
	}

	query := `
		INSERT INTO cases (` + caseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27,
			$28, $29)
	`
	_, err = s.db.ExecContext(ctx, query,
		c.ID, c.FullName, c.Email, c.Country, c.IssuingCountry, c.DocumentType,
		c.DocumentNumber, c.DateOfBirth, c.DocExpiry, c.IPCountry, c.DeviceOS,
		c.DeviceFingerprint, c.AttemptCount, c.OnboardingChannel, c.SelfieQuality,
		c.DocAuthenticityScore, c.FaceMatchScore, c.LivenessPassed,
		c.FraudRiskScore, pq.Array(c.FraudSignals), findings, c.AgeVerified, c.Status,
		c.RiskSummary, c.ReviewerName, c.ReviewerNotes, c.ReviewedAt,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, c *models.Case) error {
	findings, err := json.Marshal(c.AMLFindings)
	if err != nil {
		return fmt.Errorf("marshal aml findings: %w", err)
	}

	query := `
		UPDATE cases SET
			doc_authenticity_score = $2,
			face_match_score = $3,
			liveness_passed = $4,
			fraud_risk_score = $5,
			fraud_signals = $6,
			aml_findings = $7,
			age_verified = $8,
			status = $9,
			risk_summary = $10,
			reviewer_name = $11,
			reviewer_notes = $12,
			reviewed_at = $13,
			updated_at = $14
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		c.ID,
		c.DocAuthenticityScore, c.FaceMatchScore, c.LivenessPassed,
		c.FraudRiskScore, pq.Array(c.FraudSignals), findings, c.AgeVerified,
		c.Status, c.RiskSummary, c.ReviewerName, c.ReviewerNotes, c.ReviewedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, id)
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find case: %w", err)
	}
	return c, nil
}

func (s *Postgres) List(ctx context.Context, filter Filter) ([]*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var cases []*models.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return cases, nil
}

// CountOtherCases is the fraud evaluator's reuse lookup: a single indexed
// count that must exclude the case under evaluation.
func (s *Postgres) CountOtherCases(ctx context.Context, fingerprint string, excludeCaseID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM cases WHERE device_fingerprint = $1 AND id <> $2`
	var count int
	if err := s.db.QueryRowContext(ctx, query, fingerprint, excludeCaseID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count fingerprint reuse: %w", err)
	}
	return count, nil
}

func (s *Postgres) Stats(ctx context.Context) (Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'needs_review'),
			COUNT(*) FILTER (WHERE status = 'rejected'),
			COALESCE(AVG(doc_authenticity_score), 0)::int,
			COALESCE(AVG(face_match_score), 0)::int,
			COALESCE(AVG(fraud_risk_score), 0)::int
		FROM cases
	`
	var stats Stats
	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.Total, &stats.Approved, &stats.NeedsReview, &stats.Rejected,
		&stats.AvgDocScore, &stats.AvgFaceMatch, &stats.AvgFraudRisk,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate case stats: %w", err)
	}
	return stats, nil
}

func (s *Postgres) FingerprintReuse(ctx context.Context) ([]FingerprintUsage, error) {
	query := `
		SELECT device_fingerprint, COUNT(*)
		FROM cases
		WHERE device_fingerprint <> ''
		GROUP BY device_fingerprint
		HAVING COUNT(*) > 1
		ORDER BY COUNT(*) DESC, device_fingerprint
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query fingerprint reuse: %w", err)
	}
	defer rows.Close()

	var usage []FingerprintUsage
	for rows.Next() {
		var u FingerprintUsage
		if err := rows.Scan(&u.Fingerprint, &u.Cases); err != nil {
			return nil, fmt.Errorf("scan fingerprint usage: %w", err)
		}
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fingerprint usage: %w", err)
	}
	return usage, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*models.Case, error) {
	var (
		c          models.Case
		signals    pq.StringArray
		findings   []byte
		reviewedAt sql.NullTime
	)
	err := row.Scan(
		&c.ID, &c.FullName, &c.Email, &c.Country, &c.IssuingCountry, &c.DocumentType,
		&c.DocumentNumber, &c.DateOfBirth, &c.DocExpiry, &c.IPCountry, &c.DeviceOS,
		&c.DeviceFingerprint, &c.AttemptCount, &c.OnboardingChannel, &c.SelfieQuality,
		&c.DocAuthenticityScore, &c.FaceMatchScore, &c.LivenessPassed,
		&c.FraudRiskScore, &signals, &findings, &c.AgeVerified, &c.Status,
		&c.RiskSummary, &c.ReviewerName, &c.ReviewerNotes, &reviewedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.FraudSignals = signals
	if len(findings) > 0 {
		if err := json.Unmarshal(findings, &c.AMLFindings); err != nil {
			return nil, fmt.Errorf("unmarshal aml findings: %w", err)
		}
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		c.ReviewedAt = &t
	}
	return &c, nil
}
