// Package store persists verification cases. Stores are interface-driven to
// keep the domain logic testable and to allow swapping in-memory or external
// persistence without rewiring business code.
package store

import (
	"context"

	"github.com/google/uuid"

	"veriflow/internal/verification/models"
)

// Filter narrows List results. A zero value lists everything.
type Filter struct {
	Status models.Status // empty means all statuses
	Limit  int           // 0 means no limit
}

// Stats aggregates case counts and score averages for the dashboard and
// healthcheck read models.
type Stats struct {
	Total        int `json:"total"`
	Approved     int `json:"approved"`
	NeedsReview  int `json:"needs_review"`
	Rejected     int `json:"rejected"`
	AvgDocScore  int `json:"avg_doc_authenticity"`
	AvgFaceMatch int `json:"avg_face_match"`
	AvgFraudRisk int `json:"avg_fraud_risk"`
}

// FingerprintUsage reports how many cases share one device fingerprint.
type FingerprintUsage struct {
	Fingerprint string `json:"fingerprint"`
	Cases       int    `json:"cases"`
}

// CaseStore is the durable record store for cases. Concurrent operations on
// the same case are serialized by the implementation (row locking for
// Postgres, a mutex for the in-memory store); the engine assumes at most one
// writer per case at a time.
//
// CountOtherCases satisfies ports.FingerprintLookup so the store can back the
// fraud evaluator directly.
type CaseStore interface {
	Create(ctx context.Context, c *models.Case) error
	Update(ctx context.Context, c *models.Case) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Case, error)
	List(ctx context.Context, filter Filter) ([]*models.Case, error)
	CountOtherCases(ctx context.Context, fingerprint string, excludeCaseID uuid.UUID) (int, error)
	Stats(ctx context.Context) (Stats, error)
	FingerprintReuse(ctx context.Context) ([]FingerprintUsage, error)
}
