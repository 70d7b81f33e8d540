package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"veriflow/internal/verification/models"
	"veriflow/pkg/sentinel"
)

// InMemory keeps cases in a map guarded by a RWMutex. It intentionally
// favors clarity over performance and backs unit tests and local runs.
type InMemory struct {
	mu    sync.RWMutex
	cases map[uuid.UUID]models.Case
}

func NewInMemory() *InMemory {
	return &InMemory{cases: make(map[uuid.UUID]models.Case)}
}

func (s *InMemory) Create(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cases[c.ID]; exists {
		return sentinel.ErrConflict
	}
	s.cases[c.ID] = *c
	return nil
}

func (s *InMemory) Update(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cases[c.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.cases[c.ID] = *c
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.cases[id]; ok {
		return &c, nil
	}
	return nil, sentinel.ErrNotFound
}

// List returns cases newest-first, optionally filtered by status.
func (s *InMemory) List(_ context.Context, filter Filter) ([]*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Case, 0, len(s.cases))
	for id := range s.cases {
		c := s.cases[id]
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *InMemory) CountOtherCases(_ context.Context, fingerprint string, excludeCaseID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for id, c := range s.cases {
		if id == excludeCaseID {
			continue
		}
		if c.DeviceFingerprint == fingerprint {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	var docSum, faceSum, fraudSum int
	for _, c := range s.cases {
		stats.Total++
		switch c.Status {
		case models.StatusApproved:
			stats.Approved++
		case models.StatusReview:
			stats.NeedsReview++
		case models.StatusRejected:
			stats.Rejected++
		}
		docSum += c.DocAuthenticityScore
		faceSum += c.FaceMatchScore
		fraudSum += c.FraudRiskScore
	}
	if stats.Total > 0 {
		stats.AvgDocScore = docSum / stats.Total
		stats.AvgFaceMatch = faceSum / stats.Total
		stats.AvgFraudRisk = fraudSum / stats.Total
	}
	return stats, nil
}

// FingerprintReuse lists fingerprints shared by more than one case.
func (s *InMemory) FingerprintReuse(_ context.Context) ([]FingerprintUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, c := range s.cases {
		if c.DeviceFingerprint != "" {
			counts[c.DeviceFingerprint]++
		}
	}

	var usage []FingerprintUsage
	for fp, n := range counts {
		if n > 1 {
			usage = append(usage, FingerprintUsage{Fingerprint: fp, Cases: n})
		}
	}
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Cases != usage[j].Cases {
			return usage[i].Cases > usage[j].Cases
		}
		return usage[i].Fingerprint < usage[j].Fingerprint
	})
	return usage, nil
}
