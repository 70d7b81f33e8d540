// Package ports declares the collaborator interfaces the verification engine
// and service depend on. Defining them consumer-side keeps the engine
// testable without real infrastructure.
package ports

import (
	"context"

	"github.com/google/uuid"

	"veriflow/internal/audit"
)

// FingerprintLookup answers how many other cases share a device fingerprint.
// The count must exclude the case being evaluated: a case never counts itself
// as a reuse. Implementations are provided by the case store or a Redis
// velocity index; a fake returning canned counts suffices for unit tests.
type FingerprintLookup interface {
	CountOtherCases(ctx context.Context, fingerprint string, excludeCaseID uuid.UUID) (int, error)
}

// AuditPort emits append-only audit events for case lifecycle transitions.
type AuditPort interface {
	Emit(ctx context.Context, event audit.Event) error
}
