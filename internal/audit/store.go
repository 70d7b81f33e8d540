package audit

import (
	"context"

	"github.com/google/uuid"
)

// Store is the append-only persistence for audit events. Implementations
// never update or delete; the canonical read order is timestamp descending.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]Event, error)
}
