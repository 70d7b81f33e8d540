// Package service orchestrates case intake, evaluation runs, reviewer
// decisions, and the read models. All rule logic stays in the engine; this
// layer owns persistence, auditing, metrics, and notifications.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"veriflow/internal/audit"
	"veriflow/internal/verification/engine"
	"veriflow/internal/verification/metrics"
	"veriflow/internal/verification/models"
	"veriflow/internal/verification/ports"
	"veriflow/internal/verification/store"
	"veriflow/internal/webhook"
	dErrors "veriflow/pkg/domain-errors"
	"veriflow/pkg/requestcontext"
	"veriflow/pkg/sentinel"
)

// FingerprintRecorder registers a case against a device fingerprint in the
// velocity index. Optional; the store-backed lookup needs no registration.
type FingerprintRecorder interface {
	Record(ctx context.Context, fingerprint string, caseID uuid.UUID) error
}

// Service coordinates the evaluation pipeline around the case store.
type Service struct {
	cases  store.CaseStore
	engine *engine.Engine

	logger     *slog.Logger
	auditor    ports.AuditPort
	metrics    *metrics.Metrics
	recorder   FingerprintRecorder
	signer     *webhook.Signer
	dispatcher *webhook.Dispatcher
	tracer     trace.Tracer

	newID func() uuid.UUID
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(auditor ports.AuditPort) Option {
	return func(s *Service) { s.auditor = auditor }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithFingerprintRecorder(r FingerprintRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithWebhooks enables signed decision notifications.
func WithWebhooks(signer *webhook.Signer, dispatcher *webhook.Dispatcher) Option {
	return func(s *Service) {
		s.signer = signer
		s.dispatcher = dispatcher
	}
}

// WithIDGenerator overrides the ID source for deterministic tests.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(s *Service) { s.newID = newID }
}

// New constructs a Service. The engine's fingerprint lookup is injected by
// the caller so the same store (or a Redis index) can back it.
func New(cases store.CaseStore, eng *engine.Engine, opts ...Option) *Service {
	s := &Service{
		cases:  cases,
		engine: eng,
		newID:  uuid.New,
		tracer: otel.Tracer("veriflow/verification"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates intake input, creates the case, runs the full
// evaluation, persists the outcome, and records the creation audit event.
func (s *Service) Register(ctx context.Context, in models.Intake) (*models.Case, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Register")
	defer span.End()

	now := requestcontext.Now(ctx)
	c, err := models.NewCase(s.newID(), in, now)
	if err != nil {
		return nil, err
	}

	if err := s.evaluate(ctx, c, "create"); err != nil {
		return nil, err
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store case")
	}
	if s.recorder != nil && c.DeviceFingerprint != "" {
		if err := s.recorder.Record(ctx, c.DeviceFingerprint, c.ID); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "fingerprint index update failed",
				"case_id", c.ID,
				"error", err,
			)
		}
	}

	s.emitAudit(ctx, c, audit.EventCreated,
		fmt.Sprintf("case created and evaluated, status %s", c.Status), now)
	s.notify(ctx, c)

	if s.logger != nil {
		s.logger.InfoContext(ctx, "case registered",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", c.ID,
			"status", c.Status,
			"fraud_risk", c.FraudRiskScore,
		)
	}
	span.SetAttributes(attribute.String("case.status", string(c.Status)))
	return c, nil
}

// Rerun re-executes every evaluator against the stored declared attributes.
// Useful after retry attempts or when fingerprint collisions accrue.
func (s *Service) Rerun(ctx context.Context, caseID uuid.UUID) (*models.Case, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Rerun")
	defer span.End()

	c, err := s.load(ctx, caseID)
	if err != nil {
		return nil, err
	}

	if err := s.evaluate(ctx, c, "rerun"); err != nil {
		return nil, err
	}
	if err := s.cases.Update(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update case")
	}

	now := requestcontext.Now(ctx)
	s.emitAudit(ctx, c, audit.EventRerun,
		fmt.Sprintf("evaluation rerun, status %s", c.Status), now)
	s.notify(ctx, c)
	return c, nil
}

// Review records a direct human decision, bypassing the evaluators.
func (s *Service) Review(ctx context.Context, caseID uuid.UUID, decision models.Status, reviewerName, notes string) (*models.Case, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Review")
	defer span.End()

	c, err := s.load(ctx, caseID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if err := c.MarkReviewed(decision, reviewerName, notes, now); err != nil {
		return nil, err
	}
	if err := s.cases.Update(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update case")
	}

	s.metrics.IncrementOutcome(string(c.Status), "review")
	s.emitAudit(ctx, c, audit.EventReviewed,
		fmt.Sprintf("reviewer %s set status %s", reviewerName, decision), now)
	s.notify(ctx, c)

	if s.logger != nil {
		s.logger.InfoContext(ctx, "case reviewed",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", c.ID,
			"decision", decision,
			"reviewer", reviewerName,
		)
	}
	return c, nil
}

// Simulate replays the decision chain against caller-supplied thresholds.
// Read-only: the stored case is untouched.
func (s *Service) Simulate(ctx context.Context, caseID uuid.UUID, th engine.Thresholds) (*engine.SimulationResult, error) {
	c, err := s.load(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return engine.Simulate(c, th, requestcontext.Now(ctx)), nil
}

// Get returns one case.
func (s *Service) Get(ctx context.Context, caseID uuid.UUID) (*models.Case, error) {
	return s.load(ctx, caseID)
}

// List returns cases newest-first, optionally filtered by status.
func (s *Service) List(ctx context.Context, filter store.Filter) ([]*models.Case, error) {
	cases, err := s.cases.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cases")
	}
	return cases, nil
}

// AuditTrail returns a case's audit events, newest first.
func (s *Service) AuditTrail(ctx context.Context, caseID uuid.UUID) ([]audit.Event, error) {
	if _, err := s.load(ctx, caseID); err != nil {
		return nil, err
	}
	lister, ok := s.auditor.(interface {
		ListByCase(ctx context.Context, caseID uuid.UUID) ([]audit.Event, error)
	})
	if !ok {
		return nil, nil
	}
	events, err := lister.ListByCase(ctx, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events")
	}
	return events, nil
}

// Stats aggregates counts and score averages.
func (s *Service) Stats(ctx context.Context) (store.Stats, error) {
	stats, err := s.cases.Stats(ctx)
	if err != nil {
		return store.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate stats")
	}
	return stats, nil
}

// Velocity lists device fingerprints shared across cases.
func (s *Service) Velocity(ctx context.Context) ([]store.FingerprintUsage, error) {
	usage, err := s.cases.FingerprintReuse(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query fingerprint reuse")
	}
	return usage, nil
}

// PreviewWebhook builds and signs the notification payload for a case
// without delivering it.
func (s *Service) PreviewWebhook(ctx context.Context, caseID uuid.UUID) (webhook.Payload, string, error) {
	if s.signer == nil {
		return nil, "", dErrors.New(dErrors.CodeUnavailable, "webhook signing is not configured")
	}
	c, err := s.load(ctx, caseID)
	if err != nil {
		return nil, "", err
	}

	payload := webhook.BuildPayload(c, c.Status, s.newID(), requestcontext.Now(ctx))
	signature, err := s.signer.Sign(payload)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign payload")
	}
	return payload, signature, nil
}

func (s *Service) load(ctx context.Context, caseID uuid.UUID) (*models.Case, error) {
	c, err := s.cases.FindByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case")
	}
	return c, nil
}

// evaluate runs the engine and applies the result to the case in one step.
func (s *Service) evaluate(ctx context.Context, c *models.Case, trigger string) error {
	start := time.Now()
	ev, err := s.engine.Evaluate(ctx, c, requestcontext.Now(ctx))
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "evaluation failed",
				"request_id", requestcontext.RequestID(ctx),
				"case_id", c.ID,
				"error", err,
			)
		}
		return err
	}
	c.ApplyEvaluation(ev)

	s.metrics.ObserveEvaluateLatency(time.Since(start))
	s.metrics.IncrementOutcome(string(ev.Status), trigger)
	return nil
}

func (s *Service) emitAudit(ctx context.Context, c *models.Case, eventType audit.EventType, description string, now time.Time) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		CaseID:      c.ID,
		Type:        eventType,
		Description: description,
		Timestamp:   now,
	})
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"case_id", c.ID,
			"event_type", eventType,
			"error", err,
		)
	}
}

// notify delivers the signed decision payload to configured endpoints.
// Delivery failures are logged, not surfaced: the decision itself is already
// durable.
func (s *Service) notify(ctx context.Context, c *models.Case) {
	if s.dispatcher == nil || s.signer == nil {
		return
	}
	payload := webhook.BuildPayload(c, c.Status, s.newID(), requestcontext.Now(ctx))
	if err := s.dispatcher.Deliver(ctx, payload); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "webhook delivery failed",
			"case_id", c.ID,
			"error", err,
		)
	}
}
