package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"veriflow/internal/audit"
	"veriflow/internal/verification/engine"
	"veriflow/internal/verification/models"
	"veriflow/internal/verification/store"
	"veriflow/internal/webhook"
	dErrors "veriflow/pkg/domain-errors"
	"veriflow/pkg/httputil"
	"veriflow/pkg/requestcontext"
)

// Service defines the interface for verification case operations.
type Service interface {
	Register(ctx context.Context, in models.Intake) (*models.Case, error)
	Get(ctx context.Context, caseID uuid.UUID) (*models.Case, error)
	List(ctx context.Context, filter store.Filter) ([]*models.Case, error)
	Rerun(ctx context.Context, caseID uuid.UUID) (*models.Case, error)
	Review(ctx context.Context, caseID uuid.UUID, decision models.Status, reviewerName, notes string) (*models.Case, error)
	Simulate(ctx context.Context, caseID uuid.UUID, th engine.Thresholds) (*engine.SimulationResult, error)
	AuditTrail(ctx context.Context, caseID uuid.UUID) ([]audit.Event, error)
	Stats(ctx context.Context) (store.Stats, error)
	Velocity(ctx context.Context) ([]store.FingerprintUsage, error)
	PreviewWebhook(ctx context.Context, caseID uuid.UUID) (webhook.Payload, string, error)
}

// Handler wires verification endpoints to the case service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a verification handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/cases", h.HandleCreate)
	r.Get("/cases", h.HandleList)
	r.Get("/cases/{caseID}", h.HandleGet)
	r.Post("/cases/{caseID}/rerun", h.HandleRerun)
	r.Post("/cases/{caseID}/review", h.HandleReview)
	r.Post("/cases/{caseID}/simulate", h.HandleSimulate)
	r.Get("/cases/{caseID}/audit", h.HandleAuditTrail)
	r.Post("/cases/{caseID}/webhook-preview", h.HandleWebhookPreview)
	r.Get("/stats", h.HandleStats)
	r.Get("/velocity", h.HandleVelocity)
}

// HandleCreate handles POST /cases requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[IntakeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.Register(ctx, req.ParsedIntake())
	if err != nil {
		h.logger.ErrorContext(ctx, "case registration failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "case created",
		"request_id", requestID,
		"case_id", c.ID,
		"status", c.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, FromCase(c))
}

// HandleList handles GET /cases requests. Supports ?status= and ?limit=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var filter store.Filter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Status = status
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a non-negative integer"))
			return
		}
		filter.Limit = limit
	}

	cases, err := h.service.List(ctx, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCases(cases))
}

// HandleGet handles GET /cases/{caseID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}

	c, err := h.service.Get(ctx, caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCase(c))
}

// HandleRerun handles POST /cases/{caseID}/rerun requests.
func (h *Handler) HandleRerun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}

	c, err := h.service.Rerun(ctx, caseID)
	if err != nil {
		h.logger.ErrorContext(ctx, "case rerun failed",
			"request_id", requestID,
			"case_id", caseID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "case rerun",
		"request_id", requestID,
		"case_id", c.ID,
		"status", c.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromCase(c))
}

// HandleReview handles POST /cases/{caseID}/review requests.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[ReviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.Review(ctx, caseID, req.ParsedDecision(), req.ReviewerName, req.Notes)
	if err != nil {
		h.logger.ErrorContext(ctx, "case review failed",
			"request_id", requestID,
			"case_id", caseID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromCase(c))
}

// HandleSimulate handles POST /cases/{caseID}/simulate requests.
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[SimulateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Simulate(ctx, caseID, req.ParsedThresholds())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSimulation(result))
}

// HandleAuditTrail handles GET /cases/{caseID}/audit requests.
func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}

	events, err := h.service.AuditTrail(ctx, caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAuditEvents(events))
}

// HandleWebhookPreview handles POST /cases/{caseID}/webhook-preview requests.
func (h *Handler) HandleWebhookPreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}

	payload, signature, err := h.service.PreviewWebhook(ctx, caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, WebhookPreviewResponse{
		Payload:   payload,
		Signature: signature,
	})
}

// HandleStats handles GET /stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleVelocity handles GET /velocity requests.
func (h *Handler) HandleVelocity(w http.ResponseWriter, r *http.Request) {
	usage, err := h.service.Velocity(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"fingerprints": usage})
}

func (h *Handler) caseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	caseID, err := uuid.Parse(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "caseID must be a valid UUID"))
		return uuid.Nil, false
	}
	return caseID, true
}
