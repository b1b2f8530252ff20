package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ayodele-o/outreach/internal/engine"
	"github.com/ayodele-o/outreach/internal/redis"
	"github.com/ayodele-o/outreach/internal/store"
)

// Engine is the campaign-management surface the handlers drive.
type Engine interface {
	Start(ctx context.Context, campaignID string, startAt *time.Time) error
	Pause(ctx context.Context, campaignID string) error
	Complete(ctx context.Context, campaignID string) error
	Tick(ctx context.Context, campaignID string) engine.TickResult
}

// Reader is the read-only record access used by the listing endpoints.
type Reader interface {
	GetCampaign(ctx context.Context, id string) (*store.Campaign, error)
	ListSends(ctx context.Context, campaignID string) ([]*store.Send, error)
}

// ErrorResponse is the problem+json error body.
type ErrorResponse struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Handler holds dependencies for the API handlers.
type Handler struct {
	logger *zap.Logger
	engine Engine
	reader Reader
	lease  *redis.TickLease // nil when redis is not configured
}

// NewHandler creates an API handler. lease may be nil; tick requests then
// run without cross-process mutual exclusion.
func NewHandler(logger *zap.Logger, eng Engine, reader Reader, lease *redis.TickLease) *Handler {
	return &Handler{
		logger: logger,
		engine: eng,
		reader: reader,
		lease:  lease,
	}
}

// Routes mounts the campaign endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/v1/campaigns/{id}", func(r chi.Router) {
		r.Get("/", h.GetCampaign)
		r.Get("/sends", h.ListSends)
		r.Post("/start", h.StartCampaign)
		r.Post("/pause", h.PauseCampaign)
		r.Post("/complete", h.CompleteCampaign)
		r.Post("/tick", h.TickCampaign)
	})
	return r
}

type startRequest struct {
	StartAt *time.Time `json:"start_at,omitempty"`
}

// StartCampaign handles POST /v1/campaigns/{id}/start.
func (h *Handler) StartCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req startRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
			return
		}
	}

	if err := h.engine.Start(r.Context(), id, req.StartAt); err != nil {
		h.writeTransitionError(w, id, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": store.CampaignRunning})
}

// PauseCampaign handles POST /v1/campaigns/{id}/pause.
func (h *Handler) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.Pause(r.Context(), id); err != nil {
		h.writeTransitionError(w, id, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": store.CampaignPaused})
}

// CompleteCampaign handles POST /v1/campaigns/{id}/complete.
func (h *Handler) CompleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.Complete(r.Context(), id); err != nil {
		h.writeTransitionError(w, id, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": store.CampaignCompleted})
}

// TickCampaign handles POST /v1/campaigns/{id}/tick. When a tick lease is
// configured and already held, the request is rejected rather than risking
// a concurrent double-send.
func (h *Handler) TickCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	if h.lease != nil {
		ok, err := h.lease.Acquire(ctx, id)
		if err != nil {
			h.logger.Warn("tick lease check failed, proceeding", zap.Error(err))
		} else if !ok {
			h.writeError(w, http.StatusConflict, "tick_in_progress",
				"Tick already running", "Another tick for this campaign holds the lease")
			return
		} else {
			defer h.lease.Release(ctx, id)
		}
	}

	result := h.engine.Tick(ctx, id)
	h.writeJSON(w, http.StatusOK, result)
}

// GetCampaign handles GET /v1/campaigns/{id}.
func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	campaign, err := h.reader.GetCampaign(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Campaign not found", id)
			return
		}
		h.logger.Error("failed to load campaign", zap.String("campaign_id", id), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load campaign", "")
		return
	}

	h.writeJSON(w, http.StatusOK, campaign)
}

// ListSends handles GET /v1/campaigns/{id}/sends.
func (h *Handler) ListSends(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sends, err := h.reader.ListSends(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list sends", zap.String("campaign_id", id), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list sends", "")
		return
	}
	if sends == nil {
		sends = []*store.Send{}
	}

	h.writeJSON(w, http.StatusOK, sends)
}

func (h *Handler) writeTransitionError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "not_found", "Campaign not found", id)
		return
	}
	h.logger.Error("campaign transition failed", zap.String("campaign_id", id), zap.Error(err))
	h.writeError(w, http.StatusInternalServerError, "internal_error", "Campaign transition failed", "")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, errType, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Type:   errType,
		Title:  title,
		Status: status,
		Detail: detail,
	})
}
