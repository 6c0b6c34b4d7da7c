package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/knakagawa/parody-engine/internal/generator"
	"github.com/knakagawa/parody-engine/internal/services"
	"github.com/knakagawa/parody-engine/internal/storage"
	"github.com/knakagawa/parody-engine/pkg/chat"
	"github.com/knakagawa/parody-engine/pkg/prompts"
	"github.com/knakagawa/parody-engine/pkg/session"
)

type ScenarioHandler struct {
	engine *generator.Engine
	store  storage.SessionStore
	logger *slog.Logger
}

func NewScenarioHandler(engine *generator.Engine, store storage.SessionStore, logger *slog.Logger) *ScenarioHandler {
	return &ScenarioHandler{
		engine: engine,
		store:  store,
		logger: logger,
	}
}

// ServeHTTP handles HTTP requests for parody scenario operations.
// Routes:
// POST /v1/scenarios               - Create session and generate first scene
// GET /v1/scenarios/{id}           - Read session state
// POST /v1/scenarios/{id}/refine   - Revise the current scene
// DELETE /v1/scenarios/{id}        - End and delete a session
func (h *ScenarioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.TrimPrefix(r.URL.Path, "/v1/scenarios")
	path = strings.Trim(path, "/")

	var sessionID uuid.UUID
	var action string
	if path != "" {
		parts := strings.SplitN(path, "/", 2)
		var err error
		sessionID, err = uuid.Parse(parts[0])
		if err != nil {
			h.logger.Warn("Invalid session ID", "id", parts[0], "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
			return
		}
		if len(parts) == 2 {
			action = parts[1]
		}
	}

	switch {
	case r.Method == http.MethodPost && sessionID == uuid.Nil:
		h.handleCreate(w, r)

	case r.Method == http.MethodPost && action == "refine":
		h.handleRefine(w, r, sessionID)

	case r.Method == http.MethodGet && sessionID != uuid.Nil && action == "":
		h.handleRead(w, r, sessionID)

	case r.Method == http.MethodDelete && sessionID != uuid.Nil && action == "":
		h.handleDelete(w, r, sessionID)

	default:
		h.logger.Warn("Method not allowed for scenario endpoint", "method", r.Method, "path", r.URL.Path)
		writeError(w, h.logger, http.StatusMethodNotAllowed,
			"Method not allowed. Supported: POST /v1/scenarios, GET/DELETE /v1/scenarios/{id}, POST /v1/scenarios/{id}/refine")
	}
}

func (h *ScenarioHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Creating new parody session")

	var req chat.ScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.logger.Warn("Invalid scenario request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	cfg := session.DefaultConfig()
	if req.Config != nil {
		cfg = *req.Config
	}

	s, err := session.New(req.Setting, req.Characters, cfg)
	if err != nil {
		h.logger.Warn("Failed to create session", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.engine.Generate(r.Context(), s, req.Context)
	if err != nil {
		h.writeGenerationError(w, err, s.ID)
		return
	}

	if err := h.store.SaveSession(r.Context(), s); err != nil {
		h.logger.Error("Failed to save new session", "error", err, "session_id", s.ID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save session")
		return
	}

	h.logger.Debug("Parody session created", "session_id", s.ID.String(), "cached", result.Cached)
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(chat.ScenarioResponse{
		SessionID: s.ID,
		Scene:     result.Scene,
		Tags:      result.Tags,
		Cached:    result.Cached,
	}); err != nil {
		h.logger.Error("Failed to encode scenario response", "error", err)
	}
}

func (h *ScenarioHandler) handleRefine(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	var req chat.RefineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.logger.Warn("Invalid refine request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	s, err := h.loadSession(w, r, sessionID)
	if s == nil || err != nil {
		return
	}

	if !s.CanRefine() {
		h.logger.Warn("Refine requested before any scene exists", "session_id", sessionID.String())
		writeError(w, h.logger, http.StatusConflict, "Session has no scene to refine")
		return
	}

	result, err := h.engine.Refine(r.Context(), s, req.Notes)
	if err != nil {
		h.writeGenerationError(w, err, sessionID)
		return
	}

	if err := h.store.SaveSession(r.Context(), s); err != nil {
		h.logger.Error("Failed to save refined session", "error", err, "session_id", sessionID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save session")
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(chat.ScenarioResponse{
		SessionID: sessionID,
		Scene:     result.Scene,
		Cached:    result.Cached,
	}); err != nil {
		h.logger.Error("Failed to encode refine response", "error", err)
	}
}

func (h *ScenarioHandler) handleRead(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	s, err := h.loadSession(w, r, sessionID)
	if s == nil || err != nil {
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(s); err != nil {
		h.logger.Error("Failed to encode session response", "error", err)
	}
}

func (h *ScenarioHandler) handleDelete(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	if err := h.store.DeleteSession(r.Context(), sessionID); err != nil {
		h.logger.Error("Failed to delete session", "error", err, "session_id", sessionID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	h.logger.Debug("Session deleted", "session_id", sessionID.String())
	w.WriteHeader(http.StatusNoContent)
}

// loadSession fetches the session or writes the appropriate error response.
// It returns nil when a response has already been written.
func (h *ScenarioHandler) loadSession(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) (*session.Session, error) {
	s, err := h.store.LoadSession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to load session", "error", err, "session_id", sessionID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session")
		return nil, err
	}
	if s == nil {
		h.logger.Warn("Session not found", "session_id", sessionID.String())
		writeError(w, h.logger, http.StatusNotFound, "Session not found")
		return nil, nil
	}
	return s, nil
}

// writeGenerationError maps generation failures to HTTP status codes.
// Build failures are the caller's fault; provider failures are upstream.
func (h *ScenarioHandler) writeGenerationError(w http.ResponseWriter, err error, sessionID uuid.UUID) {
	var buildErr *prompts.BuildError
	switch {
	case errors.As(err, &buildErr):
		h.logger.Warn("Prompt build failed", "error", err, "session_id", sessionID.String())
		writeError(w, h.logger, http.StatusBadRequest, err.Error())

	case errors.Is(err, services.ErrRateLimited):
		h.logger.Warn("LLM provider rate limited", "session_id", sessionID.String())
		w.Header().Set("Retry-After", "30")
		writeError(w, h.logger, http.StatusTooManyRequests, "LLM provider rate limit exceeded, retry later")

	case errors.Is(err, services.ErrAuth):
		h.logger.Error("LLM provider rejected credentials", "session_id", sessionID.String())
		writeError(w, h.logger, http.StatusBadGateway, "LLM provider authentication failed")

	case errors.Is(err, services.ErrMalformedResponse):
		h.logger.Error("LLM provider returned malformed response", "error", err, "session_id", sessionID.String())
		writeError(w, h.logger, http.StatusBadGateway, "LLM provider returned an unusable response")

	case errors.Is(err, services.ErrNetwork):
		h.logger.Error("LLM provider unreachable", "error", err, "session_id", sessionID.String())
		writeError(w, h.logger, http.StatusBadGateway, "Failed to reach LLM provider")

	default:
		h.logger.Error("Scene generation failed", "error", err, "session_id", sessionID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to generate scene")
	}
}
