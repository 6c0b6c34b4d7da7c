package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/knakagawa/parody-engine/pkg/patterns"
)

type CharactersResponse struct {
	Characters []string `json:"characters"`
}

// CharactersHandler lists the character names with dedicated trigger
// patterns, so clients can offer them as suggestions.
type CharactersHandler struct {
	store  *patterns.Store
	logger *slog.Logger
}

func NewCharactersHandler(store *patterns.Store, logger *slog.Logger) *CharactersHandler {
	return &CharactersHandler{
		store:  store,
		logger: logger,
	}
}

func (h *CharactersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(CharactersResponse{
		Characters: h.store.Characters(),
	}); err != nil {
		h.logger.Error("Failed to encode characters response", "error", err)
	}
}
