package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storyweaver/internal/contextutil"
	"storyweaver/internal/journey"
)

// JourneysHandler serves saved journey listing, loading and deletion.
type JourneysHandler struct {
	store *journey.Store
}

// NewJourneysHandler creates a new JourneysHandler.
func NewJourneysHandler(store *journey.Store) *JourneysHandler {
	return &JourneysHandler{store: store}
}

// List handles GET /api/journeys. Returns the metadata of the user's
// journeys, newest first.
func (h *JourneysHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	username := r.URL.Query().Get("username")
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	metas, err := h.store.List(username)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list journeys", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list journeys")
		return
	}
	if metas == nil {
		metas = []journey.Meta{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"journeys": metas})
}

// Get handles GET /api/journeys/{journeyID}. Returns the full journey
// including its story graph.
func (h *JourneysHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	username := r.URL.Query().Get("username")
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	journeyID := chi.URLParam(r, "journeyID")

	j, err := h.store.Load(ctx, username, journeyID)
	if err != nil {
		switch {
		case errors.Is(err, journey.ErrNotFound):
			writeError(w, http.StatusNotFound, "journey not found")
		case errors.Is(err, journey.ErrCorpusUnavailable):
			writeError(w, http.StatusConflict, "the corpus for this journey is unavailable")
		default:
			logger.ErrorContext(ctx, "failed to load journey", "journey_id", journeyID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load journey")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"meta":  j.Meta,
		"graph": j.Graph,
	})
}

// Delete handles DELETE /api/journeys/{journeyID}.
func (h *JourneysHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	username := r.URL.Query().Get("username")
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	journeyID := chi.URLParam(r, "journeyID")

	if err := h.store.Delete(username, journeyID); err != nil {
		if errors.Is(err, journey.ErrNotFound) {
			writeError(w, http.StatusNotFound, "journey not found")
			return
		}
		logger.ErrorContext(ctx, "failed to delete journey", "journey_id", journeyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete journey")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
