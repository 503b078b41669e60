package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storyweaver/internal/contextutil"
	"storyweaver/internal/registry"
)

// CorporaHandler serves corpus listing and status probes.
type CorporaHandler struct {
	registry *registry.Registry
}

// NewCorporaHandler creates a new CorporaHandler.
func NewCorporaHandler(reg *registry.Registry) *CorporaHandler {
	return &CorporaHandler{registry: reg}
}

// CorpusSummary is one entry in the corpus listing.
type CorpusSummary struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	ChunkCount  int    `json:"chunk_count"`
}

// List handles GET /api/corpora. Only active corpora are listed; inactive
// ones stay invisible to readers.
func (h *CorporaHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	corpora, err := h.registry.ListActive(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list corpora", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list corpora")
		return
	}

	summaries := make([]CorpusSummary, 0, len(corpora))
	for _, c := range corpora {
		summaries = append(summaries, CorpusSummary{
			Name:        c.Name,
			DisplayName: c.DisplayName,
			Description: c.Description,
			ChunkCount:  c.ChunkCount,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"corpora": summaries})
}

// Status handles GET /api/corpora/{name}/status. The response reflects live
// probes of the chunk cache, vector collection and keyword index.
func (h *CorporaHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	name := chi.URLParam(r, "name")
	status, err := h.registry.Status(ctx, name)
	if err != nil {
		if errors.Is(err, registry.ErrCorpusNotFound) {
			writeError(w, http.StatusNotFound, "corpus not found")
			return
		}
		logger.ErrorContext(ctx, "failed to probe corpus status", "corpus", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to probe corpus status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}
