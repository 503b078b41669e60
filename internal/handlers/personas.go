package handlers

import (
	"net/http"

	"storyweaver/internal/persona"
)

// PersonasHandler serves the available narrator personas.
type PersonasHandler struct {
	personas *persona.Set
}

// NewPersonasHandler creates a new PersonasHandler.
func NewPersonasHandler(personas *persona.Set) *PersonasHandler {
	return &PersonasHandler{personas: personas}
}

// ServeHTTP handles GET /api/personas.
func (h *PersonasHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"personas": h.personas.Names()})
}
