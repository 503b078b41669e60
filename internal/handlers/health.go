package handlers

import (
	"context"
	"net/http"
	"time"

	"storyweaver/internal/contextutil"
	"storyweaver/internal/registry"
	"storyweaver/internal/vectorstore"
)

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	registry           *registry.Registry
	vectorStore        vectorstore.VectorStore
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(reg *registry.Registry, vectorStore vectorstore.VectorStore) *HealthHandler {
	return &HealthHandler{
		registry:           reg,
		vectorStore:        vectorStore,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles GET /api/health. Checks the corpus registry database and
// the vector store; returns 503 when either is unreachable.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string

	corpora, err := h.registry.ListActive(checkCtx)
	if err != nil {
		logger.WarnContext(ctx, "registry health check failed", "error", err)
		checks["registry"] = "error"
		issues = append(issues, "registry_unavailable")
	} else {
		checks["registry"] = "ok"
	}

	// Probing any collection exercises the Qdrant connection; which corpus is
	// used does not matter.
	if len(corpora) > 0 {
		if _, err := h.vectorStore.CollectionExists(checkCtx, corpora[0].CollectionName); err != nil {
			logger.WarnContext(ctx, "vector store health check failed", "error", err)
			checks["vector_store"] = "error"
			issues = append(issues, "vector_store_unavailable")
		} else {
			checks["vector_store"] = "ok"
		}
	} else {
		checks["vector_store"] = "skipped"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	})
}
