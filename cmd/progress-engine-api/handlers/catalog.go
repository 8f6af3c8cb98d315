package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/catalog"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/engine"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/observability"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/storage"
)

// CatalogHandler handles project creation and element catalog ingestion.
type CatalogHandler struct {
	logger   *observability.Logger
	projects *storage.ProjectRepository
	indexer  *engine.Indexer
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(logger *observability.Logger, projects *storage.ProjectRepository, indexer *engine.Indexer) *CatalogHandler {
	return &CatalogHandler{logger: logger, projects: projects, indexer: indexer}
}

// CreateProjectRequestDTO represents a project creation request.
type CreateProjectRequestDTO struct {
	Name string `json:"name"`
}

// ProjectResponseDTO represents a project in API responses.
type ProjectResponseDTO struct {
	ProjectID     string `json:"project_id"`
	Name          string `json:"name"`
	TotalElements int    `json:"total_elements"`
}

// IngestCatalogRequestDTO represents a catalog ingestion request.
type IngestCatalogRequestDTO struct {
	Elements []catalog.Element `json:"elements"`
}

// IngestCatalogResponseDTO reports how much of the catalog was indexed.
type IngestCatalogResponseDTO struct {
	ProjectID        string `json:"project_id"`
	ReceivedElements int    `json:"received_elements"`
	IndexedElements  int    `json:"indexed_elements"`
}

// CreateProject handles POST /projects.
func (h *CatalogHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateProjectRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", "")
		return
	}

	project := &storage.Project{Name: req.Name}
	if err := h.projects.Create(ctx, project); err != nil {
		h.logger.Error().Err(err).Msg("Failed to create project")
		writeError(w, http.StatusInternalServerError, "failed to create project", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, ProjectResponseDTO{
		ProjectID: project.ID.String(),
		Name:      project.Name,
	})
}

// IngestCatalog handles POST /projects/{projectId}/catalog. Elements are
// deduplicated, embedded and indexed for vector retrieval.
func (h *CatalogHandler) IngestCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	projectID := chi.URLParam(r, "projectId")
	id, err := uuid.Parse(projectID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id", err.Error())
		return
	}

	if _, err := h.projects.GetByID(ctx, id); err != nil {
		if err == storage.ErrNotFound {
			writeError(w, http.StatusNotFound, "project not found", "")
			return
		}
		h.logger.Error().Err(err).Msg("Project lookup failed")
		writeError(w, http.StatusInternalServerError, "project lookup failed", err.Error())
		return
	}

	var req IngestCatalogRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if len(req.Elements) == 0 {
		writeError(w, http.StatusBadRequest, "elements is required", "")
		return
	}

	indexed, err := h.indexer.IndexCatalog(ctx, projectID, req.Elements)
	if err != nil {
		h.logger.Error().Err(err).Str("project_id", projectID).Msg("Catalog indexing failed")
		writeError(w, http.StatusInternalServerError, "catalog indexing failed", err.Error())
		return
	}

	if err := h.projects.UpdateTotalElements(ctx, id, len(req.Elements)); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to update project element count")
	}

	writeJSON(w, http.StatusOK, IngestCatalogResponseDTO{
		ProjectID:        projectID,
		ReceivedElements: len(req.Elements),
		IndexedElements:  indexed,
	})
}
