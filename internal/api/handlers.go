// Package api provides HTTP API handlers.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/evidencecheck/attest/internal/assess"
	"github.com/evidencecheck/attest/internal/config"
	"github.com/evidencecheck/attest/internal/database"
	"github.com/evidencecheck/attest/internal/models"
)

// maxUploadBytes caps the total multipart form size for a submission.
const maxUploadBytes = 64 << 20

// Handler contains all HTTP handlers.
type Handler struct {
	engine *assess.Engine
	store  database.Store
	window int
}

// NewHandler creates a new handler.
func NewHandler(engine *assess.Engine, store database.Store, cfg *config.ScoringConfig) *Handler {
	return &Handler{
		engine: engine,
		store:  store,
		window: cfg.PriorHashWindow,
	}
}

// HealthCheck returns the service health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"version":   "1.0.0",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, http.StatusOK, response)
}

// SubmitEvidence accepts a multipart submission (a "context" JSON part plus
// one or more "images" parts), runs it through the scoring pipeline, persists
// the assessment and appends the new perceptual hashes to the project's
// prior-hash window.
func (h *Handler) SubmitEvidence(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	var req models.SubmitRequest
	if raw := r.FormValue("context"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid context JSON")
			return
		}
	}
	if req.ProjectID == "" {
		writeError(w, http.StatusBadRequest, "project_id is required")
		return
	}
	if req.Kind == "" {
		req.Kind = models.KindPeriodic
	}

	var images [][]byte
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["images"] {
			f, err := fh.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "Failed to read uploaded image")
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "Failed to read uploaded image")
				return
			}
			images = append(images, data)
		}
	}

	sctx, err := h.buildContext(r, req)
	if err != nil {
		log.Error().Err(err).Str("project", req.ProjectID).Msg("Failed to build submission context")
		writeError(w, http.StatusInternalServerError, "Failed to load project context")
		return
	}

	assessment, err := h.engine.Assess(r.Context(), images, sctx)
	if err != nil {
		log.Error().Err(err).Str("project", req.ProjectID).Msg("Assessment failed")
		writeError(w, http.StatusBadGateway, "Assessment failed: "+err.Error())
		return
	}

	if err := h.store.SaveAssessment(r.Context(), assessment); err != nil {
		log.Error().Err(err).Str("id", assessment.ID).Msg("Failed to save assessment")
		writeError(w, http.StatusInternalServerError, "Failed to persist assessment")
		return
	}

	// The pipeline treats the prior-hash window as a read-only snapshot;
	// appending the new hashes is this caller's job once the result is durable.
	var hashes []string
	for _, m := range assessment.Media {
		if m.PerceptualHash != "" {
			hashes = append(hashes, m.PerceptualHash)
		}
	}
	if len(hashes) > 0 {
		if err := h.store.AppendPriorHashes(r.Context(), req.ProjectID, hashes); err != nil {
			log.Error().Err(err).Str("project", req.ProjectID).Msg("Failed to append prior hashes")
		}
	}

	writeJSON(w, http.StatusCreated, assessment)
}

// buildContext assembles the read-only submission context from the project
// registry. A missing project is not an error: the geofence check and the
// duplicate scan simply have nothing to work with.
func (h *Handler) buildContext(r *http.Request, req models.SubmitRequest) (models.SubmissionContext, error) {
	sctx := models.SubmissionContext{
		ProjectID:    req.ProjectID,
		Kind:         req.Kind,
		LocationHint: req.LocationHint,
	}

	project, err := h.store.GetProject(r.Context(), req.ProjectID)
	if err != nil {
		return sctx, err
	}
	if project != nil {
		sctx.Geofence = project.Geofence
		if sctx.LocationHint == "" {
			sctx.LocationHint = project.LocationHint
		}
	}

	priors, err := h.store.PriorHashes(r.Context(), req.ProjectID, h.window)
	if err != nil {
		return sctx, err
	}
	sctx.PriorHashes = priors

	return sctx, nil
}

// GetAssessment returns an assessment by ID.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "ID is required")
		return
	}

	assessment, err := h.store.GetAssessment(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get assessment")
		writeError(w, http.StatusInternalServerError, "Failed to get assessment")
		return
	}
	if assessment == nil {
		writeError(w, http.StatusNotFound, "Assessment not found")
		return
	}

	writeJSON(w, http.StatusOK, assessment)
}

// ListAssessments returns paginated assessments, optionally by project.
func (h *Handler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	projectID := r.URL.Query().Get("project_id")

	results, err := h.store.ListAssessments(r.Context(), projectID, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list assessments")
		writeError(w, http.StatusInternalServerError, "Failed to list assessments")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"limit":   limit,
		"offset":  offset,
	})
}

// UpsertProject registers or updates a project and its geofence.
func (h *Handler) UpsertProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "ID is required")
		return
	}

	var project models.ProjectRecord
	if err := json.NewDecoder(r.Body).Decode(&project); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	project.ID = id
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}
	if len(project.Geofence) > 0 && len(project.Geofence) < 3 {
		writeError(w, http.StatusBadRequest, "Geofence must have at least 3 vertices")
		return
	}

	if err := h.store.UpsertProject(r.Context(), &project); err != nil {
		log.Error().Err(err).Str("project", id).Msg("Failed to upsert project")
		writeError(w, http.StatusInternalServerError, "Failed to save project")
		return
	}

	writeJSON(w, http.StatusOK, project)
}

// GetProject returns a project record by ID.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	project, err := h.store.GetProject(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get project")
		writeError(w, http.StatusInternalServerError, "Failed to get project")
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}

	writeJSON(w, http.StatusOK, project)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
