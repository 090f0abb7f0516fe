package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/medimg-lab/apiserver/internal/services"
	"github.com/medimg-lab/apiserver/internal/storage"
	"github.com/medimg-lab/apiserver/types"
)

// DatasetHandler provides HTTP handlers for datasets.
type DatasetHandler struct {
	datasetService *services.DatasetService
	authzService   *services.AuthzService
	blobs          *storage.Storage
}

// NewDatasetHandler constructs a handler with the provided dependencies.
func NewDatasetHandler(datasetService *services.DatasetService, authzService *services.AuthzService, blobs *storage.Storage) *DatasetHandler {
	return &DatasetHandler{
		datasetService: datasetService,
		authzService:   authzService,
		blobs:          blobs,
	}
}

// DatasetRouter registers dataset routes on the given router. All routes
// require an authenticated identity.
func DatasetRouter(r chi.Router, handler *DatasetHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Post("/", handler.CreateDataset)
	r.Get("/", handler.ListDatasets)
	r.Route("/{datasetID}", func(r chi.Router) {
		r.Get("/", handler.GetDataset)
		r.Delete("/", handler.DeleteDataset)
		r.Get("/download", handler.DownloadDataset)
	})
}

type DatasetCreateRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Version     string           `json:"version,omitempty"`
	Visibility  types.Visibility `json:"visibility,omitempty"`
}

func (h *DatasetHandler) CreateDataset(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req DatasetCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "dataset name is required")
		return
	}

	created, err := h.datasetService.Create(r.Context(), user, types.Dataset{
		Name:        req.Name,
		Description: req.Description,
		Version:     req.Version,
		Visibility:  req.Visibility,
	}, clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *DatasetHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	datasets, err := h.datasetService.List(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list datasets")
		return
	}
	writeJSON(w, http.StatusOK, datasets)
}

func (h *DatasetHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "datasetID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dataset, err := h.datasetService.Get(r.Context(), user, id, clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dataset)
}

func (h *DatasetHandler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "datasetID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.datasetService.Delete(r.Context(), user, id, clientIP(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadDataset streams the dataset's samples as a zip archive, gated by
// the download authorization check.
func (h *DatasetHandler) DownloadDataset(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "datasetID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	grant, err := h.authzService.AuthorizeDownload(r.Context(), user, types.ResourceDataset, id, clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", grant.ArchiveName))
	w.WriteHeader(http.StatusOK)
	_ = storage.WriteZip(r.Context(), w, h.blobs, grant.Samples)
}
