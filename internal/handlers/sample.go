package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medimg-lab/apiserver/internal/services"
	"github.com/medimg-lab/apiserver/internal/storage"
	"github.com/medimg-lab/apiserver/types"
)

const (
	maxMultipartMemory = 64 << 20
	maxUploadBytes     = 512 << 20
	formFieldFile      = "file"
)

// SampleHandler provides HTTP handlers for samples.
type SampleHandler struct {
	sampleService *services.SampleService
	authzService  *services.AuthzService
	blobs         *storage.Storage
}

// NewSampleHandler constructs a handler with the provided dependencies.
func NewSampleHandler(sampleService *services.SampleService, authzService *services.AuthzService, blobs *storage.Storage) *SampleHandler {
	return &SampleHandler{
		sampleService: sampleService,
		authzService:  authzService,
		blobs:         blobs,
	}
}

// SampleRouter registers sample routes on the given router. All routes
// require an authenticated identity.
func SampleRouter(r chi.Router, handler *SampleHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Get("/", handler.ListSamples)
	r.Post("/upload/{datasetID}", handler.UploadSample)
	r.Get("/by-dataset/{datasetID}", handler.ListByDataset)
	r.Route("/{sampleID}", func(r chi.Router) {
		r.Get("/", handler.GetSample)
		r.Delete("/", handler.DeleteSample)
		r.Get("/download", handler.DownloadSample)
	})
}

func (h *SampleHandler) UploadSample(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	datasetID, err := parseIDParam(r, "datasetID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	data, err := readFileLimited(file, maxUploadBytes)
	_ = file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sample, err := h.sampleService.Upload(
		r.Context(),
		user,
		datasetID,
		header.Filename,
		header.Header.Get("Content-Type"),
		data,
		clientIP(r),
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sample)
}

func (h *SampleHandler) GetSample(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "sampleID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sample, err := h.sampleService.Get(r.Context(), user, id, clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

func (h *SampleHandler) ListSamples(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	samples, err := h.sampleService.List(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list samples")
		return
	}
	writeJSON(w, http.StatusOK, samples)
}

func (h *SampleHandler) ListByDataset(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	datasetID, err := parseIDParam(r, "datasetID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	samples, err := h.sampleService.ListByDataset(r.Context(), user, datasetID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, samples)
}

func (h *SampleHandler) DeleteSample(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "sampleID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.sampleService.Delete(r.Context(), user, id, clientIP(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadSample streams a single sample file, gated by the download
// authorization check.
func (h *SampleHandler) DownloadSample(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "sampleID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	grant, err := h.authzService.AuthorizeDownload(r.Context(), user, types.ResourceSample, id, clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	sample := grant.Samples[0]
	reader, err := h.blobs.Get(r.Context(), sample.FilePath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stored file missing")
		return
	}
	defer reader.Close()

	contentType := sample.MIME
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
