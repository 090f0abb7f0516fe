package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medimg-lab/apiserver/internal/services"
	"github.com/medimg-lab/apiserver/types"
)

// AnnotationHandler provides HTTP handlers for annotations.
type AnnotationHandler struct {
	annotationService *services.AnnotationService
}

// NewAnnotationHandler constructs a handler with the provided dependencies.
func NewAnnotationHandler(annotationService *services.AnnotationService) *AnnotationHandler {
	return &AnnotationHandler{annotationService: annotationService}
}

// AnnotationRouter registers annotation routes on the given router. Review
// endpoints are gated to privileged users.
func AnnotationRouter(r chi.Router, handler *AnnotationHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Post("/{sampleID}", handler.CreateAnnotation)
	r.Get("/by-sample/{sampleID}", handler.ListBySample)
	r.With(RequirePrivileged).Post("/{annotationID}/approve", handler.Approve)
	r.With(RequirePrivileged).Post("/{annotationID}/reject", handler.Reject)
}

type AnnotationCreateRequest struct {
	AnnoType    types.AnnoType `json:"anno_type"`
	PayloadJSON string         `json:"payload_json"`
}

func (h *AnnotationHandler) CreateAnnotation(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sampleID, err := parseIDParam(r, "sampleID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req AnnotationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if !req.AnnoType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid annotation type")
		return
	}
	if req.PayloadJSON == "" {
		writeError(w, http.StatusBadRequest, "payload is required")
		return
	}

	created, err := h.annotationService.Create(r.Context(), user, sampleID, req.AnnoType, req.PayloadJSON, clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *AnnotationHandler) ListBySample(w http.ResponseWriter, r *http.Request) {
	sampleID, err := parseIDParam(r, "sampleID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	annos, err := h.annotationService.ListBySample(r.Context(), sampleID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, annos)
}

func (h *AnnotationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, types.AnnoApproved)
}

func (h *AnnotationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, types.AnnoRejected)
}

func (h *AnnotationHandler) review(w http.ResponseWriter, r *http.Request, status types.AnnoStatus) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "annotationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reviewed, err := h.annotationService.Review(r.Context(), user, id, status, clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewed)
}
