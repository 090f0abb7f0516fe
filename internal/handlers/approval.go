package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/medimg-lab/apiserver/internal/services"
	"github.com/medimg-lab/apiserver/internal/store"
	"github.com/medimg-lab/apiserver/types"
)

// ApprovalHandler provides HTTP handlers for download approvals.
type ApprovalHandler struct {
	approvalService *services.ApprovalService
}

// NewApprovalHandler constructs a handler with the provided dependencies.
func NewApprovalHandler(approvalService *services.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

// ApprovalRouter registers approval routes on the given router. Review and
// listing are gated to privileged users; requesting and the self-service
// status lookup are open to any authenticated user.
func ApprovalRouter(r chi.Router, handler *ApprovalHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Post("/request", handler.RequestApproval)
	r.Get("/my", handler.MyLatest)
	r.With(RequirePrivileged).Get("/", handler.ListApprovals)
	r.With(RequirePrivileged).Post("/{approvalID}/review", handler.ReviewApproval)
}

type ApprovalRequestRequest struct {
	ResourceType types.ResourceType `json:"resourceType"`
	ResourceID   int                `json:"resourceId"`
	Purpose      string             `json:"purpose"`
}

type ApprovalReviewRequest struct {
	Decision   types.Decision `json:"decision"`
	TTLMinutes *int           `json:"ttlMinutes,omitempty"`
}

func (h *ApprovalHandler) RequestApproval(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ApprovalRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if !req.ResourceType.Valid() {
		writeError(w, http.StatusBadRequest, "resourceType must be dataset or sample")
		return
	}
	if req.ResourceID < 1 {
		writeError(w, http.StatusBadRequest, "invalid resource_id")
		return
	}

	created, err := h.approvalService.Request(r.Context(), user, req.ResourceType, req.ResourceID, req.Purpose, clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ApprovalHandler) ReviewApproval(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "approvalID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req ApprovalReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	reviewed, err := h.approvalService.Review(r.Context(), user, id, req.Decision, req.TTLMinutes, clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewed)
}

func (h *ApprovalHandler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	approvals, err := h.approvalService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list approvals")
		return
	}
	writeJSON(w, http.StatusOK, approvals)
}

// MyLatest returns the caller's most recent approval for a resource, the
// same record the download gate would consult.
func (h *ApprovalHandler) MyLatest(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resourceType := types.ResourceType(strings.TrimSpace(r.URL.Query().Get("resourceType")))
	if !resourceType.Valid() {
		writeError(w, http.StatusBadRequest, "resourceType must be dataset or sample")
		return
	}
	resourceID, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("resourceId")))
	if err != nil || resourceID < 1 {
		writeError(w, http.StatusBadRequest, "invalid resourceId")
		return
	}

	approval, err := h.approvalService.LatestFor(r.Context(), user.ID, resourceType, resourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no approval on record")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load approval")
		return
	}
	writeJSON(w, http.StatusOK, approval)
}
