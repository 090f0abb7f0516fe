package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medimg-lab/apiserver/internal/services"
)

const auditListLimit = 200

// AuditHandler exposes the read-only audit log.
type AuditHandler struct {
	auditService *services.AuditService
}

// NewAuditHandler constructs a handler with the provided dependencies.
func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// AuditRouter registers audit log routes on the given router. Only
// privileged users may read the log; no write surface exists.
func AuditRouter(r chi.Router, handler *AuditHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.With(RequirePrivileged).Get("/", handler.ListAuditLogs)
}

// ListAuditLogs returns the most recent entries, newest first.
func (h *AuditHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.auditService.ListRecent(r.Context(), auditListLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audit logs")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
