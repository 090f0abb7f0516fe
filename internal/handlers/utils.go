package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/medimg-lab/apiserver/internal/services"
	"github.com/medimg-lab/apiserver/internal/store"
	"github.com/medimg-lab/apiserver/types"
)

type contextKey string

const contextUserKey contextKey = "user"

// currentUser returns the authenticated user injected by RequireAuth.
func currentUser(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok
}

// clientIP resolves the caller address best-effort: the first hop of an
// X-Forwarded-For header wins, then the raw connection address.
func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func parseIDParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, store.ErrInvalidState):
		writeError(w, http.StatusBadRequest, "already decided")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, services.ErrNoApproval):
		writeError(w, http.StatusForbidden, "no approval on record")
	case errors.Is(err, services.ErrNotApproved):
		writeError(w, http.StatusForbidden, "approval not granted")
	case errors.Is(err, services.ErrApprovalExpired):
		writeError(w, http.StatusForbidden, "approval expired")
	case errors.Is(err, services.ErrStorageMissing):
		writeError(w, http.StatusInternalServerError, "stored file missing")
	case errors.Is(err, services.ErrBadExtension):
		writeError(w, http.StatusBadRequest, "file type not allowed")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
