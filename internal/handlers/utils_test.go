package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medimg-lab/apiserver/internal/services"
	"github.com/medimg-lab/apiserver/internal/store"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"plain remote addr", "10.0.0.1:43210", "", "10.0.0.1"},
		{"remote addr without port", "10.0.0.1", "", "10.0.0.1"},
		{"forwarded single hop", "10.0.0.1:43210", "203.0.113.7", "203.0.113.7"},
		{"forwarded chain takes first hop", "10.0.0.1:43210", "203.0.113.7, 198.51.100.2, 10.0.0.1", "203.0.113.7"},
		{"forwarded with spaces", "10.0.0.1:43210", "  203.0.113.7 , 198.51.100.2", "203.0.113.7"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := clientIP(r); got != tc.want {
				t.Errorf("clientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWriteServiceError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{store.ErrConflict, http.StatusConflict},
		{store.ErrInvalidState, http.StatusBadRequest},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrNoApproval, http.StatusForbidden},
		{services.ErrNotApproved, http.StatusForbidden},
		{services.ErrApprovalExpired, http.StatusForbidden},
		{services.ErrStorageMissing, http.StatusInternalServerError},
		{services.ErrBadExtension, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		writeServiceError(w, tc.err)
		if w.Code != tc.want {
			t.Errorf("writeServiceError(%v) = %d, want %d", tc.err, w.Code, tc.want)
		}
	}
}
