package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/medimg-lab/apiserver/internal/services"
	"github.com/medimg-lab/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc.def.ghi", "abc.def.ghi", false},
		{"Bearer   abc  ", "abc", false},
		{"", "", true},
		{"Bearer", "", true},
		{"Bearer ", "", true},
		{"Basic dXNlcjpwYXNz", "", true},
	}

	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		got, err := bearerToken(r)
		if tc.wantErr {
			assert.Error(t, err, tc.header)
			continue
		}
		require.NoError(t, err, tc.header)
		assert.Equal(t, tc.want, got)
	}
}

// The role claim inside a token is informational only. A stale token
// claiming a privileged role must not open privileged routes once the
// persisted role says otherwise.
func TestPersistedRoleIsAuthoritative(t *testing.T) {
	repo := newFakeUserRepo()
	userService := services.NewUserService(repo)
	_, err := repo.Create(context.Background(), types.User{Username: "alice", Role: types.RoleResearcher})
	require.NoError(t, err)

	// Forge a token whose role claim says admin.
	handler := NewAuthHandler(userService, &recordingSink{}, testSecret, time.Hour)
	token, err := handler.issueToken(types.User{Username: "alice", Role: types.RoleAdmin})
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Use(RequireAuth(testSecret, userService))
	router.With(RequirePrivileged).Get("/privileged", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/plain", func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(r.Context())
		require.True(t, ok)
		assert.Equal(t, types.RoleResearcher, user.Role)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/plain", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/privileged", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAuthUnknownSubject(t *testing.T) {
	userService := services.NewUserService(newFakeUserRepo())
	handler := NewAuthHandler(userService, &recordingSink{}, testSecret, time.Hour)
	token, err := handler.issueToken(types.User{Username: "ghost", Role: types.RoleResearcher})
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Use(RequireAuth(testSecret, userService))
	router.Get("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthExpiredToken(t *testing.T) {
	repo := newFakeUserRepo()
	userService := services.NewUserService(repo)
	_, err := repo.Create(context.Background(), types.User{Username: "alice", Role: types.RoleResearcher})
	require.NoError(t, err)

	handler := NewAuthHandler(userService, &recordingSink{}, testSecret, -time.Minute)
	token, err := handler.issueToken(types.User{Username: "alice", Role: types.RoleResearcher})
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Use(RequireAuth(testSecret, userService))
	router.Get("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
