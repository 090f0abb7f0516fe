package handlers

import (
	"database/sql"
	"net/http"
)

// HealthResponse reports application and database liveness.
type HealthResponse struct {
	OK bool `json:"ok"`
	DB bool `json:"db"`
}

// Health returns a liveness probe handler that pings the database.
func Health(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbOK := db.PingContext(r.Context()) == nil
		writeJSON(w, http.StatusOK, HealthResponse{OK: true, DB: dbOK})
	}
}
