package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/medimg-lab/apiserver/config"
	"github.com/medimg-lab/apiserver/internal/db"
	"github.com/medimg-lab/apiserver/internal/events"
	"github.com/medimg-lab/apiserver/internal/handlers"
	"github.com/medimg-lab/apiserver/internal/services"
	"github.com/medimg-lab/apiserver/internal/storage"
	"github.com/medimg-lab/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	publisher  events.Publisher
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWT.Secret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	backend, err := storage.NewBackend(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	blobs := storage.NewStorage(backend)
	if err := blobs.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	publisher, err := events.NewPublisher(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	datasetRepo := store.NewDatasetRepository(dbConn)
	sampleRepo := store.NewSampleRepository(dbConn)
	annotationRepo := store.NewAnnotationRepository(dbConn)
	approvalRepo := store.NewApprovalRepository(dbConn)
	auditRepo := store.NewAuditRepository(dbConn)

	auditService := services.NewAuditService(auditRepo, publisher)
	userService := services.NewUserService(userRepo)
	datasetService := services.NewDatasetService(datasetRepo, blobs, auditService)
	sampleService := services.NewSampleService(sampleRepo, datasetRepo, blobs, auditService)
	annotationService := services.NewAnnotationService(annotationRepo, sampleRepo, auditService)
	approvalService := services.NewApprovalService(approvalRepo, auditService)
	authzService := services.NewAuthzService(datasetRepo, sampleRepo, approvalRepo, blobs, auditService)

	authMiddleware := handlers.RequireAuth(jwtSecret, userService)
	tokenTTL := time.Duration(cfg.JWT.TTLMinutes) * time.Minute

	authHandler := handlers.NewAuthHandler(userService, auditService, jwtSecret, tokenTTL)
	datasetHandler := handlers.NewDatasetHandler(datasetService, authzService, blobs)
	sampleHandler := handlers.NewSampleHandler(sampleService, authzService, blobs)
	annotationHandler := handlers.NewAnnotationHandler(annotationService)
	approvalHandler := handlers.NewApprovalHandler(approvalService)
	auditHandler := handlers.NewAuditHandler(auditService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/health", handlers.Health(dbConn))
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler, authMiddleware)
	})
	router.Route("/datasets", func(r chi.Router) {
		handlers.DatasetRouter(r, datasetHandler, authMiddleware)
	})
	router.Route("/samples", func(r chi.Router) {
		handlers.SampleRouter(r, sampleHandler, authMiddleware)
	})
	router.Route("/annotations", func(r chi.Router) {
		handlers.AnnotationRouter(r, annotationHandler, authMiddleware)
	})
	router.Route("/approvals", func(r chi.Router) {
		handlers.ApprovalRouter(r, approvalHandler, authMiddleware)
	})
	router.Route("/audit-logs", func(r chi.Router) {
		handlers.AuditRouter(r, auditHandler, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		publisher:  publisher,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
