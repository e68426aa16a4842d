package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/estensen/mint-profit-pipeline/internal/models"
)

// CollectionStore reads per-collection rows of a stored run.
type CollectionStore interface {
	FetchCollections(ctx context.Context, runID string) ([]models.CollectionSummary, error)
	LatestRunID(ctx context.Context) (string, error)
}

// Server represents the API server with necessary dependencies.
type Server struct {
	store  CollectionStore
	logger *zap.Logger

	mu     sync.RWMutex
	runID  string
	report *models.Report
}

// NewServer initializes a new API server. store may be nil, in which case
// only the latest in-memory report is served.
func NewServer(store CollectionStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:  store,
		logger: logger.Named("api"),
	}
}

// SetReport replaces the report being served.
func (s *Server) SetReport(runID string, r *models.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runID = runID
	s.report = r
}

func (s *Server) latest() (string, *models.Report) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID, s.report
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("error encoding response", zap.Error(err))
	}
}

// ReportHandler handles the /report endpoint.
func (s *Server) ReportHandler(w http.ResponseWriter, r *http.Request) {
	runID, report := s.latest()
	if report == nil {
		http.Error(w, "No report available yet", http.StatusNotFound)
		return
	}
	w.Header().Set("X-Run-ID", runID)
	s.writeJSON(w, http.StatusOK, report)
}

// CollectionsHandler handles the /collections endpoint.
func (s *Server) CollectionsHandler(w http.ResponseWriter, r *http.Request) {
	latestID, report := s.latest()
	runID := r.URL.Query().Get("run_id")

	if s.store == nil {
		if runID == "" {
			runID = latestID
		}
		if report == nil || runID != latestID {
			http.Error(w, "Unknown run_id", http.StatusNotFound)
			return
		}
		s.writeJSON(w, http.StatusOK, report.ReportPerCollection)
		return
	}

	if runID == "" {
		stored, err := s.store.LatestRunID(r.Context())
		if err != nil {
			s.logger.Error("error fetching latest run", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		runID = stored
	}

	collections, err := s.store.FetchCollections(r.Context(), runID)
	if err != nil {
		s.logger.Error("error fetching collections", zap.String("run_id", runID), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if len(collections) == 0 {
		http.Error(w, "Unknown run_id", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, collections)
}

// Routes wires the handlers into a chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/report", s.ReportHandler)
	r.Get("/collections", s.CollectionsHandler)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// StartServer serves the API on addr until ctx is cancelled.
func StartServer(ctx context.Context, addr string, server *Server) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("API server is running", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
