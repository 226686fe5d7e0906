// Package api serves stored records and discrepancies over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/docval/internal/model"
	"github.com/sells-group/docval/internal/store"
)

// MaxLimit caps the page size a client may request.
const MaxLimit = 1000

// Reader is the read side of a store.Store.
type Reader interface {
	FindRecords(ctx context.Context, f store.Filter) ([]model.StoredRecord, error)
	FindDiscrepancies(ctx context.Context, f store.Filter) ([]model.DiscrepancyRecord, error)
	Ping(ctx context.Context) error
}

// Server is the HTTP read API.
type Server struct {
	reader Reader
	log    *zap.Logger
	router *chi.Mux
}

// NewServer builds a Server with its routes registered.
func NewServer(reader Reader, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		reader: reader,
		log:    log,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/records", s.handleRecords)
		r.Get("/discrepancies", s.handleDiscrepancies)
		r.Get("/documents/{documentID}/discrepancies", s.handleDocumentDiscrepancies)
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info("api: shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("api: starting server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "api: listen")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.reader.Ping(r.Context()); err != nil {
		s.log.Warn("api: health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	recs, err := s.reader.FindRecords(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []model.StoredRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleDiscrepancies(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	s.writeDiscrepancies(w, r, f)
}

func (s *Server) handleDocumentDiscrepancies(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	f.DocumentID = chi.URLParam(r, "documentID")
	s.writeDiscrepancies(w, r, f)
}

func (s *Server) writeDiscrepancies(w http.ResponseWriter, r *http.Request, f store.Filter) {
	discs, err := s.reader.FindDiscrepancies(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if discs == nil {
		discs = []model.DiscrepancyRecord{}
	}
	writeJSON(w, http.StatusOK, discs)
}

// parseFilter reads run_id, file_name, document_id and limit query parameters.
func parseFilter(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	f := store.Filter{
		RunID:      q.Get("run_id"),
		FileName:   q.Get("file_name"),
		DocumentID: q.Get("document_id"),
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxLimit {
			return f, eris.Errorf("limit must be an integer between 1 and %d", MaxLimit)
		}
		f.Limit = n
	}
	return f, nil
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// respondError logs err and writes it as JSON. Server errors hide the detail.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	reqID := middleware.GetReqID(r.Context())
	s.log.Error("api: request error",
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", reqID),
		zap.Error(err),
	)

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg, RequestID: reqID})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
