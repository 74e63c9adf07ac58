package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"stones/pkg/config"
	"stones/pkg/dberrors"
	"stones/pkg/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	contentTypeJSON        = "application/json"
	contentTypeText        = "text/plain; charset=utf-8"
	defaultHTTPPort        = 8080
	defaultShutdownTimeout = time.Second * 5
)

type iStoreAPI interface {
	Put(key, value []byte) error
	Get(key []byte) ([]byte, bool, error)
	Delete(key []byte) error
	Flush() error
	Stats() store.Stats
}

// Server represents the HTTP server in front of a store
type Server struct {
	store      iStoreAPI
	cfg        config.ServerConfig
	httpServer *http.Server
	URL        string
	addr       string
}

// NewServer creates a new server instance
func NewServer(st iStoreAPI, cfg config.ServerConfig) *Server {
	if cfg.Port == 0 {
		cfg.Port = defaultHTTPPort
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	port := strconv.Itoa(cfg.Port)
	return &Server{
		store: st,
		cfg:   cfg,
		URL:   "http://localhost:" + port,
		addr:  ":" + port,
	}
}

// Start starts the server
func (s *Server) Start() error {
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	slog.Info("HTTP server stopped", "addr", s.URL)
	return nil
}

// createRouter builds chi router
func (s *Server) createRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Put("/kv", s.handlePut)
		r.Get("/kv", s.handleGet)
		r.Delete("/kv", s.handleDelete)
		r.Post("/flush", s.handleFlush)
	})

	return r
}

func (s *Server) startHTTPServer() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.createRouter(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("HTTP server started", "addr", s.URL)
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Error encoding response", "error", err)
	}
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, dberrors.ErrInvalidArgument) {
		status = http.StatusBadRequest
	}
	reqID := middleware.GetReqID(r.Context())
	slog.Error("store operation failed", "op", op, "request_id", reqID, "error", err)
	s.writeJSON(w, status, NewErrorResponse(err.Error()).WithRequestID(reqID))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, NewOKResponse())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	st := s.store.Stats()

	w.Header().Set("Content-Type", contentTypeText)
	_, err := fmt.Fprintf(w,
		"# stones metrics\n"+
			"stones_memtable_entries %d\n"+
			"stones_pending_flushes %d\n"+
			"stones_sstables %d\n"+
			"stones_sstable_bytes %d\n"+
			"stones_generation %d\n",
		st.MemtableEntries, st.PendingFlushes, st.Tables, st.DiskBytes, st.Generation,
	)
	if err != nil {
		slog.Warn("Failed to write metrics response", "error", err)
	}
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("failed to parse form"))
		return
	}

	key := r.FormValue("key")
	if key == "" {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("missing key"))
		return
	}

	if err := s.store.Put([]byte(key), []byte(r.FormValue("value"))); err != nil {
		s.writeStoreError(w, r, "put", err)
		return
	}

	s.writeJSON(w, http.StatusOK, NewSuccessResponse())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("missing key"))
		return
	}

	value, found, err := s.store.Get([]byte(key))
	if err != nil {
		s.writeStoreError(w, r, "get", err)
		return
	}
	if !found {
		s.writeJSON(w, http.StatusNotFound, NewErrorResponse(dberrors.ErrNotFound.Error()))
		return
	}

	s.writeJSON(w, http.StatusOK, NewValueResponse(value))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("missing key"))
		return
	}

	if err := s.store.Delete([]byte(key)); err != nil {
		s.writeStoreError(w, r, "delete", err)
		return
	}

	s.writeJSON(w, http.StatusOK, NewSuccessResponse())
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Flush(); err != nil {
		s.writeStoreError(w, r, "flush", err)
		return
	}

	s.writeJSON(w, http.StatusOK, NewSuccessResponse())
}
