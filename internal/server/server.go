// Package server provides the HTTP API for asynchronous uploads.
//
// Endpoints:
//
//	PUT /uploads/{bucket}/{key...}  launch an upload of the request body; returns the operation immediately
//	GET /uploads/{id}               poll operation status
//	GET /metrics                    prometheus metrics
//	GET /healthz                    liveness
package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tomasbasham/s3put/internal/metrics"
	"github.com/tomasbasham/s3put/internal/operation"
	"github.com/tomasbasham/s3put/internal/upload"
)

// DefaultMaxBodySize bounds the object accepted in a single request. The
// upload is a single PUT, so the whole body is held in memory.
const DefaultMaxBodySize = 64 << 20

// Server holds the dependencies shared across HTTP handlers.
type Server struct {
	tracker *operation.Tracker
	logger  *zap.Logger
	mux     *http.ServeMux

	maxBodySize int64
}

// New creates a Server wired to the given tracker.
func New(tracker *operation.Tracker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		tracker:     tracker,
		logger:      logger,
		maxBodySize: DefaultMaxBodySize,
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("PUT /uploads/{bucket}/{key...}", s.handleCreateUpload)
	s.mux.HandleFunc("GET /uploads/{id}", s.handleGetUpload)
	s.mux.Handle("GET /metrics", metrics.Handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return s
}

// SetMaxBodySize overrides DefaultMaxBodySize.
func (s *Server) SetMaxBodySize(n int64) {
	s.maxBodySize = n
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleCreateUpload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}

	req := upload.Request{
		Bucket: r.PathValue("bucket"),
		Key:    r.PathValue("key"),
		Body:   body,
	}

	op, err := s.tracker.Start(r.Context(), req)
	if err != nil {
		if errors.Is(err, upload.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("launch failed", zap.String("bucket", req.Bucket), zap.String("key", req.Key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to launch upload: "+err.Error())
		return
	}

	s.logger.Info("upload accepted",
		zap.String("operation_id", op.ID),
		zap.Int("handle", int(op.Handle)),
		zap.String("bucket", op.Bucket),
		zap.String("key", op.Key),
		zap.Int("size", op.Size))

	w.Header().Set("Location", "/uploads/"+op.ID)
	writeJSON(w, http.StatusAccepted, op)
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "operation id is required")
		return
	}

	op, err := s.tracker.Status(id)
	if err != nil {
		if errors.Is(err, operation.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("operation %q not found", id))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, op)
}
