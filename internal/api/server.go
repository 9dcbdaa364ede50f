// Package api exposes the macro operations over local HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/v0xg/webmacro/internal/macro"
	"github.com/v0xg/webmacro/internal/recorder"
	"github.com/v0xg/webmacro/internal/usecase"
	"go.uber.org/zap"
)

// StatusReporter reports on the active recording session
type StatusReporter interface {
	Status() recorder.Status
}

// Server routes HTTP requests to the macro service
type Server struct {
	svc    *usecase.Service
	status StatusReporter
	router *mux.Router
	logger *zap.Logger

	mu        sync.Mutex
	sessionID string
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets a custom logger for the server
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server for svc. status is usually the recorder the
// service was built with.
func NewServer(svc *usecase.Service, status StatusReporter, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		status: status,
		router: mux.NewRouter(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/recording", s.handleStartRecording).Methods("POST")
	s.router.HandleFunc("/recording", s.handleRecordingStatus).Methods("GET")
	s.router.HandleFunc("/recording/stop", s.handleStopRecording).Methods("POST")

	s.router.HandleFunc("/macros", s.handleListMacros).Methods("GET")
	s.router.HandleFunc("/macros/{name}", s.handleGetMacro).Methods("GET")
	s.router.HandleFunc("/macros/{name}", s.handleDeleteMacro).Methods("DELETE")
	s.router.HandleFunc("/macros/{name}/play", s.handlePlayMacro).Methods("POST")
	s.router.HandleFunc("/macros/{name}/describe", s.handleDescribeMacro).Methods("POST")
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Request/Response types
type StartRecordingRequest struct {
	URL string `json:"url"`
}

type StartRecordingResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type StopRecordingRequest struct {
	Name string `json:"name"`
}

type RecordingStatusResponse struct {
	Recording bool   `json:"recording"`
	SessionID string `json:"session_id,omitempty"`
	StartURL  string `json:"start_url,omitempty"`
	Steps     int    `json:"steps"`
}

type DescribeResponse struct {
	Description string `json:"description"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, macro.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, macro.ErrInvalidName), errors.Is(err, macro.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, macro.ErrAlreadyRecording), errors.Is(err, macro.ErrNotRecording):
		return http.StatusConflict
	case errors.Is(err, macro.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, macro.ErrDriver):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	var req StartRecordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// The browser outlives this request
	if err := s.svc.StartRecording(context.WithoutCancel(r.Context()), req.URL); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessionID = id
	s.mu.Unlock()

	// Report where the browser landed, after any redirects
	startURL := s.status.Status().StartURL
	if startURL == "" {
		startURL = req.URL
	}

	s.logger.Info("recording started", zap.String("session_id", id), zap.String("url", startURL))
	writeJSON(w, http.StatusCreated, StartRecordingResponse{SessionID: id, URL: startURL})
}

func (s *Server) handleRecordingStatus(w http.ResponseWriter, r *http.Request) {
	st := s.status.Status()
	resp := RecordingStatusResponse{
		Recording: st.Recording,
		StartURL:  st.StartURL,
		Steps:     st.Steps,
	}
	if st.Recording {
		s.mu.Lock()
		resp.SessionID = s.sessionID
		s.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStopRecording(w http.ResponseWriter, r *http.Request) {
	var req StopRecordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	m, err := s.svc.StopRecording(r.Context(), req.Name)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	s.mu.Lock()
	s.sessionID = ""
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleListMacros(w http.ResponseWriter, r *http.Request) {
	macros, err := s.svc.ListMacros(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if macros == nil {
		macros = []macro.Macro{}
	}
	writeJSON(w, http.StatusOK, macros)
}

func (s *Server) handleGetMacro(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.GetMacro(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMacro(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteMacro(r.Context(), mux.Vars(r)["name"]); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlayMacro(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.svc.PlayMacro(r.Context(), name); err != nil {
		s.logger.Warn("playback failed", zap.String("name", name), zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDescribeMacro(w http.ResponseWriter, r *http.Request) {
	desc, err := s.svc.DescribeMacro(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, DescribeResponse{Description: desc})
}
