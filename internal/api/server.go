// Package api exposes the action executor over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/user/creature-league/internal/game"
	"github.com/user/creature-league/internal/interfaces"
	"github.com/user/creature-league/internal/types"
	"go.uber.org/zap"
)

// maxBodyBytes caps the size of an action request
const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

// Server routes HTTP requests to the executor
type Server struct {
	executor interfaces.ActionExecutor
	logger   *zap.Logger
	timeout  time.Duration
}

// NewServer creates a new API server
func NewServer(executor interfaces.ActionExecutor, logger *zap.Logger, timeout time.Duration) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{executor: executor, logger: logger, timeout: timeout}
}

// Router builds the chi router
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(s.timeout))

	router.Get("/health", s.handleHealth)
	router.Post("/actions", s.handleAction)
	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("Health check request received",
		zap.String("remote_addr", r.RemoteAddr))
	w.Write([]byte("OK"))
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req types.ActionRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	res, err := s.executor.ExecuteAction(r.Context(), req)
	if err != nil {
		if errors.Is(err, game.ErrInvalidRequest) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		s.logger.Error("Failed to execute action",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("owner", req.OwnerJID),
			zap.String("action", string(req.Kind)),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
