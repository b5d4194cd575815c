package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/ayuda/internal/harness"
	"github.com/hyperjump/ayuda/internal/models"
)

// maxBodyBytes leaves room for max_message_chars of multi-byte text plus JSON framing.
const maxBodyBytes = 1 << 20

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s type", typeErr.Field))
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.chat.Chat(r.Context(), req)
	if err != nil {
		status, detail := s.classify(err)
		s.respondError(w, status, detail)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// classify maps a chat error to its status code and client-facing detail.
func (s *Server) classify(err error) (int, string) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Detail
	}
	var uerr *harness.UnavailableError
	if errors.As(err, &uerr) {
		return http.StatusServiceUnavailable, fmt.Sprintf("Search backend not available: %v", uerr.Cause)
	}
	var terr *harness.TimeoutError
	if errors.As(err, &terr) {
		return http.StatusGatewayTimeout, fmt.Sprintf("Search timed out after %g seconds", terr.Deadline.Seconds())
	}
	s.logger.Error("chat failed", zap.Error(err))
	return http.StatusInternalServerError, err.Error()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.chat.Health())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, map[string]string{"detail": detail})
}
