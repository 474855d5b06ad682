package httpapi

import (
	"encoding/json"
	"net/http"

	"tinyimg/core"
	"tinyimg/pool"
	"tinyimg/stats"
)

// StatusResponse is the JSON body of GET /status.
type StatusResponse struct {
	Status      string         `json:"status"`
	Application string         `json:"application"`
	Version     string         `json:"version"`
	DeviceCount int            `json:"device_count"`
	Pool        pool.Status    `json:"pool"`
	Stats       stats.Snapshot `json:"stats"`
	// HistoryCount is the total recorded generations, present only
	// when history is enabled.
	HistoryCount *int64 `json:"history_count,omitempty"`
}

// ModelsResponse is the JSON body of GET /models.
type ModelsResponse struct {
	Models []string `json:"models"`
}

// ErrorResponse is the JSON body of any non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	poolStatus := s.pool.Describe()
	resp := StatusResponse{
		Status:      "running",
		Application: core.AppName,
		Version:     core.GetVersion(),
		DeviceCount: poolStatus.DeviceCount,
		Pool:        poolStatus,
		Stats:       s.stats.Snapshot(),
	}

	if s.history != nil {
		if count, err := s.history.Count(r.Context()); err == nil {
			resp.HistoryCount = &count
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, ModelsResponse{
		Models: s.registry.Models(),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already written, best effort.
		s.logger.Error("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
