package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MeKo-Tech/noisefield/internal/preset"
	"github.com/MeKo-Tech/noisefield/internal/query"
)

// maxSampleBody bounds a /sample request body.
const maxSampleBody = 8 << 20

// SampleHandler evaluates POSTed query.Request bodies and answers with a
// query.Response. Request errors are returned as 400 with the error set.
type SampleHandler struct {
	presets *preset.Set
	logger  *slog.Logger
}

// NewSampleHandler creates a handler sampling from presets.
func NewSampleHandler(presets *preset.Set, logger *slog.Logger) *SampleHandler {
	return &SampleHandler{presets: presets, logger: logger}
}

func (h *SampleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req query.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSampleBody)).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, query.Response{Error: "invalid request: " + err.Error()})
		return
	}

	resp, err := query.Run(h.presets, req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, query.ErrTooManyPoints) {
			status = http.StatusRequestEntityTooLarge
		}
		h.writeJSON(w, status, query.Response{Error: err.Error()})
		return
	}
	h.log().Debug("Sampled", "preset", resp.Preset, "points", len(req.Points), "surface", req.Surface, "flow", req.Flow)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *SampleHandler) writeJSON(w http.ResponseWriter, status int, resp query.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log().Error("Failed to write response", "error", err)
	}
}

func (h *SampleHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
