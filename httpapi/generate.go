package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"tinyimg/backend"
	"tinyimg/imagegen"
	"tinyimg/pool"
	"tinyimg/shutdown"
)

// GenerateRequest is the JSON body of POST /generate. Optional fields
// left at zero get the server defaults; a nil seed means random.
type GenerateRequest struct {
	Prompt        string  `json:"prompt"`
	Model         string  `json:"model"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	Steps         int     `json:"steps"`
	GuidanceScale float64 `json:"guidance_scale"`
	Seed          *int64  `json:"seed"`
}

// GenerateMetadata echoes the effective parameters alongside the image.
type GenerateMetadata struct {
	RequestID      string  `json:"request_id"`
	Prompt         string  `json:"prompt"`
	Model          string  `json:"model"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	GuidanceScale  float64 `json:"guidance_scale"`
	Seed           int64   `json:"seed"`
	GenerationTime float64 `json:"generation_time"`
	Device         string  `json:"device"`
	DeviceIndex    int     `json:"device_index"`
}

// GenerateResponse is the JSON body of a successful generation.
type GenerateResponse struct {
	// Image is the base64-encoded PNG.
	Image    string           `json:"image"`
	Metadata GenerateMetadata `json:"metadata"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	params := backend.Params{
		Prompt:        req.Prompt,
		Width:         req.Width,
		Height:        req.Height,
		Steps:         req.Steps,
		GuidanceScale: req.GuidanceScale,
		Seed:          -1,
	}
	if req.Seed != nil {
		if *req.Seed < 0 {
			s.writeError(w, http.StatusBadRequest, "seed must be non-negative")
			return
		}
		params.Seed = *req.Seed
	}

	var result *imagegen.Result
	run := func(ctx context.Context) error {
		var err error
		result, err = s.orchestrator.Generate(ctx, req.Model, params)
		return err
	}

	var err error
	if s.admitter != nil {
		err = s.admitter.WrapOperation(r.Context(), "generate", run)
	} else {
		err = run(r.Context())
	}
	if err != nil {
		s.writeGenerateError(w, err)
		return
	}

	resp := GenerateResponse{
		Image: base64.StdEncoding.EncodeToString(result.ImageData),
		Metadata: GenerateMetadata{
			RequestID:      result.RequestID,
			Prompt:         req.Prompt,
			Model:          result.Model,
			Width:          result.Params.Width,
			Height:         result.Params.Height,
			Steps:          result.Params.Steps,
			GuidanceScale:  result.Params.GuidanceScale,
			Seed:           result.Seed,
			GenerationTime: result.Elapsed.Seconds(),
			Device:         result.Device.Name,
			DeviceIndex:    result.Device.Index,
		},
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// writeGenerateError maps orchestrator errors to HTTP status codes the
// way the original server did: bad input 400, busy 503, the rest 500.
func (s *Server) writeGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backend.ErrInvalidPrompt),
		errors.Is(err, backend.ErrInvalidParams):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, backend.ErrModelNotRegistered):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pool.ErrAcquireTimeout):
		s.writeError(w, http.StatusServiceUnavailable,
			"no device available for image generation (timeout)")
	case errors.Is(err, shutdown.ErrTrackerClosed):
		s.writeError(w, http.StatusServiceUnavailable, "server is shutting down")
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
