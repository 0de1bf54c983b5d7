package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"powerplot/internal/services"
)

// Renderer runs the load and render pipeline
type Renderer interface {
	Run(ctx context.Context) (*services.Result, error)
}

// RenderHandler handles POST /api/render requests
type RenderHandler struct {
	pipeline Renderer
}

// NewRenderHandler creates a new RenderHandler instance
func NewRenderHandler(pipeline Renderer) *RenderHandler {
	return &RenderHandler{pipeline: pipeline}
}

// RenderResponse represents the response from the render endpoint
type RenderResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Result  *services.Result `json:"result,omitempty"`
}

// Handle reloads the logs and rewrites both charts
func (h *RenderHandler) Handle(w http.ResponseWriter, r *http.Request) {
	result, err := h.pipeline.Run(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("render failed")
		writeJSON(w, http.StatusInternalServerError, RenderResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, RenderResponse{
		Success: true,
		Message: "Charts rendered successfully",
		Result:  result,
	})
}
