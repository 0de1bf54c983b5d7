package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// LogGenerator writes synthetic logs into the served log directory
type LogGenerator interface {
	GenerateLogs() ([]string, error)
}

// GeneratorHandler handles POST /api/generate requests
type GeneratorHandler struct {
	generator LogGenerator
}

// NewGeneratorHandler creates a new GeneratorHandler instance
func NewGeneratorHandler(generator LogGenerator) *GeneratorHandler {
	return &GeneratorHandler{generator: generator}
}

// GenerateResponse represents the response from the generate endpoint
type GenerateResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Files   []string `json:"files,omitempty"`
}

// Handle writes a fresh set of synthetic benchmark logs into the log directory
func (h *GeneratorHandler) Handle(w http.ResponseWriter, r *http.Request) {
	files, err := h.generator.GenerateLogs()
	if err != nil {
		log.Error().Err(err).Msg("generate failed")
		writeJSON(w, http.StatusInternalServerError, GenerateResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Success: true,
		Message: "Synthetic logs generated successfully",
		Files:   files,
	})
}
