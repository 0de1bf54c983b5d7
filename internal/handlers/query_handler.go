package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"powerplot/internal/database"
	"powerplot/internal/services"
)

// QueryHandler handles GET /api/runs and GET /api/runs/{id}/summaries requests
type QueryHandler struct {
	queryService *services.QueryService
}

// NewQueryHandler creates a new QueryHandler instance
func NewQueryHandler(queryService *services.QueryService) *QueryHandler {
	return &QueryHandler{queryService: queryService}
}

// ListRuns lists every stored run, newest first
func (h *QueryHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.queryService.ListRuns()
	if err != nil {
		log.Error().Err(err).Msg("list runs failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// RunSummaries returns the per-log summaries of one run
func (h *QueryHandler) RunSummaries(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	log.Debug().Str("run_id", id).Msg("GET /api/runs/{id}/summaries")

	summaries, err := h.queryService.RunSummaries(id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, database.ErrRunNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}
