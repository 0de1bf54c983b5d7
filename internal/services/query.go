package services

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"powerplot/internal/database"
	"powerplot/internal/models"
)

// QueryService handles querying stored runs from the database
type QueryService struct {
	db *database.DB
}

// NewQueryService creates a new QueryService instance
func NewQueryService(db *database.DB) *QueryService {
	return &QueryService{db: db}
}

// ListRuns returns every stored run, newest first
func (q *QueryService) ListRuns() ([]models.Run, error) {
	start := time.Now()
	runs, err := q.db.ListRuns()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	log.Debug().Int("runs", len(runs)).Dur("took", time.Since(start)).Msg("listed runs")
	return runs, nil
}

// RunSummaries returns the summaries of one run; unknown ids wrap database.ErrRunNotFound
func (q *QueryService) RunSummaries(runID string) ([]models.Summary, error) {
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	start := time.Now()
	summaries, err := q.db.GetRunSummaries(runID)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("run_id", runID).
		Int("summaries", len(summaries)).
		Dur("took", time.Since(start)).
		Msg("queried summaries")
	return summaries, nil
}

// LatestSummaries returns the summaries of the most recent run
func (q *QueryService) LatestSummaries() ([]models.Summary, error) {
	summaries, err := q.db.LatestSummaries()
	if err != nil {
		return nil, fmt.Errorf("failed to query latest summaries: %w", err)
	}
	return summaries, nil
}
