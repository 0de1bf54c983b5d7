package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"powerplot/internal/services"
)

var errNoStore = errors.New("result store is not configured")

// Deps are the services behind the serve mode routes.
// Query and Generator may be nil; their routes then answer 503 and 404.
type Deps struct {
	Query      *services.QueryService
	Renderer   Renderer
	Generator  LogGenerator
	LogDir     string
	ChartNames []string
	Gatherer   prometheus.Gatherer
}

// NewRouter wires the serve mode routes
func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	if d.Query != nil {
		queryHandler := NewQueryHandler(d.Query)
		api.HandleFunc("/runs", queryHandler.ListRuns).Methods(http.MethodGet)
		api.HandleFunc("/runs/{id}/summaries", queryHandler.RunSummaries).Methods(http.MethodGet)
	} else {
		noStore := func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusServiceUnavailable, errNoStore)
		}
		api.HandleFunc("/runs", noStore).Methods(http.MethodGet)
		api.HandleFunc("/runs/{id}/summaries", noStore).Methods(http.MethodGet)
	}
	if d.Renderer != nil {
		api.HandleFunc("/render", NewRenderHandler(d.Renderer).Handle).Methods(http.MethodPost)
	}
	if d.Generator != nil {
		api.HandleFunc("/generate", NewGeneratorHandler(d.Generator).Handle).Methods(http.MethodPost)
	}

	router.HandleFunc("/charts/{name}", NewChartHandler(d.LogDir, d.ChartNames...).Handle).Methods(http.MethodGet)

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}).Methods(http.MethodGet)

	return router
}
