package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"
)

// ChartHandler handles GET /charts/{name} requests.
// Only the configured artifact names are served.
type ChartHandler struct {
	dir   string
	names map[string]bool
}

// NewChartHandler creates a new ChartHandler serving names out of dir
func NewChartHandler(dir string, names ...string) *ChartHandler {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		if n != "" {
			allowed[filepath.Base(n)] = true
		}
	}
	return &ChartHandler{dir: dir, names: allowed}
}

// Handle serves one rendered file
func (h *ChartHandler) Handle(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !h.names[name] {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(h.dir, name))
}
