package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"powerplot/internal/database"
	"powerplot/internal/metrics"
	"powerplot/internal/models"
	"powerplot/internal/services"
	"powerplot/internal/testutil"
)

type fakeRenderer struct {
	result *services.Result
	err    error
	calls  int
}

func (f *fakeRenderer) Run(ctx context.Context) (*services.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeGenerator struct {
	files []string
	err   error
}

func (f *fakeGenerator) GenerateLogs() ([]string, error) {
	return f.files, f.err
}

type fixture struct {
	router   http.Handler
	db       *database.DB
	renderer *fakeRenderer
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := database.NewDB(filepath.Join(dir, "runs.db"))
	testutil.FailOnError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := prometheus.NewRegistry()
	testutil.FailOnError(t, reg.Register(metrics.New(db)))

	renderer := &fakeRenderer{result: &services.Result{RunID: "run-x"}}
	router := NewRouter(Deps{
		Query:      services.NewQueryService(db),
		Renderer:   renderer,
		LogDir:     dir,
		ChartNames: []string{"energy_consumption.pdf", "mean_current.pdf"},
		Gatherer:   reg,
	})
	return &fixture{router: router, db: db, renderer: renderer, dir: dir}
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) saveRun(t *testing.T, id string) {
	t.Helper()
	summaries := []models.Summary{
		{RunID: id, Protocol: models.ProtocolHTTP, SizeBytes: models.Size1KB, EnergyUAh: 10, MeanMA: 90, BaselineMA: 80},
		{RunID: id, Protocol: models.ProtocolHTTPS, SizeBytes: models.Size1KB, EnergyUAh: 11, MeanMA: 92, BaselineMA: 80},
	}
	_, err := f.db.SaveRun(models.Run{ID: id, LogDir: f.dir}, summaries)
	testutil.FailOnError(t, err)
}

func TestListRuns(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/runs")
	testutil.Equals(t, http.StatusOK, rec.Code, "empty list status")
	testutil.Equals(t, "[]", strings.TrimSpace(rec.Body.String()), "empty list body")

	f.saveRun(t, "run-1")
	rec = f.do(t, http.MethodGet, "/api/runs")
	testutil.Equals(t, "application/json", rec.Header().Get("Content-Type"), "content type")

	var runs []models.Run
	testutil.FailOnError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	testutil.Equals(t, 1, len(runs), "run count")
	testutil.Equals(t, "run-1", runs[0].ID, "run id")
	testutil.Equals(t, 2, runs[0].Summaries, "summary count")
}

func TestRunSummaries(t *testing.T) {
	f := newFixture(t)
	f.saveRun(t, "run-1")

	rec := f.do(t, http.MethodGet, "/api/runs/run-1/summaries")
	testutil.Equals(t, http.StatusOK, rec.Code, "status")
	var summaries []models.Summary
	testutil.FailOnError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	testutil.Equals(t, 2, len(summaries), "summaries")
	testutil.Equals(t, models.ProtocolHTTPS, summaries[1].Protocol, "second protocol")
	testutil.Equals(t, 11.0, summaries[1].EnergyUAh, "https energy")

	rec = f.do(t, http.MethodGet, "/api/runs/nope/summaries")
	testutil.Equals(t, http.StatusNotFound, rec.Code, "unknown run")
}

func TestRender(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/render")
	testutil.Equals(t, http.StatusOK, rec.Code, "status")
	var resp RenderResponse
	testutil.FailOnError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	testutil.Equals(t, true, resp.Success, "success")
	testutil.Equals(t, "run-x", resp.Result.RunID, "run id")

	f.renderer.err = errors.New("failed to load 10mb log")
	rec = f.do(t, http.MethodPost, "/api/render")
	testutil.Equals(t, http.StatusInternalServerError, rec.Code, "failure status")
	testutil.Equals(t, 2, f.renderer.calls, "pipeline calls")

	rec = f.do(t, http.MethodGet, "/api/render")
	testutil.Equals(t, http.StatusMethodNotAllowed, rec.Code, "GET not allowed")
}

func TestChartsServeOnlyConfiguredNames(t *testing.T) {
	f := newFixture(t)
	testutil.FailOnError(t, os.WriteFile(filepath.Join(f.dir, "energy_consumption.pdf"), []byte("%PDF-1.4"), 0o644))

	rec := f.do(t, http.MethodGet, "/charts/energy_consumption.pdf")
	testutil.Equals(t, http.StatusOK, rec.Code, "chart status")
	testutil.Equals(t, "%PDF-1.4", rec.Body.String(), "chart body")

	rec = f.do(t, http.MethodGet, "/charts/mean_current.pdf")
	testutil.Equals(t, http.StatusNotFound, rec.Code, "not rendered yet")

	rec = f.do(t, http.MethodGet, "/charts/runs.db")
	testutil.Equals(t, http.StatusNotFound, rec.Code, "database not exposed")
}

func TestMetricsAndHealth(t *testing.T) {
	f := newFixture(t)
	f.saveRun(t, "run-1")

	rec := f.do(t, http.MethodGet, "/metrics")
	testutil.Equals(t, http.StatusOK, rec.Code, "metrics status")
	if !strings.Contains(rec.Body.String(), `powerplot_energy_above_baseline_uah{protocol="https",run_id="run-1",size_bytes="1000"} 11`) {
		t.Fatalf("energy gauge missing:\n%s", rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/health")
	testutil.Equals(t, "OK", rec.Body.String(), "health body")
}

func TestRunsWithoutStore(t *testing.T) {
	router := NewRouter(Deps{LogDir: t.TempDir(), Gatherer: prometheus.NewRegistry()})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	testutil.Equals(t, http.StatusServiceUnavailable, rec.Code, "store disabled")
}

func TestGenerate(t *testing.T) {
	gen := &fakeGenerator{files: []string{"1kb_http.csv", "1kb_https.csv"}}
	router := NewRouter(Deps{Generator: gen, LogDir: t.TempDir()})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/generate", nil))
	testutil.Equals(t, http.StatusOK, rec.Code, "generate status")
	var resp GenerateResponse
	testutil.FailOnError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	testutil.Equals(t, true, resp.Success, "success")
	testutil.Equals(t, gen.files, resp.Files, "files")

	gen.err = errors.New("disk full")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/generate", nil))
	testutil.Equals(t, http.StatusInternalServerError, rec.Code, "failed generate status")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/generate", nil))
	testutil.Equals(t, http.StatusMethodNotAllowed, rec.Code, "generate needs POST")
}
