package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"powerplot/internal/config"
	"powerplot/internal/export"
	"powerplot/internal/models"
	"powerplot/internal/testutil"
)

type recordingStore struct {
	runs      []models.Run
	summaries [][]models.Summary
	err       error
}

func (s *recordingStore) SaveRun(run models.Run, summaries []models.Summary) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.runs = append(s.runs, run)
	s.summaries = append(s.summaries, summaries)
	return run.ID, nil
}

type recordingPublisher struct {
	runID string
	paths []string
}

func (p *recordingPublisher) Publish(ctx context.Context, runID string, paths []string) ([]string, error) {
	p.runID = runID
	p.paths = paths
	keys := make([]string, len(paths))
	for i, path := range paths {
		keys[i] = runID + "/" + filepath.Base(path)
	}
	return keys, nil
}

func testConfig(dir string) *config.Config {
	cfg := config.Default()
	cfg.LogDir = dir
	return cfg
}

func TestPipelineRendersBothCharts(t *testing.T) {
	dir := t.TempDir()
	generateLogs(t, dir, DefaultGenerateParams())

	p, err := NewPipeline(testConfig(dir))
	testutil.FailOnError(t, err)
	res, err := p.Run(context.Background())
	testutil.FailOnError(t, err)

	testutil.Equals(t, filepath.Join(dir, "energy_consumption.pdf"), res.EnergyChart, "energy chart path")
	testutil.Equals(t, filepath.Join(dir, "mean_current.pdf"), res.CurrentChart, "current chart path")
	for _, path := range []string{res.EnergyChart, res.CurrentChart} {
		info, err := os.Stat(path)
		testutil.FailOnError(t, err)
		if info.Size() == 0 {
			t.Fatalf("%s is empty", path)
		}
	}

	testutil.Equals(t, 10, len(res.Summaries), "one summary per log")
	testutil.Equals(t, models.ProtocolHTTP, res.Summaries[0].Protocol, "http first")
	testutil.Equals(t, models.Size1KB, res.Summaries[0].SizeBytes, "smallest first")
	testutil.Equals(t, models.ProtocolHTTPS, res.Summaries[9].Protocol, "https last")
	testutil.Equals(t, models.Size10MB, res.Summaries[9].SizeBytes, "largest last")
	for _, s := range res.Summaries {
		testutil.Equals(t, res.RunID, s.RunID, "summary run id")
	}
}

func TestPipelineRerunOverwritesSameFiles(t *testing.T) {
	dir := t.TempDir()
	generateLogs(t, dir, quietParams())
	p, err := NewPipeline(testConfig(dir))
	testutil.FailOnError(t, err)

	first, err := p.Run(context.Background())
	testutil.FailOnError(t, err)
	testutil.FailOnError(t, os.WriteFile(first.EnergyChart, []byte("stale"), 0o644))

	second, err := p.Run(context.Background())
	testutil.FailOnError(t, err)
	testutil.Equals(t, first.EnergyChart, second.EnergyChart, "energy chart name")
	testutil.Equals(t, first.CurrentChart, second.CurrentChart, "current chart name")
	if first.RunID == second.RunID {
		t.Fatal("each run needs its own id")
	}

	data, err := os.ReadFile(second.EnergyChart)
	testutil.FailOnError(t, err)
	if string(data) == "stale" {
		t.Fatal("energy chart was not overwritten")
	}

	entries, err := os.ReadDir(dir)
	testutil.FailOnError(t, err)
	testutil.Equals(t, 12, len(entries), "ten logs and two charts")
}

func TestPipelineMissingLogWritesNoChart(t *testing.T) {
	dir := t.TempDir()
	generateLogs(t, dir, quietParams())
	testutil.FailOnError(t, os.Remove(filepath.Join(dir, "10mb-https.csv")))

	store := &recordingStore{}
	p, err := NewPipeline(testConfig(dir), WithStore(store))
	testutil.FailOnError(t, err)
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing 10mb-https.csv")
	}

	for _, name := range []string{config.DefaultEnergyChart, config.DefaultCurrentChart} {
		if _, err := os.Stat(filepath.Join(dir, name)); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("%s should not exist: %v", name, err)
		}
	}
	testutil.Equals(t, 0, len(store.runs), "nothing stored")
}

func TestPipelineOptionalStages(t *testing.T) {
	dir := t.TempDir()
	generateLogs(t, dir, quietParams())

	cfg := testConfig(dir)
	cfg.Output.EnergyChart = "energy.png"
	cfg.Output.CurrentChart = "current.svg"
	cfg.Export.Path = filepath.Join(t.TempDir(), "summaries.jsonl.gz")

	store := &recordingStore{}
	pub := &recordingPublisher{}
	p, err := NewPipeline(cfg, WithStore(store), WithPublisher(pub))
	testutil.FailOnError(t, err)

	res, err := p.Run(context.Background())
	testutil.FailOnError(t, err)

	exported, err := export.ReadFile(cfg.Export.Path)
	testutil.FailOnError(t, err)
	testutil.Equals(t, res.Summaries, exported, "exported summaries")

	testutil.Equals(t, 1, len(store.runs), "stored runs")
	testutil.Equals(t, res.RunID, store.runs[0].ID, "stored run id")
	testutil.Equals(t, dir, store.runs[0].LogDir, "stored log dir")
	testutil.Equals(t, 10, len(store.summaries[0]), "stored summaries")

	testutil.Equals(t, res.RunID, pub.runID, "published run id")
	testutil.Equals(t, []string{filepath.Join(dir, "energy.png"), filepath.Join(dir, "current.svg"), cfg.Export.Path}, pub.paths, "published files")
	testutil.Equals(t, []string{res.RunID + "/energy.png", res.RunID + "/current.svg", res.RunID + "/summaries.jsonl.gz"}, res.Published, "published keys")
}

func TestPipelineStoreFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	generateLogs(t, dir, quietParams())

	p, err := NewPipeline(testConfig(dir), WithStore(&recordingStore{err: errors.New("disk full")}))
	testutil.FailOnError(t, err)
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected store error")
	}
}

func TestPipelineCancelledContext(t *testing.T) {
	dir := t.TempDir()
	generateLogs(t, dir, quietParams())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, err := NewPipeline(testConfig(dir))
	testutil.FailOnError(t, err)
	if _, err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, config.DefaultEnergyChart)); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("no chart should be written after cancel")
	}
}

func TestPipelineGenerateLogsWaitsForRun(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGenerator(quietParams())
	testutil.FailOnError(t, err)
	p, err := NewPipeline(testConfig(dir), WithGenerator(g))
	testutil.FailOnError(t, err)

	p.mu.Lock()
	done := make(chan error, 1)
	go func() {
		_, err := p.GenerateLogs()
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	entries, err := os.ReadDir(dir)
	testutil.FailOnError(t, err)
	testutil.Equals(t, 0, len(entries), "logs written while a run held the lock")

	p.mu.Unlock()
	testutil.FailOnError(t, <-done)
	entries, err = os.ReadDir(dir)
	testutil.FailOnError(t, err)
	testutil.Equals(t, 10, len(entries), "logs written after the run finished")
}

func TestPipelineConcurrentGenerateAndRun(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGenerator(quietParams())
	testutil.FailOnError(t, err)
	p, err := NewPipeline(testConfig(dir), WithGenerator(g))
	testutil.FailOnError(t, err)
	_, err = p.GenerateLogs()
	testutil.FailOnError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := p.GenerateLogs()
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := p.Run(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		testutil.FailOnError(t, err)
	}
}

func TestPipelineGenerateLogsWithoutGenerator(t *testing.T) {
	p, err := NewPipeline(testConfig(t.TempDir()))
	testutil.FailOnError(t, err)
	if _, err := p.GenerateLogs(); !errors.Is(err, ErrNoGenerator) {
		t.Fatalf("expected ErrNoGenerator, got %v", err)
	}
}
