package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/plot/vg"

	"powerplot/internal/chart"
	"powerplot/internal/config"
	"powerplot/internal/export"
	"powerplot/internal/models"
)

// RunStore persists the summaries of a finished run
type RunStore interface {
	SaveRun(run models.Run, summaries []models.Summary) (string, error)
}

// Publisher uploads finished artifacts and returns where they went
type Publisher interface {
	Publish(ctx context.Context, runID string, paths []string) ([]string, error)
}

// Result describes one pipeline run
type Result struct {
	RunID        string           `json:"run_id"`
	EnergyChart  string           `json:"energy_chart"`
	CurrentChart string           `json:"current_chart"`
	ExportPath   string           `json:"export_path,omitempty"`
	Published    []string         `json:"published,omitempty"`
	Summaries    []models.Summary `json:"summaries"`
}

// ErrNoGenerator is returned by GenerateLogs when the pipeline has no generator
var ErrNoGenerator = errors.New("no log generator configured")

// Pipeline loads a benchmark run and renders its charts.
// Runs and log generation share one lock, so a run never reads a log
// that is still being written.
type Pipeline struct {
	cfg       *config.Config
	loader    *Loader
	store     RunStore
	publisher Publisher
	generator *Generator
	mu        sync.Mutex
}

// Option configures optional pipeline stages
type Option func(*Pipeline)

// WithStore records every run in store
func WithStore(store RunStore) Option {
	return func(p *Pipeline) { p.store = store }
}

// WithPublisher uploads every run's artifacts through pub
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithGenerator lets GenerateLogs write synthetic logs into the log directory
func WithGenerator(g *Generator) Option {
	return func(p *Pipeline) { p.generator = g }
}

// NewPipeline creates a pipeline for cfg
func NewPipeline(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	parserOpts, err := cfg.ParserOptions()
	if err != nil {
		return nil, err
	}
	p := &Pipeline{cfg: cfg, loader: NewLoader(parserOpts)}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run loads the ten logs, writes both charts, then runs the configured
// export, store and publish stages in that order
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	http, https, err := p.loader.LoadAll(p.cfg.LogDir)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sizes := http.Sizes()
	energy, err := ExtractEnergy(http, https, sizes)
	if err != nil {
		return nil, err
	}
	current, err := ExtractCurrent(http, https, sizes)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:        uuid.NewString(),
		EnergyChart:  p.cfg.EnergyChartPath(),
		CurrentChart: p.cfg.CurrentChartPath(),
	}
	if err := chart.Render(p.energyChart(energy, res.EnergyChart)); err != nil {
		return nil, fmt.Errorf("failed to render energy chart: %w", err)
	}
	log.Info().Str("file", res.EnergyChart).Msg("wrote chart")
	if err := chart.Render(p.currentChart(current, res.CurrentChart)); err != nil {
		return nil, fmt.Errorf("failed to render current chart: %w", err)
	}
	log.Info().Str("file", res.CurrentChart).Msg("wrote chart")

	res.Summaries = append(Summaries(models.ProtocolHTTP, http), Summaries(models.ProtocolHTTPS, https)...)
	for i := range res.Summaries {
		res.Summaries[i].RunID = res.RunID
	}

	if path := p.cfg.Export.Path; path != "" {
		if err := export.WriteFile(path, res.Summaries); err != nil {
			return nil, err
		}
		res.ExportPath = path
		log.Info().Str("file", path).Int("summaries", len(res.Summaries)).Msg("exported summaries")
	}

	if p.store != nil {
		run := models.Run{ID: res.RunID, LogDir: p.cfg.LogDir}
		if _, err := p.store.SaveRun(run, res.Summaries); err != nil {
			return nil, fmt.Errorf("failed to store run: %w", err)
		}
		log.Info().Str("run_id", res.RunID).Msg("stored run")
	}

	if p.publisher != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		artifacts := []string{res.EnergyChart, res.CurrentChart}
		if res.ExportPath != "" {
			artifacts = append(artifacts, res.ExportPath)
		}
		keys, err := p.publisher.Publish(ctx, res.RunID, artifacts)
		if err != nil {
			return nil, fmt.Errorf("failed to publish run: %w", err)
		}
		res.Published = keys
	}

	log.Info().
		Str("run_id", res.RunID).
		Dur("took", time.Since(start).Round(time.Millisecond)).
		Msg("pipeline completed")
	return res, nil
}

// GenerateLogs writes a fresh set of synthetic logs into the log directory
// and returns the paths written
func (p *Pipeline) GenerateLogs() ([]string, error) {
	if p.generator == nil {
		return nil, ErrNoGenerator
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generator.GenerateManifestLogs(p.cfg.LogDir)
}

func (p *Pipeline) energyChart(s EnergySeries, path string) chart.Figure {
	fig := chart.Figure{
		XLabel:         "File Size (KB)",
		YLabel:         "Energy Consumed (uAh)",
		SecondaryLabel: "Time (s)",
		LogX:           true,
		Path:           path,
		Width:          vg.Length(p.cfg.Output.WidthInches) * vg.Inch,
		Height:         vg.Length(p.cfg.Output.HeightInches) * vg.Inch,
		Series: []chart.Series{
			{Label: "HTTP Energy", X: s.X, Y: s.HTTPEnergy},
			{Label: "HTTPS Energy", X: s.X, Y: s.HTTPSEnergy},
			{Label: "HTTP Time", X: s.X, Y: s.HTTPDuration},
			{Label: "HTTPS Time", X: s.X, Y: s.HTTPSDuration},
		},
		SecondarySeries: 2,
	}
	if p.cfg.Output.Titles {
		fig.Title = "Energy Consumption"
	}
	return fig
}

func (p *Pipeline) currentChart(s CurrentSeries, path string) chart.Figure {
	fig := chart.Figure{
		XLabel: "File Size (KB)",
		YLabel: "Mean Current (mA)",
		LogX:   true,
		Path:   path,
		Width:  vg.Length(p.cfg.Output.WidthInches) * vg.Inch,
		Height: vg.Length(p.cfg.Output.HeightInches) * vg.Inch,
		Series: []chart.Series{
			{Label: "HTTP", X: s.X, Y: s.HTTPMean, YErr: s.HTTPStdDev},
			{Label: "HTTPS", X: s.X, Y: s.HTTPSMean, YErr: s.HTTPSStdDev},
		},
	}
	if p.cfg.Output.Titles {
		fig.Title = "Mean Current"
	}
	return fig
}
