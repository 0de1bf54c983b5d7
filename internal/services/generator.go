package services

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"

	"powerplot/internal/models"
	"powerplot/internal/powerlog"
)

// GenerateParams shapes the synthetic benchmark captures
type GenerateParams struct {
	Seed int64
	// SampleInterval is the spacing between readings
	SampleInterval time.Duration
	// Idle is the quiet span recorded before the transfer starts
	Idle time.Duration
	BaselineMA float64
	// ActiveMA is the extra current drawn while transferring over HTTP
	ActiveMA float64
	// ThroughputBps is the payload throughput in bytes per second
	ThroughputBps float64
	// Setup is the connection setup time before the first payload byte
	Setup map[models.Protocol]time.Duration
	// HTTPSOverhead scales the active current of HTTPS transfers
	HTTPSOverhead float64
	// NoiseMA is the standard deviation of gaussian noise added to every reading
	NoiseMA  float64
	VoltageV float64
	Gzip     bool
}

// DefaultGenerateParams returns parameters resembling a phone on wifi
func DefaultGenerateParams() GenerateParams {
	return GenerateParams{
		Seed:           1,
		SampleInterval: 10 * time.Millisecond,
		Idle:           time.Second,
		BaselineMA:     80,
		ActiveMA:       220,
		ThroughputBps:  2500000,
		Setup: map[models.Protocol]time.Duration{
			models.ProtocolHTTP:  60 * time.Millisecond,
			models.ProtocolHTTPS: 180 * time.Millisecond,
		},
		HTTPSOverhead: 1.15,
		NoiseMA:       2,
		VoltageV:      3.85,
	}
}

func (p GenerateParams) validate() error {
	if p.SampleInterval <= 0 {
		return fmt.Errorf("sample interval must be > 0, got %s", p.SampleInterval)
	}
	if p.Idle < 0 {
		return fmt.Errorf("idle span must be >= 0, got %s", p.Idle)
	}
	if p.ThroughputBps <= 0 {
		return fmt.Errorf("throughput must be > 0, got %g", p.ThroughputBps)
	}
	if p.NoiseMA < 0 {
		return fmt.Errorf("noise must be >= 0, got %g", p.NoiseMA)
	}
	return nil
}

// Generator writes synthetic power monitor logs for a benchmark run
type Generator struct {
	params GenerateParams
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewGenerator creates a new Generator instance
func NewGenerator(params GenerateParams) (*Generator, error) {
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("invalid generator params: %w", err)
	}
	return &Generator{
		params: params,
		rng:    rand.New(rand.NewSource(params.Seed)),
	}, nil
}

// GenerateManifestLogs writes one log per canonical size and protocol into dir
// and returns the paths written
func (g *Generator) GenerateManifestLogs(dir string) ([]string, error) {
	start := time.Now()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}

	var paths []string
	for _, proto := range models.Protocols {
		manifest := models.NewManifest(proto)
		for _, size := range manifest.Sizes() {
			path := filepath.Join(dir, manifest[size])
			if g.params.Gzip {
				path += ".gz"
			}
			samples := g.Samples(size, proto)
			if err := writeLog(path, samples, g.params.Gzip); err != nil {
				return nil, err
			}
			log.Debug().Str("file", path).Int("samples", len(samples)).Msg("generated log")
			paths = append(paths, path)
		}
	}

	log.Info().
		Str("dir", dir).
		Int("files", len(paths)).
		Dur("took", time.Since(start).Round(time.Millisecond)).
		Msg("generation completed")
	return paths, nil
}

// Samples builds one capture: an idle window at the baseline followed by the transfer
func (g *Generator) Samples(size models.PayloadSize, proto models.Protocol) []powerlog.Sample {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.params
	active := p.ActiveMA
	if proto == models.ProtocolHTTPS && p.HTTPSOverhead > 0 {
		active *= p.HTTPSOverhead
	}
	transfer := p.Setup[proto] + time.Duration(float64(size)/p.ThroughputBps*float64(time.Second))
	end := p.Idle + transfer

	var samples []powerlog.Sample
	for at := time.Duration(0); at <= end; at += p.SampleInterval {
		current := p.BaselineMA
		if at >= p.Idle {
			current += active
		}
		if p.NoiseMA > 0 {
			current += g.rng.NormFloat64() * p.NoiseMA
		}
		samples = append(samples, powerlog.Sample{At: at, CurrentMA: current, VoltageV: p.VoltageV})
	}
	return samples
}

func writeLog(path string, samples []powerlog.Sample, compress bool) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create log: %w", err)
	}
	defer file.Close()

	buf := bufio.NewWriter(file)
	var w io.Writer = buf
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(buf)
		w = gz
	}

	if err := powerlog.WriteCSV(w, samples); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("failed to finish gzip %s: %w", path, err)
		}
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return file.Close()
}
