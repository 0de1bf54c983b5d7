package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"powerplot/internal/models"
	"powerplot/internal/powerlog"
)

// Records maps a payload size to the log parsed for it
type Records map[models.PayloadSize]*powerlog.Log

// Sizes returns the record keys in ascending order
func (r Records) Sizes() []models.PayloadSize {
	return models.SortedSizes(r)
}

// Loader handles loading power monitor logs named by a manifest
type Loader struct {
	opts powerlog.Options
}

// NewLoader creates a new Loader instance
func NewLoader(opts powerlog.Options) *Loader {
	return &Loader{opts: opts}
}

// LoadManifest parses every log in the manifest from dir.
// A missing plain file falls back to the same name with a .gz suffix.
// The first missing or malformed file aborts the load.
func (l *Loader) LoadManifest(dir string, manifest models.Manifest) (Records, error) {
	records := make(Records, len(manifest))
	for _, size := range manifest.Sizes() {
		path, err := resolveLogPath(filepath.Join(dir, manifest[size]))
		if err != nil {
			return nil, fmt.Errorf("failed to load %s log: %w", size.Label(), err)
		}

		start := time.Now()
		record, err := powerlog.ParseFile(path, l.opts)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s log: %w", size.Label(), err)
		}
		log.Debug().
			Str("file", path).
			Int("samples", record.Samples).
			Float64("baseline_ma", record.BaselineCurrent).
			Float64("energy_uah", record.AboveBaselineEnergyUAh).
			Dur("took", time.Since(start)).
			Msg("parsed log")

		records[size] = record
	}
	return records, nil
}

// LoadAll loads the canonical HTTP and HTTPS manifests from dir
func (l *Loader) LoadAll(dir string) (Records, Records, error) {
	start := time.Now()
	log.Info().Str("dir", dir).Msg("loading benchmark logs")

	http, err := l.LoadManifest(dir, models.HTTPManifest())
	if err != nil {
		return nil, nil, err
	}
	https, err := l.LoadManifest(dir, models.HTTPSManifest())
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Int("files", len(http)+len(https)).
		Dur("took", time.Since(start).Round(time.Millisecond)).
		Msg("load completed")
	return http, https, nil
}

func resolveLogPath(path string) (string, error) {
	_, err := os.Stat(path)
	if err == nil {
		return path, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if _, gzErr := os.Stat(path + ".gz"); gzErr == nil {
		return path + ".gz", nil
	}
	return "", fmt.Errorf("log file %s: %w", path, fs.ErrNotExist)
}
