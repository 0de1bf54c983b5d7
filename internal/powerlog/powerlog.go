package powerlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultTimeColumn    = "Time(ms)"
	DefaultCurrentColumn = "Main(mA)"
)

var (
	// ErrTooFewSamples is returned when a log holds fewer than two samples
	ErrTooFewSamples = errors.New("log needs at least two samples")
	// ErrMissingColumn is returned when the header lacks the time or current column
	ErrMissingColumn = errors.New("missing column")
)

// Options controls how a power monitor CSV export is interpreted
type Options struct {
	TimeColumn    string
	CurrentColumn string
	// TimeUnit is the duration of one unit in the time column
	TimeUnit time.Duration
	// BaselineWindow is the leading idle span averaged into the baseline current
	BaselineWindow time.Duration
}

// DefaultOptions returns options for a Monsoon-style export sampled in milliseconds
func DefaultOptions() Options {
	return Options{
		TimeColumn:     DefaultTimeColumn,
		CurrentColumn:  DefaultCurrentColumn,
		TimeUnit:       time.Millisecond,
		BaselineWindow: time.Second,
	}
}

// Log holds the statistics derived from one power monitor capture.
// Currents are in mA, energy in µAh and duration in seconds.
type Log struct {
	Path                   string
	Samples                int
	BaselineCurrent        float64
	MeanCurrent            float64
	StdDevCurrent          float64
	AboveBaselineEnergyUAh float64
	DurationSeconds        float64
}

// ParseFile opens and parses a log file; names ending in .gz are decompressed
func ParseFile(path string, opts Options) (*Log, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip log %s: %w", path, err)
		}
		defer gz.Close()
		reader = gz
	}

	log, err := Parse(reader, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	log.Path = path
	return log, nil
}

// Parse reads samples from r and computes the log statistics
func Parse(r io.Reader, opts Options) (*Log, error) {
	opts = opts.withDefaults()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrTooFewSamples
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	timeIdx := columnIndex(header, opts.TimeColumn)
	if timeIdx < 0 {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, opts.TimeColumn)
	}
	currentIdx := columnIndex(header, opts.CurrentColumn)
	if currentIdx < 0 {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, opts.CurrentColumn)
	}

	unit := opts.TimeUnit.Seconds()
	var times, currents []float64

	for rowIdx := 2; ; rowIdx++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowIdx, err)
		}
		if allEmpty(row) {
			continue
		}

		t, err := cell(row, timeIdx, header)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowIdx, err)
		}
		c, err := cell(row, currentIdx, header)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowIdx, err)
		}

		t *= unit
		if n := len(times); n > 0 && t <= times[n-1] {
			return nil, fmt.Errorf("row %d: time %.6fs does not increase", rowIdx, t)
		}
		times = append(times, t)
		currents = append(currents, c)
	}

	if len(times) < 2 {
		return nil, ErrTooFewSamples
	}

	return summarize(times, currents, opts.BaselineWindow.Seconds()), nil
}

func summarize(times, currents []float64, window float64) *Log {
	baseline := baselineCurrent(times, currents, window)
	mean, std := stat.PopMeanStdDev(currents, nil)

	excess := make([]float64, len(currents))
	for i, c := range currents {
		excess[i] = c - baseline
	}
	// mA*s -> mAh -> µAh
	energy := integrate.Trapezoidal(times, excess) / 3600.0 * 1000.0

	return &Log{
		Samples:                len(times),
		BaselineCurrent:        baseline,
		MeanCurrent:            mean,
		StdDevCurrent:          std,
		AboveBaselineEnergyUAh: energy,
		DurationSeconds:        times[len(times)-1] - times[0],
	}
}

// baselineCurrent averages the samples inside the leading window.
// An empty window falls back to the first sample.
func baselineCurrent(times, currents []float64, window float64) float64 {
	start := times[0]
	end := 0
	for end < len(times) && times[end]-start < window {
		end++
	}
	if end == 0 {
		return currents[0]
	}
	return stat.Mean(currents[:end], nil)
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if strings.TrimSpace(o.TimeColumn) == "" {
		o.TimeColumn = def.TimeColumn
	}
	if strings.TrimSpace(o.CurrentColumn) == "" {
		o.CurrentColumn = def.CurrentColumn
	}
	if o.TimeUnit <= 0 {
		o.TimeUnit = def.TimeUnit
	}
	if o.BaselineWindow < 0 {
		o.BaselineWindow = 0
	}
	return o
}

func columnIndex(header []string, name string) int {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range header {
		// Some exporters prefix the first header cell with a UTF-8 BOM
		h = strings.TrimPrefix(h, "\ufeff")
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int, header []string) (float64, error) {
	if idx >= len(row) {
		return 0, fmt.Errorf("column %s missing", header[idx])
	}
	raw := strings.TrimSpace(row[idx])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: invalid number %q: %w", header[idx], raw, err)
	}
	return v, nil
}

func allEmpty(ss []string) bool {
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}
