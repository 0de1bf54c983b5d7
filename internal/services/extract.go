package services

import (
	"fmt"

	"powerplot/internal/models"
	"powerplot/internal/powerlog"
)

// EnergySeries holds the index-aligned inputs of the energy/duration chart
type EnergySeries struct {
	X             []float64
	HTTPEnergy    []float64
	HTTPSEnergy   []float64
	HTTPDuration  []float64
	HTTPSDuration []float64
}

// CurrentSeries holds the index-aligned inputs of the mean current chart.
// Means are baseline corrected; each record uses its own baseline.
type CurrentSeries struct {
	X           []float64
	HTTPMean    []float64
	HTTPSMean   []float64
	HTTPStdDev  []float64
	HTTPSStdDev []float64
}

// XValues converts payload sizes to kilobytes
func XValues(sizes []models.PayloadSize) []float64 {
	xs := make([]float64, len(sizes))
	for i, size := range sizes {
		xs[i] = size.KB()
	}
	return xs
}

// ExtractEnergy projects energy above baseline and duration out of both record sets, in sizes order
func ExtractEnergy(http, https Records, sizes []models.PayloadSize) (EnergySeries, error) {
	s := EnergySeries{
		X:             XValues(sizes),
		HTTPEnergy:    make([]float64, len(sizes)),
		HTTPSEnergy:   make([]float64, len(sizes)),
		HTTPDuration:  make([]float64, len(sizes)),
		HTTPSDuration: make([]float64, len(sizes)),
	}
	for i, size := range sizes {
		h, hs, err := pair(http, https, size)
		if err != nil {
			return EnergySeries{}, err
		}
		s.HTTPEnergy[i] = h.AboveBaselineEnergyUAh
		s.HTTPSEnergy[i] = hs.AboveBaselineEnergyUAh
		s.HTTPDuration[i] = h.DurationSeconds
		s.HTTPSDuration[i] = hs.DurationSeconds
	}
	return s, nil
}

// ExtractCurrent projects baseline-corrected mean current and its stddev out of both record sets
func ExtractCurrent(http, https Records, sizes []models.PayloadSize) (CurrentSeries, error) {
	s := CurrentSeries{
		X:           XValues(sizes),
		HTTPMean:    make([]float64, len(sizes)),
		HTTPSMean:   make([]float64, len(sizes)),
		HTTPStdDev:  make([]float64, len(sizes)),
		HTTPSStdDev: make([]float64, len(sizes)),
	}
	for i, size := range sizes {
		h, hs, err := pair(http, https, size)
		if err != nil {
			return CurrentSeries{}, err
		}
		s.HTTPMean[i] = h.MeanCurrent - h.BaselineCurrent
		s.HTTPSMean[i] = hs.MeanCurrent - hs.BaselineCurrent
		s.HTTPStdDev[i] = h.StdDevCurrent
		s.HTTPSStdDev[i] = hs.StdDevCurrent
	}
	return s, nil
}

// Summaries flattens records into one summary per size, ascending
func Summaries(proto models.Protocol, records Records) []models.Summary {
	sizes := records.Sizes()
	out := make([]models.Summary, 0, len(sizes))
	for _, size := range sizes {
		r := records[size]
		out = append(out, models.Summary{
			Protocol:     proto,
			SizeBytes:    size,
			Source:       r.Path,
			Samples:      r.Samples,
			BaselineMA:   r.BaselineCurrent,
			MeanMA:       r.MeanCurrent,
			StdDevMA:     r.StdDevCurrent,
			EnergyUAh:    r.AboveBaselineEnergyUAh,
			DurationSecs: r.DurationSeconds,
		})
	}
	return out
}

func pair(http, https Records, size models.PayloadSize) (*powerlog.Log, *powerlog.Log, error) {
	h, ok := http[size]
	if !ok || h == nil {
		return nil, nil, fmt.Errorf("no %s record for %s", models.ProtocolHTTP, size.Label())
	}
	hs, ok := https[size]
	if !ok || hs == nil {
		return nil, nil, fmt.Errorf("no %s record for %s", models.ProtocolHTTPS, size.Label())
	}
	return h, hs, nil
}
