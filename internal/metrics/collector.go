package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"powerplot/internal/models"
)

// SummarySource yields the summaries of the most recent run
type SummarySource interface {
	LatestSummaries() ([]models.Summary, error)
}

// Collector exports the latest stored run as gauges labelled by protocol and payload size
type Collector struct {
	src SummarySource

	energy   *prometheus.Desc
	duration *prometheus.Desc
	mean     *prometheus.Desc
	baseline *prometheus.Desc
	stddev   *prometheus.Desc
}

func New(src SummarySource) *Collector {
	labels := []string{"protocol", "size_bytes", "run_id"}
	return &Collector{
		src: src,
		energy: prometheus.NewDesc(
			"powerplot_energy_above_baseline_uah",
			"Energy consumed above baseline during the transfer",
			labels,
			nil,
		),
		duration: prometheus.NewDesc(
			"powerplot_transfer_duration_seconds",
			"Duration of the captured transfer",
			labels,
			nil,
		),
		mean: prometheus.NewDesc(
			"powerplot_mean_current_ma",
			"Mean current over the capture",
			labels,
			nil,
		),
		baseline: prometheus.NewDesc(
			"powerplot_baseline_current_ma",
			"Idle current measured before the transfer",
			labels,
			nil,
		),
		stddev: prometheus.NewDesc(
			"powerplot_current_stddev_ma",
			"Population standard deviation of the current",
			labels,
			nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.energy
	ch <- c.duration
	ch <- c.mean
	ch <- c.baseline
	ch <- c.stddev
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	summaries, err := c.src.LatestSummaries()
	if err != nil {
		log.Error().Err(err).Msg("metrics: failed to load summaries")
		ch <- prometheus.NewInvalidMetric(c.energy, err)
		return
	}

	for _, s := range summaries {
		proto, size := string(s.Protocol), strconv.FormatInt(int64(s.SizeBytes), 10)
		emit := func(d *prometheus.Desc, v float64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, proto, size, s.RunID)
		}
		emit(c.energy, s.EnergyUAh)
		emit(c.duration, s.DurationSecs)
		emit(c.mean, s.MeanMA)
		emit(c.baseline, s.BaselineMA)
		emit(c.stddev, s.StdDevMA)
	}
}
