package models

// Summary is the flattened view of one parsed benchmark log.
// It is what gets exported, stored and served; charts are built from the
// parsed logs directly.
type Summary struct {
	RunID        string      `json:"run_id,omitempty"`
	Protocol     Protocol    `json:"protocol"`
	SizeBytes    PayloadSize `json:"size_bytes"`
	Source       string      `json:"source"`
	Samples      int         `json:"samples"`
	BaselineMA   float64     `json:"baseline_ma"`
	MeanMA       float64     `json:"mean_ma"`
	StdDevMA     float64     `json:"stddev_ma"`
	EnergyUAh    float64     `json:"energy_uah"`
	DurationSecs float64     `json:"duration_s"`
}

// CorrectedMeanMA returns the mean current with the baseline removed
func (s Summary) CorrectedMeanMA() float64 {
	return s.MeanMA - s.BaselineMA
}

// Run describes one pipeline execution recorded in the result store
type Run struct {
	ID        string `json:"id"`
	LogDir    string `json:"log_dir"`
	CreatedAt string `json:"created_at"`
	Summaries int    `json:"summaries"`
}
