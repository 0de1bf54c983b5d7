package powerlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

const DefaultVoltageColumn = "Main Voltage(V)"

// Sample is one power monitor reading
type Sample struct {
	At        time.Duration
	CurrentMA float64
	VoltageV  float64
}

// WriteCSV writes samples in the same layout Parse reads with DefaultOptions
func WriteCSV(w io.Writer, samples []Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{DefaultTimeColumn, DefaultCurrentColumn, DefaultVoltageColumn}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, s := range samples {
		ms := float64(s.At) / float64(time.Millisecond)
		row := []string{
			strconv.FormatFloat(ms, 'f', -1, 64),
			strconv.FormatFloat(s.CurrentMA, 'f', -1, 64),
			strconv.FormatFloat(s.VoltageV, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write sample: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
