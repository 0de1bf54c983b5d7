package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"powerplot/internal/models"
	"powerplot/internal/powerlog"
	"powerplot/internal/testutil"
)

// plateauSamples is a 3s capture at 100mA with a plateau of height a between 1s and 2s.
// The first two samples fall inside the default 1s baseline window, so
// energy above baseline is 1.75*a mA·s = 1.75*a/3.6 µAh.
func plateauSamples(energyUAh float64) []powerlog.Sample {
	a := energyUAh * 3.6 / 1.75
	return []powerlog.Sample{
		{At: 0, CurrentMA: 100},
		{At: 500 * time.Millisecond, CurrentMA: 100},
		{At: 1000 * time.Millisecond, CurrentMA: 100 + a},
		{At: 2000 * time.Millisecond, CurrentMA: 100 + a},
		{At: 3000 * time.Millisecond, CurrentMA: 100},
	}
}

// writePlateauLogs writes the ten canonical logs with the given energies in ascending size order
func writePlateauLogs(t *testing.T, dir string, httpEnergy, httpsEnergy []float64) {
	t.Helper()
	energies := map[models.Protocol][]float64{
		models.ProtocolHTTP:  httpEnergy,
		models.ProtocolHTTPS: httpsEnergy,
	}
	for proto, values := range energies {
		for i, size := range models.CanonicalSizes {
			f, err := os.Create(filepath.Join(dir, models.LogFilename(size, proto)))
			testutil.FailOnError(t, err)
			testutil.FailOnError(t, powerlog.WriteCSV(f, plateauSamples(values[i])))
			testutil.FailOnError(t, f.Close())
		}
	}
}

// quietParams are generator params without noise, so statistics are exact
func quietParams() GenerateParams {
	p := DefaultGenerateParams()
	p.NoiseMA = 0
	return p
}

func generateLogs(t *testing.T, dir string, params GenerateParams) []string {
	t.Helper()
	g, err := NewGenerator(params)
	testutil.FailOnError(t, err)
	paths, err := g.GenerateManifestLogs(dir)
	testutil.FailOnError(t, err)
	return paths
}
