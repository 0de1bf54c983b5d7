package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"powerplot/internal/models"
	"powerplot/internal/testutil"
)

func sampleSummaries() []models.Summary {
	return []models.Summary{
		{RunID: "r1", Protocol: models.ProtocolHTTP, SizeBytes: models.Size1KB, Source: "1kb-http.csv",
			Samples: 120, BaselineMA: 80, MeanMA: 95.5, StdDevMA: 30.25, EnergyUAh: 10, DurationSecs: 1.07},
		{RunID: "r1", Protocol: models.ProtocolHTTPS, SizeBytes: models.Size10MB, Source: "10mb-https.csv.gz",
			Samples: 520, BaselineMA: 81, MeanMA: 240, StdDevMA: 70.5, EnergyUAh: 35, DurationSecs: 5.18},
	}
}

func TestSummariesRoundTrip(t *testing.T) {
	in := sampleSummaries()
	data, err := EncodeSummariesJSONLGZ(in)
	testutil.FailOnError(t, err)

	out, err := DecodeSummariesJSONLGZ(bytes.NewReader(data))
	testutil.FailOnError(t, err)
	testutil.Equals(t, in, out, "decoded summaries")
}

func TestEncodeWritesOneLinePerSummary(t *testing.T) {
	data, err := EncodeSummariesJSONLGZ(sampleSummaries())
	testutil.FailOnError(t, err)

	gz, err := gzip.NewReader(bytes.NewReader(data))
	testutil.FailOnError(t, err)
	var plain bytes.Buffer
	_, err = plain.ReadFrom(gz)
	testutil.FailOnError(t, err)

	lines := strings.Split(strings.TrimSuffix(plain.String(), "\n"), "\n")
	testutil.Equals(t, 2, len(lines), "line count")
	if !strings.Contains(lines[0], `"energy_uah":10`) || !strings.Contains(lines[1], `"protocol":"https"`) {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

func TestEncodeEmpty(t *testing.T) {
	data, err := EncodeSummariesJSONLGZ(nil)
	testutil.FailOnError(t, err)
	out, err := DecodeSummariesJSONLGZ(bytes.NewReader(data))
	testutil.FailOnError(t, err)
	testutil.Equals(t, 0, len(out), "no summaries")
}

func TestWriteFileReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.jsonl.gz")
	testutil.FailOnError(t, os.WriteFile(path, []byte("stale"), 0o644))

	testutil.FailOnError(t, WriteFile(path, sampleSummaries()))
	out, err := ReadFile(path)
	testutil.FailOnError(t, err)
	testutil.Equals(t, sampleSummaries(), out, "file contents")
}

func TestDecodeRejectsPlainText(t *testing.T) {
	if _, err := DecodeSummariesJSONLGZ(strings.NewReader(`{"protocol":"http"}`)); err == nil {
		t.Fatal("expected error for uncompressed input")
	}
}
