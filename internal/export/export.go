package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"powerplot/internal/models"
)

// EncodeSummariesJSONLGZ writes one JSON object per line and gzips the result
func EncodeSummariesJSONLGZ(summaries []models.Summary) ([]byte, error) {
	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}

	// Encoder terminates every value with a newline
	enc := json.NewEncoder(gz)
	for i := range summaries {
		if err := enc.Encode(&summaries[i]); err != nil {
			gz.Close()
			return nil, fmt.Errorf("failed to encode summary %d: %w", i, err)
		}
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSummariesJSONLGZ reads back the output of EncodeSummariesJSONLGZ
func DecodeSummariesJSONLGZ(r io.Reader) ([]models.Summary, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gz.Close()

	var out []models.Summary
	dec := json.NewDecoder(gz)
	for {
		var s models.Summary
		err := dec.Decode(&s)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode summary %d: %w", len(out), err)
		}
		out = append(out, s)
	}
}

// WriteFile encodes summaries and writes them to path, replacing any existing file
func WriteFile(path string, summaries []models.Summary) error {
	data, err := EncodeSummariesJSONLGZ(summaries)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// ReadFile loads summaries written by WriteFile
func ReadFile(path string) ([]models.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()
	return DecodeSummariesJSONLGZ(f)
}
