package models

import (
	"fmt"
	"sort"
)

// Protocol identifies the transport a benchmark log was captured over
type Protocol string

const (
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTPS Protocol = "https"
)

// Protocols lists the protocols in chart order
var Protocols = []Protocol{ProtocolHTTP, ProtocolHTTPS}

// PayloadSize is a benchmark download size in bytes
type PayloadSize int64

const (
	Size1KB   PayloadSize = 1000
	Size10KB  PayloadSize = 10000
	Size100KB PayloadSize = 100000
	Size1MB   PayloadSize = 1000000
	Size10MB  PayloadSize = 10000000
)

// CanonicalSizes are the payload sizes every benchmark run covers, ascending
var CanonicalSizes = []PayloadSize{Size1KB, Size10KB, Size100KB, Size1MB, Size10MB}

// KB returns the size in kilobytes (1KB = 1000 bytes)
func (s PayloadSize) KB() float64 {
	return float64(s) / 1000.0
}

// Label returns the short name used in log file names, e.g. "10kb" or "1mb"
func (s PayloadSize) Label() string {
	switch {
	case s >= 1000000 && s%1000000 == 0:
		return fmt.Sprintf("%dmb", s/1000000)
	case s >= 1000 && s%1000 == 0:
		return fmt.Sprintf("%dkb", s/1000)
	default:
		return fmt.Sprintf("%db", int64(s))
	}
}

// Manifest maps a payload size to the log file name recorded for it
type Manifest map[PayloadSize]string

// LogFilename returns the benchmark log name for a size and protocol, e.g. "1mb-https.csv"
func LogFilename(size PayloadSize, proto Protocol) string {
	return fmt.Sprintf("%s-%s.csv", size.Label(), proto)
}

// NewManifest builds the canonical manifest for a protocol
func NewManifest(proto Protocol) Manifest {
	m := make(Manifest, len(CanonicalSizes))
	for _, size := range CanonicalSizes {
		m[size] = LogFilename(size, proto)
	}
	return m
}

// HTTPManifest returns the canonical HTTP manifest
func HTTPManifest() Manifest {
	return NewManifest(ProtocolHTTP)
}

// HTTPSManifest returns the canonical HTTPS manifest
func HTTPSManifest() Manifest {
	return NewManifest(ProtocolHTTPS)
}

// Sizes returns the manifest keys in ascending order
func (m Manifest) Sizes() []PayloadSize {
	return SortedSizes(m)
}

// SortedSizes returns the keys of any size-keyed map in ascending order
func SortedSizes[V any](m map[PayloadSize]V) []PayloadSize {
	sizes := make([]PayloadSize, 0, len(m))
	for size := range m {
		sizes = append(sizes, size)
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })
	return sizes
}
