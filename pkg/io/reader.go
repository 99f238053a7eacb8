// Package io provides input/output utilities for data ingestion.
package io

import (
	"context"

	"github.com/hed1ad/goguardml/pkg/dataset"
)

// Reader is the interface for reading data from various sources.
type Reader interface {
	// Read returns the complete dataset.
	Read() (*dataset.Dataset, error)

	// Stream returns a channel of numeric samples for real-time processing.
	Stream(ctx context.Context) (<-chan []float64, error)

	// Close releases resources.
	Close() error
}

// FeatureExtractor extracts numerical features from raw data.
type FeatureExtractor interface {
	// Extract converts raw input to feature vector.
	Extract(data any) ([]float64, error)

	// FeatureNames returns the names of extracted features.
	FeatureNames() []string
}

// Writer is the interface for writing detection results.
type Writer interface {
	// Write outputs a single result.
	Write(result Result) error

	// WriteAll outputs multiple results.
	WriteAll(results []Result) error

	// Close releases resources.
	Close() error
}

// Result represents an anomaly detection result.
type Result struct {
	Index     int            `json:"index" yaml:"index"`
	Timestamp int64          `json:"timestamp" yaml:"timestamp"`
	Score     float64        `json:"score" yaml:"score"`
	IsAnomaly bool           `json:"is_anomaly" yaml:"is_anomaly"`
	Features  []float64      `json:"features,omitempty" yaml:"features,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}
