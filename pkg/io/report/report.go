// Package report writes detection results as JSON lines or YAML documents.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hed1ad/goguardml/pkg/dataset"
	"github.com/hed1ad/goguardml/pkg/detectors"
	gio "github.com/hed1ad/goguardml/pkg/io"
)

// Format selects the output encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ErrUnknownFormat is returned by ParseFormat and NewWriter.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat maps a user supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "jsonl", "":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

type encoder interface {
	Encode(v any) error
}

// Writer encodes results to an underlying stream.
type Writer struct {
	format Format
	enc    encoder
	closer io.Closer
	yaml   *yaml.Encoder
}

var _ gio.Writer = (*Writer)(nil)

// NewWriter returns a Writer encoding to w. If w is an io.Closer other than
// os.Stdout or os.Stderr, Close closes it.
func NewWriter(w io.Writer, format Format) (*Writer, error) {
	rw := &Writer{format: format}

	switch format {
	case JSON:
		rw.enc = json.NewEncoder(w)
	case YAML:
		rw.yaml = yaml.NewEncoder(w)
		rw.yaml.SetIndent(2)
		rw.enc = rw.yaml
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if c, ok := w.(io.Closer); ok && w != os.Stdout && w != os.Stderr {
		rw.closer = c
	}
	return rw, nil
}

// Format returns the output encoding.
func (w *Writer) Format() Format {
	return w.format
}

// Write outputs a single result as one JSON line or YAML document.
func (w *Writer) Write(result gio.Result) error {
	return w.enc.Encode(result)
}

// WriteAll outputs every result. YAML output is a single sequence document.
func (w *Writer) WriteAll(results []gio.Result) error {
	if w.format == YAML {
		return w.enc.Encode(results)
	}
	for _, r := range results {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Encode writes an arbitrary value, such as a harness report, in the
// writer's format.
func (w *Writer) Encode(v any) error {
	return w.enc.Encode(v)
}

// Close flushes YAML output and releases the underlying stream.
func (w *Writer) Close() error {
	var err error
	if w.yaml != nil {
		err = w.yaml.Close()
	}
	if w.closer != nil {
		err = errors.Join(err, w.closer.Close())
	}
	return err
}

// Results pairs scores and labels with the samples of ds. Features are
// included when ds is continuous.
func Results(ds *dataset.Dataset, scores []float64, labels []detectors.Label) ([]gio.Result, error) {
	if len(scores) != ds.NumRows() || len(labels) != ds.NumRows() {
		return nil, fmt.Errorf("%w: %d samples, %d scores, %d labels",
			detectors.ErrValidation, ds.NumRows(), len(scores), len(labels))
	}

	features, err := ds.Float64s()
	if err != nil {
		features = nil
	}

	now := time.Now().Unix()
	results := make([]gio.Result, ds.NumRows())
	for i := range results {
		results[i] = gio.Result{
			Index:     i,
			Timestamp: now,
			Score:     scores[i],
			IsAnomaly: labels[i] == detectors.Outlier,
		}
		if features != nil {
			results[i].Features = features[i]
		}
	}
	return results, nil
}
