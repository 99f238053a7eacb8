// Package dataset provides the tabular container consumed by detectors.
package dataset

import (
	"errors"
	"fmt"
)

// ColumnType is the inferred type of a feature column.
type ColumnType int

const (
	// Continuous columns hold numeric values.
	Continuous ColumnType = iota
	// Categorical columns hold string values.
	Categorical
)

func (t ColumnType) String() string {
	switch t {
	case Continuous:
		return "continuous"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

var (
	// ErrRagged is returned when rows have different lengths.
	ErrRagged = errors.New("dataset: rows have different lengths")
	// ErrMixedTypes is returned when a column mixes continuous and categorical values.
	ErrMixedTypes = errors.New("dataset: column mixes feature types")
	// ErrUnsupportedType is returned for values that are neither numeric nor string.
	ErrUnsupportedType = errors.New("dataset: unsupported feature type")
	// ErrNotContinuous is returned when a continuous-only view is requested
	// from a dataset holding categorical columns.
	ErrNotContinuous = errors.New("dataset: categorical columns present")
)

// Transformer rewrites a continuous sample matrix in place.
type Transformer interface {
	Transform(samples [][]float64)
}

// Dataset is an ordered, fixed-width collection of samples.
//
// Values are float64 (or any Go integer/float kind, normalized to float64 on
// construction) for continuous features and string for categorical ones.
type Dataset struct {
	samples [][]any
	types   []ColumnType
}

// New builds a Dataset, inferring column types from the first row and
// checking every other row against them.
func New(samples [][]any) (*Dataset, error) {
	d := &Dataset{samples: make([][]any, len(samples))}
	if len(samples) == 0 {
		return d, nil
	}

	width := len(samples[0])
	d.types = make([]ColumnType, width)

	for i, row := range samples {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrRagged, i, len(row), width)
		}

		out := make([]any, width)
		for j, v := range row {
			value, typ, err := normalize(v)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			if i == 0 {
				d.types[j] = typ
			} else if d.types[j] != typ {
				return nil, fmt.Errorf("%w: column %d is %s, row %d has %s", ErrMixedTypes, j, d.types[j], i, typ)
			}
			out[j] = value
		}
		d.samples[i] = out
	}

	return d, nil
}

// FromFloat64s builds an all-continuous dataset. Rows are copied.
func FromFloat64s(samples [][]float64) (*Dataset, error) {
	rows := make([][]any, len(samples))
	for i, s := range samples {
		row := make([]any, len(s))
		for j, v := range s {
			row[j] = v
		}
		rows[i] = row
	}
	return New(rows)
}

func normalize(v any) (any, ColumnType, error) {
	switch x := v.(type) {
	case float64:
		return x, Continuous, nil
	case float32:
		return float64(x), Continuous, nil
	case int:
		return float64(x), Continuous, nil
	case int32:
		return float64(x), Continuous, nil
	case int64:
		return float64(x), Continuous, nil
	case string:
		return x, Categorical, nil
	default:
		return nil, 0, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

// NumRows returns the number of samples.
func (d *Dataset) NumRows() int { return len(d.samples) }

// NumColumns returns the number of features per sample.
func (d *Dataset) NumColumns() int { return len(d.types) }

// Empty reports whether the dataset has no samples.
func (d *Dataset) Empty() bool { return len(d.samples) == 0 }

// Types returns the inferred type of each column.
func (d *Dataset) Types() []ColumnType {
	out := make([]ColumnType, len(d.types))
	copy(out, d.types)
	return out
}

// ColumnType returns the type of column i.
func (d *Dataset) ColumnType(i int) ColumnType { return d.types[i] }

// TypeCount returns how many columns have the given type.
func (d *Dataset) TypeCount(t ColumnType) int {
	n := 0
	for _, typ := range d.types {
		if typ == t {
			n++
		}
	}
	return n
}

// HasType reports whether any column has the given type.
func (d *Dataset) HasType(t ColumnType) bool {
	return d.TypeCount(t) > 0
}

// Sample returns row i. The returned slice must not be modified.
func (d *Dataset) Sample(i int) []any { return d.samples[i] }

// Samples returns all rows. The returned slices must not be modified.
func (d *Dataset) Samples() [][]any { return d.samples }

// Row returns a single-sample dataset holding row i.
func (d *Dataset) Row(i int) *Dataset {
	return &Dataset{samples: [][]any{d.samples[i]}, types: d.types}
}

// Float64s returns a copy of the samples as a numeric matrix. It fails with
// ErrNotContinuous if any column is categorical.
func (d *Dataset) Float64s() ([][]float64, error) {
	if d.HasType(Categorical) {
		return nil, ErrNotContinuous
	}

	out := make([][]float64, len(d.samples))
	for i, row := range d.samples {
		vec := make([]float64, len(row))
		for j, v := range row {
			vec[j] = v.(float64)
		}
		out[i] = vec
	}
	return out, nil
}

// Apply runs t over the numeric matrix and stores the transformed values back
// into the dataset. The dataset is modified in place.
func (d *Dataset) Apply(t Transformer) error {
	samples, err := d.Float64s()
	if err != nil {
		return err
	}

	t.Transform(samples)

	for i, vec := range samples {
		for j, v := range vec {
			d.samples[i][j] = v
		}
	}
	return nil
}
