package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doubler struct{}

func (doubler) Transform(samples [][]float64) {
	for _, s := range samples {
		for j := range s {
			s[j] *= 2
		}
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		samples   [][]any
		wantErr   error
		wantTypes []ColumnType
	}{
		{
			name:      "continuous",
			samples:   [][]any{{1.0, 2}, {3.5, int64(4)}},
			wantTypes: []ColumnType{Continuous, Continuous},
		},
		{
			name:      "mixed columns",
			samples:   [][]any{{1.0, "tcp"}, {2.0, "udp"}},
			wantTypes: []ColumnType{Continuous, Categorical},
		},
		{
			name:    "ragged rows",
			samples: [][]any{{1.0, 2.0}, {3.0}},
			wantErr: ErrRagged,
		},
		{
			name:    "column changes type",
			samples: [][]any{{1.0}, {"x"}},
			wantErr: ErrMixedTypes,
		},
		{
			name:    "unsupported value",
			samples: [][]any{{true}},
			wantErr: ErrUnsupportedType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.samples)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTypes, d.Types())
			assert.Equal(t, len(tt.samples), d.NumRows())
			assert.Equal(t, len(tt.wantTypes), d.NumColumns())
		})
	}
}

func TestTypeCount(t *testing.T) {
	d, err := New([][]any{{1.0, "a", 2.0}})
	require.NoError(t, err)

	assert.Equal(t, 2, d.TypeCount(Continuous))
	assert.Equal(t, 1, d.TypeCount(Categorical))
	assert.True(t, d.HasType(Categorical))
	assert.Equal(t, Categorical, d.ColumnType(1))
}

func TestFloat64s(t *testing.T) {
	d, err := FromFloat64s([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)

	m, err := d.Float64s()
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, m)

	m[0][0] = 100
	assert.Equal(t, 1.0, d.Sample(0)[0], "Float64s must return a copy")

	cat, err := New([][]any{{"a"}})
	require.NoError(t, err)
	_, err = cat.Float64s()
	assert.ErrorIs(t, err, ErrNotContinuous)
}

func TestApply(t *testing.T) {
	d, err := FromFloat64s([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)

	require.NoError(t, d.Apply(doubler{}))

	m, err := d.Float64s()
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{2, 4}, {6, 8}}, m)
}

func TestRow(t *testing.T) {
	d, err := FromFloat64s([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)

	r := d.Row(1)
	assert.Equal(t, 1, r.NumRows())
	assert.Equal(t, 2, r.NumColumns())
	assert.Equal(t, []any{3.0, 4.0}, r.Sample(0))
}
