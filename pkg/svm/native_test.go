package svm

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseOptions(nu float64) Options {
	return Options{
		OptType:       OneClass,
		OptKernelType: RBF,
		OptNu:         nu,
		OptShrinking:  true,
		OptEpsilon:    1e-3,
		OptCacheSize:  100.0,
	}
}

func TestNativeTrainErrors(t *testing.T) {
	good := generateCluster(20, 2, 1)

	tests := []struct {
		name    string
		samples [][]float64
		opts    Options
		wantErr error
	}{
		{
			name:    "nu zero",
			samples: good,
			opts:    baseOptions(0),
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "nu above one",
			samples: good,
			opts:    baseOptions(1.5),
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "zero tolerance",
			samples: good,
			opts:    baseOptions(0.5).Merge(Options{OptEpsilon: 0.0}),
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "wrong option type",
			samples: good,
			opts:    baseOptions(0.5).Merge(Options{OptShrinking: "yes"}),
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "zero degree polynomial",
			samples: good,
			opts:    baseOptions(0.5).Merge(Options{OptKernelType: Polynomial, OptDegree: 0}),
			wantErr: ErrInvalidParameter,
		},
		{
			name:    "empty samples",
			samples: nil,
			opts:    baseOptions(0.5),
			wantErr: ErrInvalidInput,
		},
		{
			name:    "ragged samples",
			samples: [][]float64{{1, 2}, {3}},
			opts:    baseOptions(0.5),
			wantErr: ErrInvalidInput,
		},
		{
			name:    "non-finite feature",
			samples: [][]float64{{1, 2}, {math.NaN(), 0}},
			opts:    baseOptions(0.5),
			wantErr: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DefaultEngine().Train(tt.samples, tt.opts)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNativeTrainOptimality(t *testing.T) {
	samples := generateCluster(200, 2, 7)
	nu := 0.2

	m, err := DefaultEngine().Train(samples, baseOptions(nu))
	require.NoError(t, err)

	fitted := m.(*model)

	var sum float64
	for _, c := range fitted.coef {
		assert.Greater(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
		sum += c
	}
	assert.InDelta(t, nu*float64(len(samples)), sum, 1e-9)
	assert.GreaterOrEqual(t, m.NumSupportVectors(), int(nu*float64(len(samples))))

	// Points clearly outside the boundary must be bounded support vectors,
	// of which there are at most ⌊νl⌋.
	outside := 0
	for _, s := range samples {
		if m.Decision(s) < -1e-3 {
			outside++
		}
	}
	assert.LessOrEqual(t, outside, int(nu*float64(len(samples))))
	assert.Equal(t, 2, m.Dim())
}

func TestNativePredict(t *testing.T) {
	samples := generateCluster(150, 2, 3)

	for _, shrinking := range []bool{true, false} {
		opts := baseOptions(0.1).Merge(Options{OptShrinking: shrinking})
		m, err := DefaultEngine().Train(samples, opts)
		require.NoError(t, err)

		assert.Equal(t, InlierLabel, m.Predict([]float64{0, 0}), "shrinking=%v", shrinking)
		assert.Equal(t, OutlierLabel, m.Predict([]float64{25, -25}), "shrinking=%v", shrinking)
		assert.Greater(t, m.Decision([]float64{0, 0}), m.Decision([]float64{3, 3}))
	}
}

func TestNativeDeterministic(t *testing.T) {
	samples := generateCluster(100, 3, 11)
	probes := generateCluster(30, 3, 12)

	first, err := DefaultEngine().Train(samples, baseOptions(0.3))
	require.NoError(t, err)
	second, err := DefaultEngine().Train(samples, baseOptions(0.3))
	require.NoError(t, err)

	for _, p := range probes {
		assert.Equal(t, first.Decision(p), second.Decision(p))
	}
}

func TestNativeKernels(t *testing.T) {
	samples := generateCluster(80, 2, 5)
	for i := range samples {
		samples[i][0] += 5
		samples[i][1] += 5
	}

	tests := []struct {
		name string
		opts Options
	}{
		{name: "linear", opts: Options{OptKernelType: Linear}},
		{name: "polynomial", opts: Options{OptKernelType: Polynomial, OptDegree: 2, OptCoef0: 1.0}},
		{name: "rbf with gamma", opts: Options{OptKernelType: RBF, OptGamma: 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DefaultEngine().Train(samples, baseOptions(0.5).Merge(tt.opts))
			require.NoError(t, err)
			assert.Positive(t, m.NumSupportVectors())
		})
	}
}

func TestNativeIterationLimit(t *testing.T) {
	samples := generateCluster(50, 2, 9)

	engine := &Native{MaxIter: 1}
	_, err := engine.Train(samples, baseOptions(0.5))
	assert.ErrorIs(t, err, ErrNotConverged)
}

func TestSmallCacheMatchesLargeCache(t *testing.T) {
	samples := generateCluster(120, 2, 21)

	small, err := DefaultEngine().Train(samples, baseOptions(0.25).Merge(Options{OptCacheSize: 1e-6}))
	require.NoError(t, err)
	large, err := DefaultEngine().Train(samples, baseOptions(0.25))
	require.NoError(t, err)

	for _, p := range [][]float64{{0, 0}, {1, -1}, {8, 8}} {
		assert.InDelta(t, large.Decision(p), small.Decision(p), 1e-9)
	}
}

func BenchmarkNativeTrain(b *testing.B) {
	samples := generateCluster(1000, 5, 1)
	opts := baseOptions(0.1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DefaultEngine().Train(samples, opts)
	}
}

func BenchmarkModelPredict(b *testing.B) {
	samples := generateCluster(1000, 5, 1)
	m, _ := DefaultEngine().Train(samples, baseOptions(0.1))
	sample := samples[0]

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Predict(sample)
	}
}

func generateCluster(n, features int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	data := make([][]float64, n)
	for i := range data {
		data[i] = make([]float64, features)
		for j := range data[i] {
			data[i][j] = rng.NormFloat64()
		}
	}
	return data
}
