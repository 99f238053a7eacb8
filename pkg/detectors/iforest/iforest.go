// Package iforest implements the Isolation Forest algorithm for anomaly detection.
package iforest

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/hed1ad/goguardml/pkg/dataset"
	"github.com/hed1ad/goguardml/pkg/detectors"
)

// IsolationForest implements unsupervised anomaly detection using isolation trees.
type IsolationForest struct {
	mu sync.RWMutex

	// Configuration
	nTrees        int
	sampleSize    int
	contamination float64
	threshold     float64
	rng           *rand.Rand

	// Trained model, replaced as a whole by Train
	forest *forest
}

type forest struct {
	trees         []*iTree
	avgPathLength float64
	nFeatures     int
}

// iTree represents a single isolation tree.
type iTree struct {
	root *node
}

// node is a node in the isolation tree.
type node struct {
	// Split parameters (for internal nodes)
	splitFeature int
	splitValue   float64

	// Children
	left  *node
	right *node

	// Leaf information
	size int // number of samples that reached this leaf
}

// Option configures an IsolationForest.
type Option func(*IsolationForest)

// WithTrees sets the number of isolation trees.
func WithTrees(n int) Option {
	return func(f *IsolationForest) {
		f.nTrees = n
	}
}

// WithSampleSize sets the subsample size for each tree.
func WithSampleSize(n int) Option {
	return func(f *IsolationForest) {
		f.sampleSize = n
	}
}

// WithContamination sets the expected proportion of anomalies.
func WithContamination(c float64) Option {
	return func(f *IsolationForest) {
		f.contamination = c
	}
}

// WithSeed sets the random seed for reproducibility.
func WithSeed(seed int64) Option {
	return func(f *IsolationForest) {
		f.rng = rand.New(rand.NewSource(seed))
	}
}

// New creates a new IsolationForest with the given options.
func New(opts ...Option) *IsolationForest {
	cfg := detectors.DefaultConfig()
	f := &IsolationForest{
		nTrees:        100,
		sampleSize:    256,
		contamination: cfg.Contamination,
		threshold:     cfg.Threshold,
		rng:           rand.New(rand.NewSource(cfg.RandomSeed)),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Kind returns detectors.AnomalyDetector.
func (f *IsolationForest) Kind() detectors.Kind {
	return detectors.AnomalyDetector
}

// Train builds the forest from ds. The previous forest is kept if training fails.
func (f *IsolationForest) Train(ds *dataset.Dataset) error {
	if err := detectors.RequireContinuous(ds); err != nil {
		return err
	}
	if f.nTrees < 1 || f.sampleSize < 1 {
		return fmt.Errorf("%w: trees and sample size must be positive", detectors.ErrConfiguration)
	}
	if f.contamination < 0 || f.contamination >= 0.5 {
		return fmt.Errorf("%w: contamination must be in [0, 0.5), %g given", detectors.ErrConfiguration, f.contamination)
	}
	if ds.Empty() {
		return fmt.Errorf("%w: empty training data", detectors.ErrValidation)
	}

	data, err := ds.Float64s()
	if err != nil {
		return fmt.Errorf("%w: %w", detectors.ErrValidation, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	nSamples := len(data)
	nFeatures := ds.NumColumns()

	// Adjust sample size if needed
	sampleSize := min(f.sampleSize, nSamples)
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize))))

	fr := &forest{
		trees:         make([]*iTree, f.nTrees),
		avgPathLength: averagePathLength(float64(sampleSize)),
		nFeatures:     nFeatures,
	}

	for i := range fr.trees {
		// Sample without replacement
		indices := f.rng.Perm(nSamples)[:sampleSize]
		sample := make([][]float64, sampleSize)
		for j, idx := range indices {
			sample[j] = data[idx]
		}

		fr.trees[i] = &iTree{root: f.buildNode(sample, nFeatures, 0, maxDepth)}
	}

	// Set threshold based on contamination
	if f.contamination > 0 {
		f.threshold = percentile(fr.scores(data), 1-f.contamination)
	}

	f.forest = fr
	return nil
}

func (f *IsolationForest) buildNode(data [][]float64, nFeatures, depth, maxDepth int) *node {
	n := len(data)

	// Terminal conditions
	if depth >= maxDepth || n <= 1 {
		return &node{size: n}
	}

	// Random feature and split value
	feature := f.rng.Intn(nFeatures)

	// Find min/max for this feature
	minVal, maxVal := data[0][feature], data[0][feature]
	for _, row := range data[1:] {
		minVal = math.Min(minVal, row[feature])
		maxVal = math.Max(maxVal, row[feature])
	}

	// If all values are the same, return leaf
	if minVal == maxVal {
		return &node{size: n}
	}

	splitValue := minVal + f.rng.Float64()*(maxVal-minVal)

	var leftData, rightData [][]float64
	for _, row := range data {
		if row[feature] < splitValue {
			leftData = append(leftData, row)
		} else {
			rightData = append(rightData, row)
		}
	}

	return &node{
		splitFeature: feature,
		splitValue:   splitValue,
		left:         f.buildNode(leftData, nFeatures, depth+1, maxDepth),
		right:        f.buildNode(rightData, nFeatures, depth+1, maxDepth),
	}
}

// Predict labels samples whose anomaly score reaches the threshold as outliers.
func (f *IsolationForest) Predict(ds *dataset.Dataset) ([]detectors.Label, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := f.prepare(ds)
	if err != nil {
		return nil, err
	}

	return f.label(f.forest.scores(data)), nil
}

// ScoreAndPredict returns scores and labels computed under one read lock.
func (f *IsolationForest) ScoreAndPredict(ds *dataset.Dataset) ([]float64, []detectors.Label, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := f.prepare(ds)
	if err != nil {
		return nil, nil, err
	}
	scores := f.forest.scores(data)
	return scores, f.label(scores), nil
}

func (f *IsolationForest) label(scores []float64) []detectors.Label {
	labels := make([]detectors.Label, len(scores))
	for i, score := range scores {
		if score >= f.threshold {
			labels[i] = detectors.Outlier
		} else {
			labels[i] = detectors.Inlier
		}
	}
	return labels
}

// Score returns anomaly scores in [0, 1]; higher values are more anomalous.
func (f *IsolationForest) Score(ds *dataset.Dataset) ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := f.prepare(ds)
	if err != nil {
		return nil, err
	}
	return f.forest.scores(data), nil
}

func (f *IsolationForest) prepare(ds *dataset.Dataset) ([][]float64, error) {
	if ds.HasType(dataset.Categorical) {
		return nil, fmt.Errorf("%w: this estimator only works with continuous features", detectors.ErrValidation)
	}
	if f.forest == nil {
		return nil, detectors.ErrNotTrained
	}
	if !ds.Empty() && ds.NumColumns() != f.forest.nFeatures {
		return nil, fmt.Errorf("%w: estimator expects %d features, %d given",
			detectors.ErrValidation, f.forest.nFeatures, ds.NumColumns())
	}
	return ds.Float64s()
}

func (fr *forest) scores(data [][]float64) []float64 {
	scores := make([]float64, len(data))
	for i, sample := range data {
		scores[i] = fr.score(sample)
	}
	return scores
}

func (fr *forest) score(sample []float64) float64 {
	// Average path length across all trees
	var totalPath float64
	for _, tree := range fr.trees {
		totalPath += pathLength(sample, tree.root, 0)
	}
	avgPath := totalPath / float64(len(fr.trees))

	// Anomaly score: 2^(-avgPath / c(n))
	if fr.avgPathLength == 0 {
		return 0.5
	}
	return math.Pow(2, -avgPath/fr.avgPathLength)
}

// pathLength calculates the path length for a sample in a tree.
func pathLength(sample []float64, n *node, currentDepth int) float64 {
	if n.left == nil && n.right == nil {
		// Leaf node: add expected path length for remaining isolation
		return float64(currentDepth) + averagePathLength(float64(n.size))
	}

	if sample[n.splitFeature] < n.splitValue {
		return pathLength(sample, n.left, currentDepth+1)
	}
	return pathLength(sample, n.right, currentDepth+1)
}

// averagePathLength returns the average path length of unsuccessful search in BST.
func averagePathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	// c(n) = 2*H(n-1) - 2*(n-1)/n, with H(n) ≈ ln(n) + γ
	return 2*(math.Log(n-1)+0.5772156649) - 2*(n-1)/n
}

// Threshold returns the current anomaly threshold.
func (f *IsolationForest) Threshold() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.threshold
}

// SetThreshold updates the anomaly threshold.
func (f *IsolationForest) SetThreshold(t float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threshold = t
}

// percentile returns the empirical p-quantile of data, p in [0, 1].
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	return stat.Quantile(p, stat.Empirical, sorted, nil)
}
