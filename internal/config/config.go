// Package config loads command line settings from YAML files and GOGUARDML_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hed1ad/goguardml/pkg/detectors"
	"github.com/hed1ad/goguardml/pkg/detectors/iforest"
	"github.com/hed1ad/goguardml/pkg/detectors/ocsvm"
	"github.com/hed1ad/goguardml/pkg/kernels"
	"github.com/hed1ad/goguardml/pkg/perf"
	"github.com/hed1ad/goguardml/pkg/preprocessors"
)

// EnvPrefix is prepended to environment overrides, e.g. GOGUARDML_DETECTOR_NU.
const EnvPrefix = "GOGUARDML"

// Config is the full command line configuration.
type Config struct {
	Log           LogConfig      `mapstructure:"log"`
	Detector      DetectorConfig `mapstructure:"detector"`
	Kernel        KernelConfig   `mapstructure:"kernel"`
	Forest        ForestConfig   `mapstructure:"forest"`
	Preprocessors []string       `mapstructure:"preprocessors"`
	Bench         BenchConfig    `mapstructure:"bench"`
	Report        ReportConfig   `mapstructure:"report"`
}

// LogConfig selects the log level and output mode (pretty or json).
type LogConfig struct {
	Level string `mapstructure:"level"`
	Mode  string `mapstructure:"mode"`
}

// DetectorConfig picks the detector and holds the one class SVM
// hyperparameters. CacheSize is in megabytes; zero Workers means GOMAXPROCS.
type DetectorConfig struct {
	Type      string  `mapstructure:"type"`
	Nu        float64 `mapstructure:"nu"`
	Shrinking bool    `mapstructure:"shrinking"`
	Tolerance float64 `mapstructure:"tolerance"`
	CacheSize float64 `mapstructure:"cache_size"`
	Workers   int     `mapstructure:"workers"`
}

// KernelConfig describes the SVM kernel. A zero Gamma means automatic.
type KernelConfig struct {
	Type   string  `mapstructure:"type"`
	Gamma  float64 `mapstructure:"gamma"`
	Degree int     `mapstructure:"degree"`
	Coef0  float64 `mapstructure:"coef0"`
}

// ForestConfig holds the isolation forest settings.
type ForestConfig struct {
	Trees         int     `mapstructure:"trees"`
	SampleSize    int     `mapstructure:"sample_size"`
	Contamination float64 `mapstructure:"contamination"`
	Seed          int64   `mapstructure:"seed"`
}

// BenchConfig sets the latency budget and rounding of the bench command.
type BenchConfig struct {
	Budget    time.Duration `mapstructure:"budget"`
	Precision int           `mapstructure:"precision"`
}

// ReportConfig sets the default result format.
type ReportConfig struct {
	Format string `mapstructure:"format"`
}

// Detector types.
const (
	DetectorOneClassSVM     = "ocsvm"
	DetectorIsolationForest = "iforest"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.mode", "pretty")

	v.SetDefault("detector.type", DetectorOneClassSVM)
	v.SetDefault("detector.nu", 0.5)
	v.SetDefault("detector.shrinking", true)
	v.SetDefault("detector.tolerance", 1e-3)
	v.SetDefault("detector.cache_size", 100.0)
	v.SetDefault("detector.workers", 0)

	v.SetDefault("kernel.type", "rbf")
	v.SetDefault("kernel.gamma", 0.0)
	v.SetDefault("kernel.degree", 3)
	v.SetDefault("kernel.coef0", 0.0)

	v.SetDefault("forest.trees", 100)
	v.SetDefault("forest.sample_size", 256)
	v.SetDefault("forest.contamination", 0.1)
	v.SetDefault("forest.seed", 42)

	v.SetDefault("preprocessors", []string{})

	v.SetDefault("bench.budget", perf.DefaultBudget)
	v.SetDefault("bench.precision", perf.DefaultPrecision)

	v.SetDefault("report.format", "json")
}

// Load reads path, if given, on top of the defaults and applies environment
// overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %w", detectors.ErrConfiguration, path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("%w: %w", detectors.ErrConfiguration, err)
	}

	return &config, nil
}

// Build returns the configured kernel. A zero gamma means automatic.
func (c KernelConfig) Build() (kernels.Kernel, error) {
	switch strings.ToLower(c.Type) {
	case "rbf", "":
		if c.Gamma == 0 {
			return kernels.DefaultRBF(), nil
		}
		return kernels.NewRBF(c.Gamma)
	case "linear":
		return kernels.NewLinear(), nil
	case "polynomial", "poly":
		return kernels.NewPolynomial(c.Degree, c.Gamma, c.Coef0)
	case "sigmoid", "sigmoidal":
		return kernels.NewSigmoidal(c.Gamma, c.Coef0)
	default:
		return nil, fmt.Errorf("%w: unknown kernel %q", detectors.ErrConfiguration, c.Type)
	}
}

// OneClassSVMOptions translates the detector and kernel sections.
func (c *Config) OneClassSVMOptions() ([]ocsvm.Option, error) {
	kernel, err := c.Kernel.Build()
	if err != nil {
		return nil, err
	}

	opts := []ocsvm.Option{
		ocsvm.WithNu(c.Detector.Nu),
		ocsvm.WithKernel(kernel),
		ocsvm.WithShrinking(c.Detector.Shrinking),
		ocsvm.WithTolerance(c.Detector.Tolerance),
		ocsvm.WithCacheSize(c.Detector.CacheSize),
	}
	if c.Detector.Workers > 0 {
		opts = append(opts, ocsvm.WithWorkers(c.Detector.Workers))
	}
	return opts, nil
}

// IsolationForestOptions translates the forest section.
func (c *Config) IsolationForestOptions() []iforest.Option {
	return []iforest.Option{
		iforest.WithTrees(c.Forest.Trees),
		iforest.WithSampleSize(c.Forest.SampleSize),
		iforest.WithContamination(c.Forest.Contamination),
		iforest.WithSeed(c.Forest.Seed),
	}
}

// BuildPreprocessors returns the configured preprocessors in order.
func (c *Config) BuildPreprocessors() ([]preprocessors.Preprocessor, error) {
	var out []preprocessors.Preprocessor
	var errs []error
	for _, name := range c.Preprocessors {
		switch strings.ToLower(name) {
		case "l2", "l2_normalizer":
			out = append(out, preprocessors.NewL2Normalizer())
		default:
			errs = append(errs, fmt.Errorf("%w: unknown preprocessor %q", detectors.ErrConfiguration, name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}
