package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/hed1ad/goguardml/internal/config"
	"github.com/hed1ad/goguardml/pkg/detectors"
	"github.com/hed1ad/goguardml/pkg/detectors/iforest"
	"github.com/hed1ad/goguardml/pkg/detectors/ocsvm"
	gio "github.com/hed1ad/goguardml/pkg/io"
	"github.com/hed1ad/goguardml/pkg/io/csv"
	"github.com/hed1ad/goguardml/pkg/io/pcap"
	"github.com/hed1ad/goguardml/pkg/io/report"
	"github.com/hed1ad/goguardml/pkg/metrics"
	"github.com/hed1ad/goguardml/pkg/pipeline"
)

// inputFlags are shared by every subcommand that reads data.
type inputFlags struct {
	format   string
	noHeader bool
}

func (f *inputFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.format, "input-format", "", "input format (csv, pcap); inferred from the extension when empty")
	fs.BoolVar(&f.noHeader, "no-header", false, "CSV input has no header row")
}

// open returns a reader for path.
func (f *inputFlags) open(path string) (gio.Reader, error) {
	format := strings.ToLower(f.format)
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pcap", ".cap":
			format = "pcap"
		default:
			format = "csv"
		}
	}

	switch format {
	case "csv":
		return csv.NewReader(path, csv.WithHeader(!f.noHeader))
	case "pcap":
		return pcap.NewFileReader(path)
	default:
		return nil, fmt.Errorf("%w: unknown input format %q", detectors.ErrConfiguration, f.format)
	}
}

// buildDetector assembles the configured detector behind its preprocessors.
func buildDetector(cfg *config.Config, log zerolog.Logger, m *metrics.Metrics) (detectors.Detector, error) {
	var learner detectors.Detector

	switch strings.ToLower(cfg.Detector.Type) {
	case config.DetectorOneClassSVM, "":
		opts, err := cfg.OneClassSVMOptions()
		if err != nil {
			return nil, err
		}
		opts = append(opts, ocsvm.WithLogger(log), ocsvm.WithMetrics(m))
		d, err := ocsvm.New(opts...)
		if err != nil {
			return nil, err
		}
		learner = d
	case config.DetectorIsolationForest:
		learner = iforest.New(cfg.IsolationForestOptions()...)
	default:
		return nil, fmt.Errorf("%w: unknown detector %q", detectors.ErrConfiguration, cfg.Detector.Type)
	}

	pre, err := cfg.BuildPreprocessors()
	if err != nil {
		return nil, err
	}
	if len(pre) == 0 {
		return learner, nil
	}
	return pipeline.New(learner, pre...), nil
}

// openOutput returns a report writer for path, or stdout when path is empty.
func openOutput(path, format string) (*report.Writer, error) {
	f, err := report.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return report.NewWriter(os.Stdout, f)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := report.NewWriter(file, f)
	if err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

// closeOutput closes w, reporting its error through err unless an earlier
// one is already set.
func closeOutput(w io.Closer, err *error) {
	if cerr := w.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("closing output: %w", cerr)
	}
}

// dumpMetrics writes the registry in the Prometheus text format.
func dumpMetrics(reg *prometheus.Registry, path string) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(file, mf); err != nil {
			return err
		}
	}
	return nil
}
