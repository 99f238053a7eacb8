package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hed1ad/goguardml/pkg/dataset"
	"github.com/hed1ad/goguardml/pkg/detectors"
	gio "github.com/hed1ad/goguardml/pkg/io"
	"github.com/hed1ad/goguardml/pkg/io/report"
	"github.com/hed1ad/goguardml/pkg/metrics"
)

type detectOptions struct {
	input       inputFlags
	train       string
	output      string
	format      string
	stream      bool
	metricsFile string
}

func newDetectCmd() *cobra.Command {
	o := &detectOptions{}

	cmd := &cobra.Command{
		Use:   "detect --train FILE [INPUT]",
		Short: "Train a detector and label samples",
		Long: `Trains the configured detector on the --train file and labels every sample
of INPUT, or of the training file itself when INPUT is omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := o.train
			if len(args) == 1 {
				input = args[0]
			}
			return o.run(cmd.Context(), input)
		},
	}

	o.input.register(cmd.Flags())
	cmd.Flags().StringVar(&o.train, "train", "", "training data file")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "write results to this file instead of stdout")
	cmd.Flags().StringVar(&o.format, "report-format", "", "result format (json, yaml); defaults to the config value")
	cmd.Flags().BoolVar(&o.stream, "stream", false, "label INPUT sample by sample as it is read")
	cmd.Flags().StringVar(&o.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	_ = cmd.MarkFlagRequired("train")

	return cmd
}

func (o *detectOptions) run(ctx context.Context, input string) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	detector, err := buildDetector(cfg, log.Logger, m)
	if err != nil {
		return err
	}

	train, err := o.read(o.train)
	if err != nil {
		return err
	}
	if err := detector.Train(train); err != nil {
		return err
	}

	format := o.format
	if format == "" {
		format = cfg.Report.Format
	}
	w, err := openOutput(o.output, format)
	if err != nil {
		return err
	}
	defer closeOutput(w, &err)

	var outliers, total int
	if o.stream {
		outliers, total, err = o.runStream(ctx, detector, input, w)
	} else {
		outliers, total, err = o.runBatch(detector, input, w)
	}
	if err != nil {
		return err
	}

	log.Info().
		Int("samples", total).
		Int("outliers", outliers).
		Str("detector", cfg.Detector.Type).
		Msg("Detection complete")

	if o.metricsFile != "" {
		return dumpMetrics(reg, o.metricsFile)
	}
	return nil
}

func (o *detectOptions) read(path string) (*dataset.Dataset, error) {
	r, err := o.input.open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	ds, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	log.Debug().Str("file", path).Int("samples", ds.NumRows()).Int("features", ds.NumColumns()).Msg("Loaded dataset")
	return ds, nil
}

func (o *detectOptions) runBatch(d detectors.Detector, input string, w *report.Writer) (int, int, error) {
	ds, err := o.read(input)
	if err != nil {
		return 0, 0, err
	}

	scores, labels, err := detectors.ScoreAndPredict(d, ds)
	if err != nil {
		return 0, 0, err
	}

	results, err := report.Results(ds, scores, labels)
	if err != nil {
		return 0, 0, err
	}
	if err := w.WriteAll(results); err != nil {
		return 0, 0, err
	}

	outliers := 0
	for _, r := range results {
		if r.IsAnomaly {
			outliers++
		}
	}
	return outliers, len(results), nil
}

func (o *detectOptions) runStream(ctx context.Context, d detectors.Detector, input string, w *report.Writer) (int, int, error) {
	r, err := o.input.open(input)
	if err != nil {
		return 0, 0, err
	}
	defer r.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	samples, err := r.Stream(ctx)
	if err != nil {
		return 0, 0, err
	}

	scores := make(chan detectors.Score, 100)
	errc := make(chan error, 1)
	go func() {
		defer close(scores)
		errc <- detectors.Stream(ctx, d, samples, scores)
	}()

	var outliers, total int
	for s := range scores {
		result := gio.Result{
			Index:     total,
			Timestamp: time.Now().Unix(),
			Score:     s.Value,
			IsAnomaly: s.IsAnomaly,
			Features:  s.Features,
			Metadata:  s.Metadata,
		}
		if err := w.Write(result); err != nil {
			cancel()
			for range scores {
			}
			return outliers, total, err
		}
		if s.IsAnomaly {
			outliers++
		}
		total++
	}

	return outliers, total, <-errc
}
