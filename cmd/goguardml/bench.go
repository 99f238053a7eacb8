package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hed1ad/goguardml/pkg/io/report"
	"github.com/hed1ad/goguardml/pkg/metrics"
	"github.com/hed1ad/goguardml/pkg/perf"
)

type benchOptions struct {
	detect detectOptions
	budget time.Duration
}

func newBenchCmd() *cobra.Command {
	o := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench --train FILE [INPUT]",
		Short: "Check single-sample prediction latency against a budget",
		Long: `Trains the configured detector, then predicts every sample of INPUT one at a
time and compares the mean latency with bench.budget. Exits non-zero when the
budget is exceeded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := o.detect.train
			if len(args) == 1 {
				input = args[0]
			}
			return o.run(cmd.Context(), input)
		},
	}

	o.detect.input.register(cmd.Flags())
	cmd.Flags().StringVar(&o.detect.train, "train", "", "training data file")
	cmd.Flags().StringVarP(&o.detect.output, "output", "o", "", "write the report to this file instead of stdout")
	cmd.Flags().StringVar(&o.detect.format, "report-format", "", "report format (json, yaml); defaults to the config value")
	cmd.Flags().DurationVar(&o.budget, "budget", 0, "latency budget per sample; defaults to the config value")
	cmd.Flags().StringVar(&o.detect.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	_ = cmd.MarkFlagRequired("train")

	return cmd
}

func (o *benchOptions) run(ctx context.Context, input string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	detector, err := buildDetector(cfg, log.Logger, m)
	if err != nil {
		return err
	}

	train, err := o.detect.read(o.detect.train)
	if err != nil {
		return err
	}
	if err := detector.Train(train); err != nil {
		return err
	}

	// Training may have transformed train in place, so the input is read again.
	ds, err := o.detect.read(input)
	if err != nil {
		return err
	}

	budget := cfg.Bench.Budget
	if o.budget > 0 {
		budget = o.budget
	}
	h, err := perf.New(budget,
		perf.WithPrecision(cfg.Bench.Precision),
		perf.WithLogger(log.Logger),
		perf.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	rep, err := h.Run(ctx, detector, ds)
	if err != nil {
		return err
	}

	format := o.detect.format
	if format == "" {
		format = cfg.Report.Format
	}
	w, err := openOutput(o.detect.output, format)
	if err != nil {
		return err
	}
	if err := encodeReport(w, rep); err != nil {
		return err
	}

	if o.detect.metricsFile != "" {
		if err := dumpMetrics(reg, o.detect.metricsFile); err != nil {
			return err
		}
	}

	if !rep.Pass {
		return fmt.Errorf("mean prediction latency %s exceeds budget %s", rep.Average, budget)
	}
	return nil
}

func encodeReport(w *report.Writer, rep perf.Report) (err error) {
	defer closeOutput(w, &err)
	return w.Encode(rep)
}
