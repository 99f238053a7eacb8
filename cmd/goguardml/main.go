// Command goguardml trains anomaly detectors on CSV or PCAP data and reports
// outliers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hed1ad/goguardml/internal/config"
	"github.com/hed1ad/goguardml/internal/logger"
)

var (
	cfgFile  string
	logLevel string
	logMode  string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "goguardml",
	Short: "Unsupervised anomaly detection for tabular and network data",
	Long: `goguardml trains a one class SVM or an isolation forest on a CSV file or
packet capture, then labels samples that fall outside the learned boundary.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if cmd.Flags().Changed("log-mode") {
			cfg.Log.Mode = logMode
		}

		_, err = logger.Init(os.Stderr, cfg.Log.Level, cfg.Log.Mode)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logMode, "log-mode", logger.ModePretty, "log output (pretty, json)")

	rootCmd.AddCommand(newDetectCmd(), newBenchCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
