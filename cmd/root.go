package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"rfm-segments/pkg/config"
	"rfm-segments/pkg/models"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	// set when an explicitly requested config file cannot be read
	configErr error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rfm-segments",
	Short: "RFM customer segmentation over an Olist-style order store",
	Long: `rfm-segments validates the order tables of an e-commerce store, scores every
customer on recency, frequency and monetary value with regional and holiday
context, and assigns each customer to a named segment.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command until it returns or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// Exit codes by failure kind.
const (
	ExitOK     = 0
	ExitError  = 1
	ExitConfig = 2
	ExitData   = 3
	ExitInfra  = 4
)

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch models.KindOf(err) {
	case models.KindConfig:
		return ExitConfig
	case models.KindData:
		return ExitData
	case models.KindInfra:
		return ExitInfra
	}
	if errors.Is(err, context.Canceled) {
		return ExitInfra
	}
	return ExitError
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./rfm-segments.yaml or $HOME/rfm-segments.yaml)")
	pf.String("dsn", "", "database DSN: mariadb://, mysql://, postgres:// or sqlite:// (or set RFM_DSN)")
	pf.String("reference-date", "", "scoring date YYYY-MM-DD (default: latest delivered purchase)")
	pf.Float64("null-rate-warn", models.DefaultNullRateWarnThreshold, "null rate (percent, > 0) above which a column is reported")
	pf.Int("holiday-window", models.DefaultHolidayWindowDays, "days before and after a holiday flagged as holiday purchases")
	pf.Bool("holiday-rules", true, "derive holiday dates for years missing from the holiday table")
	pf.Bool("holiday-relief", false, "do not score holiday purchases below the middle recency bucket")
	pf.Int("buckets", models.DefaultScoreBucketCount, "quantile buckets per RFM dimension")
	pf.Int("workers", 1, "goroutines used to aggregate customers")
	pf.Duration("query-timeout", models.DefaultQueryTimeout, "timeout of each query attempt")
	pf.Duration("retry-backoff", models.DefaultRetryBackoff, "pause before retrying a transient failure")
	pf.String("regions", "", "state to region reference table (YAML)")
	pf.String("holidays", "", "holiday calendar (YAML)")
	pf.BoolP("verbose", "v", false, "show pipeline progress")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	pf.String("log-output", "", "log output: stdout, stderr, file or both")

	bind := map[string]string{
		"dsn":                      "dsn",
		"reference_date":           "reference-date",
		"null_rate_warn_threshold": "null-rate-warn",
		"holiday_window_days":      "holiday-window",
		"holiday_rules":            "holiday-rules",
		"holiday_recency_relief":   "holiday-relief",
		"score_bucket_count":       "buckets",
		"workers":                  "workers",
		"query_timeout":            "query-timeout",
		"retry_backoff":            "retry-backoff",
		"regions_file":             "regions",
		"holidays_file":            "holidays",
		"verbose":                  "verbose",
		"log.level":                "log-level",
		"log.format":               "log-format",
		"log.output":               "log-output",
	}
	for key, flag := range bind {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}

	rootCmd.AddCommand(newSegmentCommand())
	rootCmd.AddCommand(newQualityCommand())
	rootCmd.AddCommand(newRegionsCommand())
	rootCmd.AddCommand(newHolidaysCommand())
}

// initConfig reads in the .env file, the config file and ENV variables if set.
func initConfig() {
	// a missing .env is not an error
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("rfm-segments")
	}

	config.Setup(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			configErr = err
		}
	}
}
