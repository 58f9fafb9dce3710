// Package config loads the application settings from flags, environment, .env and an
// optional YAML file, and validates them.
package config

import (
	"fmt"
	"strings"
	"time"

	"rfm-segments/pkg/logger"
	"rfm-segments/pkg/models"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable: RFM_DSN, RFM_LOG_LEVEL, ...
const EnvPrefix = "RFM"

// Config is the full application configuration.
type Config struct {
	DSN                   string        `mapstructure:"dsn"`
	ReferenceDate         string        `mapstructure:"reference_date"`
	NullRateWarnThreshold float64       `mapstructure:"null_rate_warn_threshold" validate:"gt=0,lte=100"`
	HolidayWindowDays     int           `mapstructure:"holiday_window_days" validate:"gte=1,lte=183"`
	HolidayRules          bool          `mapstructure:"holiday_rules"`
	HolidayRecencyRelief  bool          `mapstructure:"holiday_recency_relief"`
	ScoreBucketCount      int           `mapstructure:"score_bucket_count" validate:"gte=2,lte=100"`
	Workers               int           `mapstructure:"workers" validate:"gte=1,lte=256"`
	QueryTimeout          time.Duration `mapstructure:"query_timeout" validate:"gt=0"`
	RetryBackoff          time.Duration `mapstructure:"retry_backoff" validate:"gt=0"`
	RegionsFile           string        `mapstructure:"regions_file"`
	HolidaysFile          string        `mapstructure:"holidays_file"`
	Verbose               bool          `mapstructure:"verbose"`

	Output OutputConfig  `mapstructure:"output"`
	Log    logger.Config `mapstructure:"log"`
}

// OutputConfig controls where and how the segment table is written.
type OutputConfig struct {
	Format string `mapstructure:"format" validate:"oneof=csv json"`
	Path   string `mapstructure:"path"` // empty writes to stdout
	Locale string `mapstructure:"locale" validate:"required"`
}

var defaults = map[string]any{
	"dsn":                      "",
	"reference_date":           "",
	"regions_file":             "",
	"holidays_file":            "",
	"verbose":                  false,
	"output.path":              "",
	"null_rate_warn_threshold": models.DefaultNullRateWarnThreshold,
	"holiday_window_days":      models.DefaultHolidayWindowDays,
	"holiday_rules":            true,
	"holiday_recency_relief":   false,
	"score_bucket_count":       models.DefaultScoreBucketCount,
	"workers":                  1,
	"query_timeout":            models.DefaultQueryTimeout,
	"retry_backoff":            models.DefaultRetryBackoff,
	"output.format":            "csv",
	"output.locale":            "en",
	"log.level":                logger.DefaultConfig().Level,
	"log.format":               logger.DefaultConfig().Format,
	"log.output":               logger.DefaultConfig().Output,
	"log.file":                 logger.DefaultConfig().File,
	"log.max_size":             logger.DefaultConfig().MaxSize,
	"log.max_backups":          logger.DefaultConfig().MaxBackups,
	"log.max_age":              logger.DefaultConfig().MaxAge,
	"log.compress":             logger.DefaultConfig().Compress,
}

var validate = validator.New()

// Setup registers defaults and the environment binding on v.
func Setup(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	Setup(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.Reference(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var referenceLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// Reference parses reference_date. The zero time means "latest delivered purchase".
func (c Config) Reference() (time.Time, error) {
	if strings.TrimSpace(c.ReferenceDate) == "" {
		return time.Time{}, nil
	}
	for _, layout := range referenceLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(c.ReferenceDate)); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid config: reference_date %q, expected YYYY-MM-DD", c.ReferenceDate)
}

// Engine returns the parameters of a scoring run.
func (c Config) Engine() (models.Config, error) {
	ref, err := c.Reference()
	if err != nil {
		return models.Config{}, err
	}
	return models.Config{
		ReferenceDate:         ref,
		NullRateWarnThreshold: c.NullRateWarnThreshold,
		HolidayWindowDays:     c.HolidayWindowDays,
		ScoreBucketCount:      c.ScoreBucketCount,
		Workers:               c.Workers,
		HolidayRecencyRelief:  c.HolidayRecencyRelief,
		QueryTimeout:          c.QueryTimeout,
		RetryBackoff:          c.RetryBackoff,
		Verbose:               c.Verbose,
	}, nil
}
