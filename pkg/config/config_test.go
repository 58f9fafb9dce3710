package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"rfm-segments/pkg/models"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 5.0, cfg.NullRateWarnThreshold)
	assert.Equal(t, 7, cfg.HolidayWindowDays)
	assert.Equal(t, 5, cfg.ScoreBucketCount)
	assert.Equal(t, 1, cfg.Workers)
	assert.True(t, cfg.HolidayRules)
	assert.False(t, cfg.HolidayRecencyRelief)
	assert.Equal(t, 60*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.Equal(t, "info", cfg.Log.Level)

	eng, err := cfg.Engine()
	require.NoError(t, err)
	assert.True(t, eng.ReferenceDate.IsZero())
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rfm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dsn: sqlite://olist.db
reference_date: "2018-09-01"
holiday_window_days: 10
score_bucket_count: 4
workers: 8
query_timeout: 5s
output:
  format: JSON
log:
  level: debug
  format: json
`), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "sqlite://olist.db", cfg.DSN)
	assert.Equal(t, 10, cfg.HolidayWindowDays)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "debug", cfg.Log.Level)

	eng, err := cfg.Engine()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2018, 9, 1, 0, 0, 0, 0, time.UTC), eng.ReferenceDate)
	assert.Equal(t, 4, eng.ScoreBucketCount)
	assert.Equal(t, 8, eng.Workers)
	assert.Equal(t, 5*time.Second, eng.QueryTimeout)
	assert.Equal(t, models.DefaultRetryBackoff, eng.RetryBackoff)
}

func TestLoad_SmallNullRateThresholdKept(t *testing.T) {
	v := viper.New()
	v.Set("null_rate_warn_threshold", 0.01)
	cfg, err := Load(v)
	require.NoError(t, err)

	eng, err := cfg.Engine()
	require.NoError(t, err)
	assert.Equal(t, 0.01, eng.WithDefaults().NullRateWarnThreshold)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("RFM_DSN", "postgres://u:p@localhost/olist")
	t.Setenv("RFM_WORKERS", "3")
	t.Setenv("RFM_LOG_LEVEL", "warn")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost/olist", cfg.DSN)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  any
	}{
		{"one bucket", "score_bucket_count", 1},
		{"null rate above 100", "null_rate_warn_threshold", 120},
		{"null rate zero", "null_rate_warn_threshold", 0},
		{"no workers", "workers", 0},
		{"zero timeout", "query_timeout", "0s"},
		{"unknown format", "output.format", "xml"},
		{"unknown log level", "log.level", "loud"},
		{"foreign date layout", "reference_date", "09/01/2018"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tc.key, tc.val)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}
