package cmd

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"rfm-segments/pkg/calculator"
	"rfm-segments/pkg/calendar"
	"rfm-segments/pkg/config"
	"rfm-segments/pkg/database"
	"rfm-segments/pkg/logger"
	"rfm-segments/pkg/models"
	"rfm-segments/pkg/region"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// app carries what every command needs once the configuration is loaded.
type app struct {
	cfg config.Config
	log *logrus.Logger
}

func configFailure(err error) error {
	return &models.Failure{Kind: models.KindConfig, Op: "config", Err: err}
}

func setup() (*app, error) {
	if configErr != nil {
		return nil, configFailure(configErr)
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, configFailure(err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, configFailure(err)
	}
	if f := viper.ConfigFileUsed(); f != "" {
		log.WithField("file", f).Debug("config loaded")
	}
	return &app{cfg: cfg, log: log}, nil
}

func (a *app) open() (*sql.DB, database.Dialect, error) {
	if a.cfg.DSN == "" {
		return nil, "", configFailure(fmt.Errorf("dsn is required (--dsn or RFM_DSN)"))
	}
	db, dialect, err := database.Open(a.cfg.DSN)
	if err != nil {
		return nil, "", configFailure(err)
	}
	a.log.WithFields(logrus.Fields{"dsn": database.Redact(a.cfg.DSN), "dialect": dialect}).Info("database opened")
	return db, dialect, nil
}

func (a *app) holidays() (*calendar.Calendar, error) {
	cal, err := calendar.Load(a.cfg.HolidaysFile,
		calendar.WithWindowDays(a.cfg.HolidayWindowDays),
		calendar.WithRules(a.cfg.HolidayRules),
	)
	if err != nil {
		return nil, configFailure(err)
	}
	return cal, nil
}

func (a *app) engine(db *sql.DB, dialect database.Dialect) (*calculator.Engine, error) {
	regions, err := region.Load(a.cfg.RegionsFile)
	if err != nil {
		return nil, configFailure(err)
	}
	cal, err := a.holidays()
	if err != nil {
		return nil, err
	}
	return calculator.New(
		database.NewStore(db, dialect, a.log),
		database.NewChecker(db, dialect),
		calculator.WithLogger(a.log),
		calculator.WithRegions(regions),
		calculator.WithHolidays(cal),
	), nil
}

func (a *app) locale() language.Tag {
	tag, err := language.Parse(a.cfg.Output.Locale)
	if err != nil {
		a.log.WithField("locale", a.cfg.Output.Locale).Warn("unknown locale, using en")
		return language.English
	}
	return tag
}

// writeOutput renders through a temporary file renamed into place, so a failed write
// never leaves a truncated table behind. An empty path writes to stdout.
func writeOutput(path string, stdout io.Writer, render func(io.Writer) error) error {
	if path == "" {
		return render(stdout)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := render(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
