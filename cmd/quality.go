package cmd

import (
	"rfm-segments/pkg/report"

	"github.com/spf13/cobra"
)

func newQualityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "quality",
		Short: "Check null rates, duplicate keys and date ranges of the source tables",
		Long: `Runs the data-quality gate used before every segmentation and prints the
report of each table. Exits with status 3 when duplicate customer or order
keys would abort a segmentation run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			db, dialect, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			eng, err := a.engine(db, dialect)
			if err != nil {
				return err
			}
			runCfg, err := a.cfg.Engine()
			if err != nil {
				return configFailure(err)
			}
			reports, gateErr := eng.Quality(cmd.Context(), runCfg)
			if len(reports) > 0 {
				if err := report.PrintQuality(cmd.OutOrStdout(), reports, a.cfg.NullRateWarnThreshold, a.locale()); err != nil {
					return err
				}
			}
			return gateErr
		},
	}
}
