package cmd

import (
	"io"

	"rfm-segments/pkg/report"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSegmentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segment",
		Short: "Score every customer and write the segment table",
		Long: `Runs the quality gate, aggregates delivered orders per customer, annotates
region and holiday context, computes RFM scores and assigns a segment.

The table goes to stdout (or --out) as CSV or JSON; a per-segment summary is
printed alongside. Nothing is written when the run fails.`,
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
			rows, err := eng.Run(cmd.Context(), runCfg)
			if err != nil {
				return err
			}

			err = writeOutput(a.cfg.Output.Path, cmd.OutOrStdout(), func(w io.Writer) error {
				return report.Write(w, a.cfg.Output.Format, rows)
			})
			if err != nil {
				return err
			}
			if noSummary, _ := cmd.Flags().GetBool("no-summary"); noSummary {
				return nil
			}
			// keep stdout clean for the table unless it went to a file
			summary := cmd.ErrOrStderr()
			if a.cfg.Output.Path != "" {
				summary = cmd.OutOrStdout()
			}
			return report.PrintSummary(summary, rows, a.locale())
		},
	}

	cmd.Flags().StringP("out", "o", "", "write the table to this file instead of stdout")
	cmd.Flags().StringP("format", "f", "csv", "table format: csv or json")
	cmd.Flags().Bool("no-summary", false, "do not print the segment summary")
	_ = viper.BindPFlag("output.path", cmd.Flags().Lookup("out"))
	_ = viper.BindPFlag("output.format", cmd.Flags().Lookup("format"))
	return cmd
}
