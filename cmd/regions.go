package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"rfm-segments/pkg/calculator"
	"rfm-segments/pkg/database"
	"rfm-segments/pkg/models"
	"rfm-segments/pkg/region"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRegionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regions",
		Short: "Manage the state to region reference table",
	}
	cmd.AddCommand(newRegionsBuildCommand(), newRegionsShowCommand())
	return cmd
}

func newRegionsBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Rebuild the region table from geolocation centroids",
		Long: `Averages latitude and longitude of every state in the geolocation table,
classifies each centroid with the latitude/longitude bucket rules and writes the
resulting table as YAML, ready to be passed with --regions.`,
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

			cfg, err := a.cfg.Engine()
			if err != nil {
				return configFailure(err)
			}
			store := database.NewStore(db, dialect, a.log)
			eng := calculator.New(store, database.NewChecker(db, dialect), calculator.WithLogger(a.log))
			centroids, err := eng.Centroids(cmd.Context(), cfg, store)
			if err != nil {
				return err
			}
			if len(centroids) == 0 {
				return &models.Failure{Kind: models.KindData, Op: "regions build", Table: models.TableGeolocation,
					Err: fmt.Errorf("no geolocation rows")}
			}

			table := region.Build(centroids)
			for _, c := range centroids {
				a.log.WithFields(logrus.Fields{
					"state":  c.State,
					"lat":    c.Lat,
					"lng":    c.Lng,
					"region": table.Lookup(c.State),
				}).Debug("state classified")
			}
			a.log.WithField("states", table.Len()).Info("region table built")

			out, _ := cmd.Flags().GetString("out")
			return writeOutput(out, cmd.OutOrStdout(), table.Save)
		},
	}
	cmd.Flags().StringP("out", "o", "", "write the table to this file instead of stdout")
	return cmd
}

func newRegionsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the region table in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			table, err := region.Load(a.cfg.RegionsFile)
			if err != nil {
				return configFailure(err)
			}
			return printRegions(cmd.OutOrStdout(), table)
		},
	}
}

func printRegions(w io.Writer, table *region.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATE\tREGION")
	for _, s := range table.States() {
		fmt.Fprintf(tw, "%s\t%s\n", s, table.Lookup(s))
	}
	return tw.Flush()
}
