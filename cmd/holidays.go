package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"rfm-segments/pkg/calendar"

	"github.com/spf13/cobra"
)

func newHolidaysCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "Print the holiday reference dates used for the given years",
		Example: `  rfm-segments holidays --years 2017,2018,2019
  rfm-segments holidays --holidays calendar.yaml --holiday-rules=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			cal, err := a.holidays()
			if err != nil {
				return err
			}
			years, _ := cmd.Flags().GetIntSlice("years")
			return printHolidays(cmd.OutOrStdout(), cal, years)
		},
	}
	cmd.Flags().IntSlice("years", []int{2017, 2018}, "years to resolve")
	return cmd
}

func printHolidays(w io.Writer, cal *calendar.Calendar, years []int) error {
	resolved := cal.Resolve(years)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "HOLIDAY\tWINDOW\tDATES\n")
	for _, name := range cal.Names() {
		dates := make([]string, 0, len(resolved[name]))
		for _, d := range resolved[name] {
			dates = append(dates, d.Format("2006-01-02"))
		}
		if len(dates) == 0 {
			dates = append(dates, "-")
		}
		fmt.Fprintf(tw, "%s\t±%dd\t%s\n", name, cal.WindowDays(), strings.Join(dates, ", "))
	}
	return tw.Flush()
}
