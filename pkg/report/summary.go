package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"rfm-segments/pkg/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// SegmentStat is one line of the segment summary.
type SegmentStat struct {
	Segment   models.Segment
	Customers int
	Share     float64 // percent of the cohort
	Revenue   float64
}

// Summarize counts customers and revenue per segment. Every segment is listed, in rule
// priority order, even when empty.
func Summarize(rows []models.CustomerSegment) []SegmentStat {
	idx := make(map[models.Segment]int, len(models.Segments))
	out := make([]SegmentStat, len(models.Segments))
	for i, s := range models.Segments {
		idx[s] = i
		out[i].Segment = s
	}
	for _, r := range rows {
		i, ok := idx[r.Segment]
		if !ok {
			continue
		}
		out[i].Customers++
		out[i].Revenue += r.Monetary
	}
	if len(rows) > 0 {
		for i := range out {
			out[i].Share = float64(out[i].Customers) * 100 / float64(len(rows))
		}
	}
	return out
}

// PrintSummary writes the segment summary with numbers formatted for tag.
func PrintSummary(w io.Writer, rows []models.CustomerSegment, tag language.Tag) error {
	p := message.NewPrinter(tag)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEGMENT\tCUSTOMERS\tSHARE\tREVENUE")
	var total float64
	for _, s := range Summarize(rows) {
		total += s.Revenue
		fmt.Fprintln(tw, p.Sprintf("%s\t%d\t%.1f%%\t%.2f", s.Segment, s.Customers, s.Share, s.Revenue))
	}
	fmt.Fprintln(tw, p.Sprintf("Total\t%d\t\t%.2f", len(rows), total))
	return tw.Flush()
}

// PrintQuality writes one block per table: row count, duplicates, date range and the null
// rate of every column, flagging rates above threshold.
func PrintQuality(w io.Writer, reports []models.QualityReport, threshold float64, tag language.Tag) error {
	p := message.NewPrinter(tag)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range reports {
		fmt.Fprintln(tw, p.Sprintf("%s\trows=%d\tduplicates=%d", r.Table, r.Rows, r.DuplicateCount))
		if r.DateRange != nil {
			fmt.Fprintf(tw, "\tdates\t%s .. %s\n",
				r.DateRange.Min.UTC().Format("2006-01-02 15:04:05"), r.DateRange.Max.UTC().Format("2006-01-02 15:04:05"))
		}
		cols := make([]string, 0, len(r.NullRate))
		for c := range r.NullRate {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		for _, c := range cols {
			mark := ""
			if r.NullRate[c] > threshold {
				mark = "WARN"
			}
			fmt.Fprintln(tw, strings.TrimRight(p.Sprintf("\t%s\t%.2f%%\t%s", c, r.NullRate[c], mark), "\t"))
		}
	}
	return tw.Flush()
}
