package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"calls_dashboard/aggregate"
	"calls_dashboard/dashboard"
	"calls_dashboard/filter"
	"calls_dashboard/formatting"
)

// reportJSON is the JSON output structure for the report command.
type reportJSON struct {
	Dataset   string                     `json:"dataset"`
	Rows      int                        `json:"rows"`
	Selection filter.Selection           `json:"selection"`
	NoData    bool                       `json:"no_data"`
	KPIs      dashboard.KPIs             `json:"kpis"`
	Trends    reportTrends               `json:"trends"`
	Stats     dashboard.Stats            `json:"stats"`
	By        aggregate.Column           `json:"by,omitempty"`
	Counts    []aggregate.Bucket[string] `json:"counts,omitempty"`
}

type reportTrends struct {
	TopCities []aggregate.Bucket[string] `json:"top_cities"`
	Years     []aggregate.Bucket[int]    `json:"years"`
	Reasons   []aggregate.Share[string]  `json:"reasons"`
	Hours     []aggregate.Bucket[int]    `json:"hours"`
	Days      []dashboard.DayCount       `json:"days"`
	HourBox   aggregate.BoxSummary       `json:"hour_box"`
}

// Execute implements the go-flags Commander interface for ReportCommand.
func (c *ReportCommand) Execute(args []string) error {
	var by aggregate.Column
	if c.By != "" {
		col, err := aggregate.ParseColumn(c.By)
		if err != nil {
			return err
		}
		by = col
	}

	l, err := buildView(context.Background(), c.globals, c.FilterFlags, c.Top)
	if err != nil {
		return err
	}

	var counts []aggregate.Bucket[string]
	if by != "" {
		counts, err = aggregate.ColumnCounts(filter.Apply(l.ds, l.sel), by)
		if err != nil {
			return err
		}
	}

	if wantJSON(c.globals) {
		t := l.view.Trends
		return writeJSON(c.out, reportJSON{
			Dataset:   l.ds.Source(),
			Rows:      l.ds.Len(),
			Selection: l.sel,
			NoData:    l.view.NoData,
			KPIs:      l.view.KPIs,
			Trends: reportTrends{
				TopCities: t.TopCities,
				Years:     t.Years,
				Reasons:   t.Reasons,
				Hours:     t.Hours,
				Days:      t.Days,
				HourBox:   t.HourBox,
			},
			Stats:  l.view.Stats,
			By:     by,
			Counts: counts,
		})
	}
	return c.printHuman(l, by, counts)
}

func (c *ReportCommand) printHuman(l *loaded, by aggregate.Column, counts []aggregate.Bucket[string]) error {
	v := l.view
	w := c.out
	fmt.Fprintln(w, "911 Emergency Calls Report")
	fmt.Fprintln(w, "==========================")
	fmt.Fprintf(w, "Dataset:   %s (%s rows)\n", l.ds.Source(), formatting.FormatCount(l.ds.Len()))
	fmt.Fprintf(w, "Reasons:   %s\n", strings.Join(l.sel.Reasons, ", "))
	fmt.Fprintf(w, "Cities:    %d selected\n", len(l.sel.Cities))
	fmt.Fprintf(w, "Years:     %s\n", joinInts(l.sel.Years))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total Calls:            %s\n", v.KPIs.TotalCallsLabel)
	fmt.Fprintf(w, "Most Common Emergency:  %s\n", statText(v.KPIs.MostCommonEmergency))
	fmt.Fprintf(w, "City with Most Calls:   %s\n", statText(v.KPIs.TopCity))
	fmt.Fprintf(w, "Peak Call Hour:         %s\n", statText(v.KPIs.PeakHour))

	if v.NoData {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "No data for the current selection.")
		return nil
	}

	section(w, "Top Cities")
	tw := table(w)
	for _, b := range v.Trends.TopCities {
		fmt.Fprintf(tw, "  %s\t%s\n", b.Key, formatting.FormatCount(b.Count))
	}
	tw.Flush()

	section(w, "Calls by Year")
	tw = table(w)
	for _, b := range v.Trends.Years {
		fmt.Fprintf(tw, "  %d\t%s\n", b.Key, formatting.FormatCount(b.Count))
	}
	tw.Flush()

	section(w, "Calls by Reason")
	tw = table(w)
	for _, s := range v.Trends.Reasons {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", s.Key, formatting.FormatCount(s.Count), formatting.FormatPercent(s.Percent/100))
	}
	tw.Flush()

	section(w, "Calls by Hour")
	tw = table(w)
	for _, b := range v.Trends.Hours {
		fmt.Fprintf(tw, "  %s\t%s\n", formatting.FormatPeakHour(b.Key), formatting.FormatCount(b.Count))
	}
	tw.Flush()

	section(w, "Calls by Day of Week")
	tw = table(w)
	for _, d := range v.Trends.Days {
		fmt.Fprintf(tw, "  %s\t%s\n", d.Name, formatting.FormatCount(d.Count))
	}
	tw.Flush()

	section(w, "Numeric Summary")
	tw = table(w)
	fmt.Fprintln(tw, "  column\tcount\tmean\tstd\tmin\t25%\t50%\t75%\tmax")
	for _, s := range v.Stats.Numeric {
		fmt.Fprintf(tw, "  %s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", s.Column, s.Count,
			num(s.Mean), num(s.Std), num(s.Min), num(s.Q25), num(s.Q50), num(s.Q75), num(s.Max))
	}
	tw.Flush()

	section(w, "Categorical Summary")
	tw = table(w)
	fmt.Fprintln(tw, "  column\tcount\tunique\ttop\tfreq")
	for _, s := range v.Stats.Categorical {
		topVal := "-"
		if s.Top != nil {
			topVal = formatting.Truncate(*s.Top, 40)
		}
		fmt.Fprintf(tw, "  %s\t%d\t%d\t%s\t%d\n", s.Column, s.Count, s.Unique, topVal, s.Freq)
	}
	tw.Flush()

	if by != "" {
		section(w, "Counts by "+string(by))
		tw = table(w)
		for _, b := range counts {
			fmt.Fprintf(tw, "  %s\t%s\n", b.Key, formatting.FormatCount(b.Count))
		}
		tw.Flush()
	}
	return nil
}

func section(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, title)
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func statText(s dashboard.Stat) string {
	if s.NoData {
		return "No data"
	}
	return fmt.Sprintf("%s (%s)", s.Value, formatting.FormatCount(s.Count))
}

func num(v *float64) string {
	if v == nil {
		return "NaN"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
