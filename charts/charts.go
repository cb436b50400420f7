// Package charts renders the dashboard's trend charts and call map with
// gonum/plot.
package charts

import (
	"fmt"
	"image/color"
	"math"
	"slices"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"calls_dashboard/aggregate"
	"calls_dashboard/dashboard"
	"calls_dashboard/formatting"
)

// Name identifies one chart.
type Name string

const (
	TopCities Name = "top-cities"
	Years     Name = "years"
	Reasons   Name = "reasons"
	HourBox   Name = "hour-box"
	Days      Name = "days"
	Hours     Name = "hours"
	Map       Name = "map"
)

// Names lists every chart in report order.
var Names = []Name{TopCities, Years, Reasons, HourBox, Days, Hours, Map}

// ParseName validates a chart name.
func ParseName(s string) (Name, error) {
	n := Name(s)
	if !slices.Contains(Names, n) {
		return "", fmt.Errorf("unknown chart %q", s)
	}
	return n, nil
}

var (
	chartBlue   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	chartOrange = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	chartRed    = color.RGBA{R: 214, G: 39, B: 40, A: 160}
)

// Plot builds the named chart from a computed view. An empty view yields a
// titled plot with no data drawn.
func Plot(name Name, v dashboard.View) (*plot.Plot, error) {
	p := plot.New()
	p.BackgroundColor = color.White
	p.Title.TextStyle.Font.Size = vg.Points(12)

	var err error
	switch name {
	case TopCities:
		p.Title.Text = "Top Cities by Call Volume"
		labels, values := stringBuckets(v.Trends.TopCities)
		err = barChart(p, labels, values, chartBlue, true)
	case Years:
		p.Title.Text = "Number of Calls by Year"
		labels := make([]string, len(v.Trends.Years))
		values := make(plotter.Values, len(v.Trends.Years))
		for i, b := range v.Trends.Years {
			labels[i] = fmt.Sprint(b.Key)
			values[i] = float64(b.Count)
		}
		err = barChart(p, labels, values, chartOrange, false)
	case Reasons:
		p.Title.Text = "Calls by Reason"
		labels := make([]string, len(v.Trends.Reasons))
		values := make(plotter.Values, len(v.Trends.Reasons))
		for i, s := range v.Trends.Reasons {
			labels[i] = fmt.Sprintf("%s (%s)", formatting.Truncate(s.Key, 24), formatting.FormatPercent(s.Percent/100))
			values[i] = float64(s.Count)
		}
		err = barChart(p, labels, values, chartBlue, true)
	case HourBox:
		p.Title.Text = "Call Distribution by Hour"
		err = hourBox(p, v.Trends.HourSample)
	case Days:
		p.Title.Text = "Calls by Day of the Week"
		xys := make(plotter.XYs, len(v.Trends.Days))
		for i, d := range v.Trends.Days {
			xys[i] = plotter.XY{X: float64(d.Day), Y: float64(d.Count)}
		}
		err = linePoints(p, xys)
		p.X.Tick.Marker = dayTicks{}
		p.X.Min, p.X.Max = -0.5, 6.5
	case Hours:
		p.Title.Text = "Calls by Hour"
		xys := make(plotter.XYs, len(v.Trends.Hours))
		for i, h := range v.Trends.Hours {
			xys[i] = plotter.XY{X: float64(h.Key), Y: float64(h.Count)}
		}
		err = linePoints(p, xys)
		p.X.Label.Text = "Hour"
		p.X.Min, p.X.Max = 0, 23
	case Map:
		p.Title.Text = "Call Locations"
		err = mapScatter(p, v)
	default:
		return nil, fmt.Errorf("unknown chart %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if v.NoData {
		p.Title.Text += " (no data)"
	}
	return p, nil
}

func stringBuckets(buckets []aggregate.Bucket[string]) ([]string, plotter.Values) {
	labels := make([]string, len(buckets))
	values := make(plotter.Values, len(buckets))
	for i, b := range buckets {
		labels[i] = formatting.Truncate(b.Key, 24)
		values[i] = float64(b.Count)
	}
	return labels, values
}

// barChart adds one bar per value. Horizontal charts list the largest value
// at the top.
func barChart(p *plot.Plot, labels []string, values plotter.Values, clr color.Color, horizontal bool) error {
	if len(values) == 0 {
		return nil
	}
	if horizontal {
		labels = slices.Clone(labels)
		values = slices.Clone(values)
		slices.Reverse(labels)
		slices.Reverse(values)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return err
	}
	bars.Color = clr
	bars.LineStyle.Width = 0
	bars.Horizontal = horizontal
	p.Add(bars)
	if horizontal {
		p.NominalY(labels...)
		p.X.Tick.Marker = compactTicks{}
		p.X.Min = 0
		p.Add(plotter.NewGrid())
	} else {
		p.NominalX(labels...)
		p.Y.Tick.Marker = compactTicks{}
		p.Y.Min = 0
	}
	return nil
}

func hourBox(p *plot.Plot, hours []int) error {
	p.Y.Label.Text = "Hour"
	p.Y.Min, p.Y.Max = 0, 23
	if len(hours) == 0 {
		return nil
	}
	values := make(plotter.Values, len(hours))
	for i, h := range hours {
		values[i] = float64(h)
	}
	box, err := plotter.NewBoxPlot(vg.Points(60), 0, values)
	if err != nil {
		return err
	}
	box.FillColor = chartBlue
	box.GlyphStyle.Color = chartRed
	p.Add(box)
	p.NominalX(fmt.Sprintf("n=%d", len(hours)))
	return nil
}

func linePoints(p *plot.Plot, xys plotter.XYs) error {
	p.Y.Tick.Marker = compactTicks{}
	p.Y.Min = 0
	if len(xys) == 0 {
		return nil
	}
	line, scatter, err := plotter.NewLinePoints(xys)
	if err != nil {
		return err
	}
	line.Color = chartBlue
	line.Width = vg.Points(2)
	scatter.Color = chartBlue
	scatter.Radius = vg.Points(3)
	scatter.Shape = draw.CircleGlyph{}
	p.Add(line, scatter, plotter.NewGrid())
	return nil
}

func mapScatter(p *plot.Plot, v dashboard.View) error {
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"
	if len(v.Map) == 0 {
		return nil
	}
	xys := make(plotter.XYs, len(v.Map))
	for i, pt := range v.Map {
		xys[i] = plotter.XY{X: pt.Longitude, Y: pt.Latitude}
	}
	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	scatter.Color = chartRed
	scatter.Radius = vg.Points(1.5)
	scatter.Shape = draw.CircleGlyph{}
	p.Add(scatter, plotter.NewGrid())
	return nil
}

type compactTicks struct{}

func (compactTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = formatting.FormatCompact(ticks[i].Value)
		}
	}
	return ticks
}

type dayTicks struct{}

func (dayTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for d := int(math.Ceil(min)); float64(d) <= max; d++ {
		if d < 0 || d > 6 {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: float64(d), Label: formatting.DayName(d)})
	}
	return ticks
}
