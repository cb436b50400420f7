package charts

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"

	"calls_dashboard/dashboard"
	"calls_dashboard/formatting"
)

const (
	pageWidth  = 8.5 * vg.Inch
	pageHeight = 11 * vg.Inch
	pdfMargin  = 0.75 * vg.Inch
	pngDPI     = 96
)

// Size is a chart's dimensions in inches.
type Size struct {
	WidthIn  float64
	HeightIn float64
}

// DefaultSize is used when a Size field is not positive.
var DefaultSize = Size{WidthIn: 8, HeightIn: 4}

func (s Size) lengths() (vg.Length, vg.Length) {
	w, h := s.WidthIn, s.HeightIn
	if w <= 0 {
		w = DefaultSize.WidthIn
	}
	if h <= 0 {
		h = DefaultSize.HeightIn
	}
	return vg.Length(w) * vg.Inch, vg.Length(h) * vg.Inch
}

// WritePNG renders the named chart as a PNG image.
func WritePNG(w io.Writer, name Name, v dashboard.View, size Size) error {
	p, err := Plot(name, v)
	if err != nil {
		return err
	}
	width, height := size.lengths()
	c := vgimg.PngCanvas{Canvas: vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(pngDPI))}
	p.Draw(draw.New(c))
	if _, err := c.WriteTo(w); err != nil {
		return fmt.Errorf("write %s png: %w", name, err)
	}
	return nil
}

// SavePNGs writes every chart to dir as <name>.png and returns the paths.
func SavePNGs(dir string, v dashboard.View, size Size) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(Names))
	for _, name := range Names {
		path := filepath.Join(dir, string(name)+".png")
		f, err := os.Create(path)
		if err != nil {
			return paths, err
		}
		if err := WritePNG(f, name, v, size); err != nil {
			f.Close()
			return paths, err
		}
		if err := f.Close(); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WritePDF writes a report: a summary page with the KPIs followed by one page
// per chart.
func WritePDF(w io.Writer, title string, v dashboard.View) error {
	// The Liberation fonts bundled with vgpdf lack the dash glyphs.
	title = strings.NewReplacer("\u2014", "-", "\u2013", "-").Replace(title)

	c := vgpdf.New(pageWidth, pageHeight)
	drawSummaryPage(c, title, v)
	for _, name := range Names {
		p, err := Plot(name, v)
		if err != nil {
			return err
		}
		c.NextPage()
		dc := draw.New(c)
		area := draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)
		// Charts take the top half of the page to keep a landscape aspect.
		p.Draw(draw.Crop(area, 0, 0, (area.Max.Y-area.Min.Y)/2, 0))
	}
	if _, err := c.WriteTo(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// SavePDF writes the report to path.
func SavePDF(path, title string, v dashboard.View) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WritePDF(f, title, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func drawSummaryPage(c *vgpdf.Canvas, title string, v dashboard.View) {
	dc := draw.New(c)
	area := draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)
	y := area.Max.Y - vg.Points(14)
	fillText(area, title, vg.Points(16), area.Min.X, y, color.Black)
	y -= 0.5 * vg.Inch

	k := v.KPIs
	lines := [][2]string{
		{"Total Calls", k.TotalCallsLabel},
		{"Most Common Emergency", statLabel(k.MostCommonEmergency)},
		{"City with Most Calls", statLabel(k.TopCity)},
		{"Peak Call Hour", statLabel(k.PeakHour)},
	}
	for _, l := range lines {
		fillText(area, l[0], vg.Points(11), area.Min.X, y, color.Gray{Y: 80})
		fillText(area, l[1], vg.Points(11), area.Min.X+2.5*vg.Inch, y, color.Black)
		y -= 0.3 * vg.Inch
	}

	y -= 0.3 * vg.Inch
	fillText(area, "Filters", vg.Points(11), area.Min.X, y, color.Gray{Y: 80})
	y -= 0.3 * vg.Inch
	sel := v.Selection
	for _, l := range [][2]string{
		{"Reasons", joinLimited(sel.Reasons, 6)},
		{"Cities", joinLimited(sel.Cities, 6)},
		{"Years", joinLimited(intStrings(sel.Years), 12)},
	} {
		fillText(area, l[0], vg.Points(10), area.Min.X, y, color.Gray{Y: 80})
		fillText(area, l[1], vg.Points(10), area.Min.X+1.2*vg.Inch, y, color.Black)
		y -= 0.25 * vg.Inch
	}
}

func statLabel(s dashboard.Stat) string {
	if s.NoData {
		return "No data"
	}
	return fmt.Sprintf("%s (%s calls)", s.Value, formatting.FormatCount(s.Count))
}

func joinLimited(values []string, n int) string {
	if len(values) == 0 {
		return "(none)"
	}
	if len(values) <= n {
		return strings.Join(values, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(values[:n], ", "), len(values)-n)
}

func intStrings(values []int) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func fillText(c draw.Canvas, txt string, size vg.Length, x, y vg.Length, clr color.Color) {
	sty := draw.TextStyle{
		Color:   clr,
		Font:    plot.DefaultFont,
		Handler: plot.DefaultTextHandler,
	}
	sty.Font.Size = size
	c.FillText(sty, vg.Point{X: x, Y: y}, txt)
}
