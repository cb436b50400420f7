package cli

import (
	"io"

	"calls_dashboard/filter"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file (YAML or JSON)"`
	Dataset string `long:"dataset" description:"Dataset to load (.csv, or .db/.sqlite from import)"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// FilterFlags selects calls the same way the dashboard sidebar does. A
// dimension left unset selects every value.
type FilterFlags struct {
	Reasons []string `long:"reason" description:"Emergency reason to include (repeatable)"`
	Cities  []string `long:"city" description:"Township to include (repeatable)"`
	Years   []int    `long:"year" description:"Year to include (repeatable)"`
}

// Selection applies the flags on top of the all-selected default.
func (f FilterFlags) Selection(opts filter.Options) filter.Selection {
	sel := filter.Default(opts)
	if len(f.Reasons) > 0 {
		sel.Reasons = append([]string{}, f.Reasons...)
	}
	if len(f.Cities) > 0 {
		sel.Cities = append([]string{}, f.Cities...)
	}
	if len(f.Years) > 0 {
		sel.Years = append([]int{}, f.Years...)
	}
	return sel
}

// ServeCommand starts the dashboard HTTP service.
type ServeCommand struct {
	Port    string `long:"port" description:"Override listen address (e.g. 8080 or :8080)"`
	NoWatch bool   `long:"no-watch" description:"Do not watch the dataset file for changes"`

	globals *GlobalFlags
	version string
}

// ReportCommand prints KPIs, trends and descriptive statistics.
type ReportCommand struct {
	FilterFlags
	By  string `long:"by" description:"Also print call counts grouped by column (reason, city, year, month, hour, day, title)"`
	Top int    `long:"top" description:"Rows to print per ranking" default:"10"`

	globals *GlobalFlags
	version string
	out     io.Writer
}

// ChartCommand renders every chart to PNG files and optionally a PDF report.
type ChartCommand struct {
	FilterFlags
	Out      string  `long:"out" description:"Directory for PNG files" default:"charts"`
	PDF      string  `long:"pdf" description:"Also write a PDF report to this path"`
	WidthIn  float64 `long:"width" description:"Chart width in inches"`
	HeightIn float64 `long:"height" description:"Chart height in inches"`

	globals *GlobalFlags
	version string
	out     io.Writer
}

// ImportCommand loads a CSV export into the SQLite store.
type ImportCommand struct {
	CSV string `long:"csv" description:"CSV file to import (required)" required:"true"`
	DB  string `long:"db" description:"SQLite file to write (defaults to db_path)"`

	globals *GlobalFlags
	version string
	out     io.Writer
}
