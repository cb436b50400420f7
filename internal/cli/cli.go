package cli

import (
	"fmt"
	"io"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Serve  *ServeCommand
	Report *ReportCommand
	Chart  *ChartCommand
	Import *ImportCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string, out io.Writer) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	// Errors are returned to main for printing rather than written by go-flags.
	parser := goflags.NewParser(&globals, goflags.HelpFlag|goflags.PassDoubleDash)
	parser.Name = "calls-dashboard"
	parser.LongDescription = "Interactive dashboard and reports over 911 emergency call records."

	cmds := &commands{
		Serve:  &ServeCommand{globals: &globals, version: version},
		Report: &ReportCommand{globals: &globals, version: version, out: out},
		Chart:  &ChartCommand{globals: &globals, version: version, out: out},
		Import: &ImportCommand{globals: &globals, version: version, out: out},
	}

	parser.AddCommand("serve", "Start the dashboard server", "Load the dataset once and serve the dashboard UI and JSON API.", cmds.Serve)
	parser.AddCommand("report", "Print KPIs and statistics", "Print KPIs, trends and descriptive statistics for a filter selection.", cmds.Report)
	parser.AddCommand("chart", "Render charts", "Render every dashboard chart to PNG, optionally bundled into a PDF report.", cmds.Chart)
	parser.AddCommand("import", "Import a CSV into SQLite", "Validate a CSV export and store it in the SQLite dataset file.", cmds.Import)

	return parser, &globals, cmds
}

// Run is the main entry point using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	return run(version, args, os.Stdout)
}

func run(version string, args []string, out io.Writer) error {
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Fprintf(out, "calls-dashboard %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version, out)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				fmt.Fprintln(out, flagsErr.Message)
				return nil
			}
		}
		return err
	}
	return nil
}
