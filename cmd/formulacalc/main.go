// Command formulacalc loads a workbook, inspects its dependency
// graph, and drives calculation against it, one subcommand per
// os.Args[1].
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/corvid-sheets/formulacalc/internal/apperr"
	"github.com/corvid-sheets/formulacalc/internal/config"
	"github.com/corvid-sheets/formulacalc/internal/depgraph"
	"github.com/corvid-sheets/formulacalc/internal/progress"
	"github.com/corvid-sheets/formulacalc/internal/sheetmodel"
	"github.com/corvid-sheets/formulacalc/internal/value"
	"github.com/corvid-sheets/formulacalc/internal/workbook"
	"github.com/corvid-sheets/formulacalc/internal/xlsxload"
)

// logger is constructed once here and threaded down explicitly to
// every collaborator that logs — no package-level global logger
// anywhere under internal/.
var logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	sub := os.Args[1]
	switch sub {
	case "-h", "--help", "help":
		usage()
		os.Exit(0)
	case "load":
		os.Exit(loadCommand(os.Args[2:]))
	case "deps":
		os.Exit(depsCommand(os.Args[2:]))
	case "order":
		os.Exit(orderCommand(os.Args[2:]))
	case "sheets":
		os.Exit(sheetsCommand(os.Args[2:]))
	case "get":
		os.Exit(getCommand(os.Args[2:]))
	case "calculate":
		os.Exit(calculateCommand(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", sub)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: formulacalc <command> [args]

commands:
  load <file>                      load and parse a workbook
  deps <file>                      print the dependency graph in GraphViz DOT form
  order <file>                     print the topological calculation order
  sheets <file>                    print the ordered list of sheet names
  get <file> <ref>                 print the raw value at <ref>
  calculate <file> <ref> [flags]   calculate the workbook then print <ref>

flags for calculate:
  --progress   emit stderr progress pulses
  --debug      verbose evaluator trace logging`)
}

// exitFor maps err (nil or otherwise) to a process exit code via the
// apperr classification, logging the failure first.
func exitFor(err error) int {
	if err == nil {
		return 0
	}
	logger.Error().Err(err).Msg("formulacalc: command failed")
	return apperr.ExitCode(apperr.FromError(err))
}

func loadWorkbook(path string) (*sheetmodel.Workbook, error) {
	loader := xlsxload.ExcelizeLoader{}
	wb, err := loader.Load(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "load workbook", err)
	}
	return wb, nil
}

func loadCommand(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: formulacalc load <file>")
		return 2
	}
	_, err := loadWorkbook(args[0])
	return exitFor(err)
}

func newOrchestrator(path string, reporter progress.Reporter) (*workbook.Orchestrator, error) {
	wb, err := loadWorkbook(path)
	if err != nil {
		return nil, err
	}
	return workbook.New(wb, config.Default(), logger, reporter), nil
}

func depsCommand(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: formulacalc deps <file>")
		return 2
	}
	o, err := newOrchestrator(args[0], nil)
	if err != nil {
		return exitFor(err)
	}
	if err := o.Wire(); err != nil {
		return exitFor(err)
	}
	fmt.Println(dotGraph(o.Graph()))
	return 0
}

// dotGraph renders the graph as a standard directed GraphViz graph,
// nodes labelled by CellId's display form, no edge labels.
func dotGraph(g *depgraph.Graph) string {
	out := "digraph dependencies {\n"
	for dependent, precedents := range g.Precedents() {
		for precedent := range precedents {
			out += fmt.Sprintf("  %q -> %q;\n", precedent.String(), dependent.String())
		}
	}
	out += "}"
	return out
}

func orderCommand(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: formulacalc order <file>")
		return 2
	}
	o, err := newOrchestrator(args[0], nil)
	if err != nil {
		return exitFor(err)
	}
	if err := o.Wire(); err != nil {
		return exitFor(err)
	}
	order, err := o.Graph().Order()
	if err != nil {
		return exitFor(apperr.Wrap(apperr.FailedPrecondition, "dependency order", err))
	}
	for _, cell := range order {
		fmt.Println(cell.String())
	}
	return 0
}

func sheetsCommand(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: formulacalc sheets <file>")
		return 2
	}
	wb, err := loadWorkbook(args[0])
	if err != nil {
		return exitFor(err)
	}
	for _, name := range wb.SheetNames() {
		fmt.Println(name)
	}
	return 0
}

func getCommand(args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: formulacalc get <file> <ref>")
		return 2
	}
	o, err := newOrchestrator(args[0], nil)
	if err != nil {
		return exitFor(err)
	}
	sheetName, ref := workbook.SplitSheetAndRef(args[1])
	v, err := o.Resolve(sheetName, ref)
	if err != nil {
		return exitFor(err)
	}
	fmt.Println(displayValue(v))
	return 0
}

func calculateCommand(args []string) int {
	fs := flag.NewFlagSet("calculate", flag.ContinueOnError)
	showProgress := fs.Bool("progress", false, "emit stderr progress pulses")
	debug := fs.Bool("debug", false, "verbose evaluator trace logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	positional := fs.Args()
	if len(positional) != 2 {
		fmt.Fprintln(os.Stderr, "usage: formulacalc calculate <file> <ref> [--progress] [--debug]")
		return 2
	}

	if *debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	var reporter progress.Reporter = progress.NoopReporter{}
	if *showProgress {
		reporter = progress.StderrReporter{W: os.Stderr}
	}

	o, err := newOrchestrator(positional[0], reporter)
	if err != nil {
		return exitFor(err)
	}
	if err := o.Wire(); err != nil {
		return exitFor(err)
	}
	if err := o.Calculate(context.Background()); err != nil {
		return exitFor(err)
	}

	sheetName, ref := workbook.SplitSheetAndRef(positional[1])
	v, err := o.Resolve(sheetName, ref)
	if err != nil {
		return exitFor(err)
	}
	if v.IsError() && v.ErrorKind == value.ErrName {
		// Unsupported-function results are a distinct externally
		// visible outcome, unlike every
		// other in-sheet error kind, which prints as ordinary data.
		fmt.Println(displayValue(v))
		return 3
	}
	fmt.Println(displayValue(v))
	return 0
}

// displayValue renders a resolved Value for CLI output: scalars via
// AsText, a range/array as a comma-separated flat listing.
func displayValue(v value.Value) string {
	switch v.Kind {
	case value.KindArray:
		out := ""
		for i, item := range v.Array {
			if i > 0 {
				out += ", "
			}
			out += item.AsText()
		}
		return out
	case value.KindArray2:
		out := ""
		for r, row := range v.Array2 {
			if r > 0 {
				out += "; "
			}
			for c, item := range row {
				if c > 0 {
					out += ", "
				}
				out += item.AsText()
			}
		}
		return out
	default:
		return v.AsText()
	}
}
