package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
)

// options holds the parsed command line.
type options struct {
	configPath string
	envFile    string
	format     string
	limit      int
	schema     bool
	query      string
	verbose    bool
	input      string
}

var errUsage = errors.New("usage")

func newFlagSet(stderr io.Writer, o *options) *flag.FlagSet {
	fs := flag.NewFlagSet("medframe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "Pipeline file (JSON)")
	fs.StringVar(&o.envFile, "env", "", "Load settings from this .env file first")
	fs.StringVar(&o.format, "f", "table", "Output format: table, json, jsonl, csv")
	fs.IntVar(&o.limit, "limit", 0, "Limit number of rows printed per result (0 = unlimited)")
	fs.BoolVar(&o.schema, "schema", false, "Show schema information of the input instead of running the pipeline")
	fs.StringVar(&o.query, "q", "", "SQL query against the cleaned table (e.g., \"select finding, count(*) from patients group by finding\")")
	fs.BoolVar(&o.verbose, "v", false, "Verbose logging (debug level)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: medframe [options] [input]\n\n")
		fmt.Fprintf(stderr, "Load, clean and analyse a medical imaging metadata table.\n\n")
		fmt.Fprintf(stderr, "IMPORTANT: All flags must come BEFORE the input argument.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  medframe metadata.csv\n")
		fmt.Fprintf(stderr, "  medframe -config pipeline.json\n")
		fmt.Fprintf(stderr, "  medframe -f csv -q \"select * from patients where age > 60\" metadata.csv\n")
		fmt.Fprintf(stderr, "  medframe -schema 'scans/*.parquet'\n")
	}
	return fs
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := newFlagSet(stderr, o)
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}

	if o.limit < 0 {
		return nil, fmt.Errorf("-limit must be non-negative, got %d", o.limit)
	}
	if o.schema && o.query != "" {
		return nil, errors.New("-schema and -q cannot be used together")
	}
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("expected at most one input, got %d", fs.NArg())
	}
	if fs.NArg() == 1 {
		o.input = fs.Arg(0)
	}
	if o.input == "" && o.configPath == "" {
		fmt.Fprintf(stderr, "Error: missing input argument\n\n")
		fs.Usage()
		return nil, errUsage
	}
	return o, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
