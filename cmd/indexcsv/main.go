// Command indexcsv merges CSV index files onto the seed table offline and
// writes the result as CSV or XLSX.
//
//	indexcsv -seed data/daxsp.csv -format xlsx -out indices.xlsx update.csv more.csv
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"dailyindex/internal/config"
	"dailyindex/internal/exporter"
	"dailyindex/internal/indexdata"
	"dailyindex/internal/infrastructure"
	"dailyindex/internal/validation"
)

type options struct {
	seed   string
	format exporter.Format
	out    string
	files  []string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	logger = infrastructure.WithComponent(logger, "indexcsv")

	opts, err := parseFlags(os.Args[1:], cfg.SeedPath())
	if err != nil {
		logger.Error("Invalid arguments", "error", err)
		os.Exit(2)
	}

	opts, err = prepare(opts, validation.NewFileValidator(logger))
	if err != nil {
		logger.Error("Invalid input", "error", err)
		os.Exit(2)
	}

	var w io.Writer = os.Stdout
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			logger.Error("Failed to create output file", "path", opts.out, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	table, err := run(opts, w, logger)
	if err != nil {
		logger.Error("Merge failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Wrote index table",
		"entries", table.Len(),
		"indices", table.Indices(),
		"format", string(opts.format),
		"out", opts.out)
}

func parseFlags(args []string, defaultSeed string) (options, error) {
	fs := flag.NewFlagSet("indexcsv", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	seed := fs.String("seed", defaultSeed, "base CSV file (empty starts from an empty table)")
	format := fs.String("format", "csv", "output format: csv | xlsx")
	out := fs.String("out", "", "output file (defaults to stdout)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	f, err := exporter.ParseFormat(*format)
	if err != nil {
		return options{}, err
	}

	return options{seed: *seed, format: f, out: *out, files: fs.Args()}, nil
}

// prepare expands input globs and checks every path before any work is done.
func prepare(opts options, v *validation.FileValidator) (options, error) {
	files, err := v.ExpandInputs(opts.files)
	if err != nil {
		return opts, err
	}
	for _, path := range files {
		if err := v.ValidateCSVFile(path); err != nil {
			return opts, err
		}
	}
	opts.files = files

	if opts.seed != "" {
		if err := v.ValidateFile(opts.seed); err != nil {
			return opts, err
		}
	}
	if opts.out != "" {
		if err := v.ValidateOutputFile(opts.out, string(opts.format)); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// run loads the seed, merges every file in order and writes the table.
func run(opts options, w io.Writer, logger *slog.Logger) (*indexdata.Table, error) {
	table := indexdata.New()
	if opts.seed != "" {
		loaded, err := loadTable(opts.seed)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", opts.seed, err)
		}
		table = loaded
	}

	for _, path := range opts.files {
		sheet, err := parseFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		table = table.Merge(sheet)
		logger.Debug("Merged file", "path", path, "rows", len(sheet.Rows), "entries", table.Len())
	}

	if err := exporter.Write(w, table, opts.format); err != nil {
		return nil, fmt.Errorf("write %s: %w", opts.format, err)
	}
	return table, nil
}

func loadTable(path string) (*indexdata.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return indexdata.Load(f)
}

func parseFile(path string) (*indexdata.Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return indexdata.ParseCSV(f)
}
