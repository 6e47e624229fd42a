package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/darianmavgo/sqldump2xlsx/config"
	"github.com/darianmavgo/sqldump2xlsx/converters"
	"github.com/darianmavgo/sqldump2xlsx/converters/common"
)

// flagValues holds the conversion flags. They override the config file only
// when set on the command line.
type flagValues struct {
	configPath      string
	format          string
	maxFieldSize    int
	batchSize       int
	delimiter       string
	stallTimeout    time.Duration
	logErrors       bool
	keepStore       bool
	storePath       string
	keepEmptyTables bool
	fromDB          bool
	encoding        string
	verbose         bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var fv flagValues

	rootCmd := &cobra.Command{
		Use:   "sqldump2xlsx <dump.sql> <output-dir>",
		Short: "Convert a SQL dump into one spreadsheet per table",
		Long: "Loads a MySQL or PostgreSQL dump into an embedded SQLite store and writes\n" +
			"every table to its own xlsx, csv or html file in output-dir.\n" +
			"The dump may be plain, gzip compressed or inside a zip archive; \"-\" reads stdin.",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resolveOptions(cmd.Flags(), &fv)
			if err != nil {
				return err
			}
			opts.Logger = newLogger(stderr, fv.verbose)
			opts.Stdin = cmd.InOrStdin()

			var report *converters.Report
			if fv.fromDB {
				report, err = converters.ExportDatabase(cmd.Context(), args[0], args[1], opts)
			} else {
				report, err = converters.ConvertDump(cmd.Context(), args[0], args[1], opts)
			}
			if report != nil {
				printReport(stdout, report)
			}
			return err
		},
	}

	pfs := rootCmd.PersistentFlags()
	pfs.StringVarP(&fv.configPath, "config", "c", "", "HCL or YAML config file")
	pfs.IntVar(&fv.maxFieldSize, "max-field-size", common.DefaultMaxFieldSize, "truncate fields to this many characters, 0 for no limit")
	pfs.StringVar(&fv.encoding, "encoding", "", "character set of the dump, e.g. latin1 or windows-1252; UTF-8 when empty")
	pfs.BoolVarP(&fv.verbose, "verbose", "v", false, "log debug messages")

	fs := rootCmd.Flags()
	fs.StringVarP(&fv.format, "format", "f", "xlsx", fmt.Sprintf("output format %v", converters.Formats()))
	fs.IntVar(&fv.batchSize, "batch-size", converters.BatchSize, "statements per store transaction")
	fs.StringVar(&fv.delimiter, "delimiter", ",", "csv field delimiter")
	fs.DurationVar(&fv.stallTimeout, "stall-timeout", 0, "give up when the dump yields no statement for this long")
	fs.BoolVar(&fv.logErrors, "log-errors", false, "record failed statements in the store's error table")
	fs.BoolVar(&fv.keepStore, "keep-store", false, "keep the SQLite store in the output directory")
	fs.StringVar(&fv.storePath, "store", "", "path of the kept store, implies --keep-store")
	fs.BoolVar(&fv.keepEmptyTables, "keep-empty-tables", false, "write header-only files for tables without rows")
	fs.BoolVar(&fv.fromDB, "from-db", false, "read an existing SQLite database instead of a dump")

	rootCmd.AddCommand(newSQLCmd(&fv, stdout, stderr))
	rootCmd.AddCommand(newConfigCmd(stdout))
	rootCmd.AddCommand(newVersionCmd(stdout))
	return rootCmd
}

// resolveOptions applies precedence: flag > config file > default.
func resolveOptions(fs *pflag.FlagSet, fv *flagValues) (*converters.Options, error) {
	cfg := config.DefaultConfig()
	if fv.configPath != "" {
		loaded, err := config.Load(fv.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "format":
			cfg.Format = fv.format
		case "max-field-size":
			cfg.MaxFieldSize = fv.maxFieldSize
		case "batch-size":
			cfg.BatchSize = fv.batchSize
		case "delimiter":
			cfg.CSVDelimiter = fv.delimiter
		case "stall-timeout":
			cfg.StallTimeout = fv.stallTimeout.String()
		case "log-errors":
			cfg.LogErrors = fv.logErrors
		case "keep-store":
			cfg.KeepStore = fv.keepStore
		case "store":
			cfg.KeepStore = true
		case "keep-empty-tables":
			cfg.KeepEmptyTables = fv.keepEmptyTables
		case "encoding":
			cfg.Encoding = fv.encoding
		}
	})

	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	opts.StorePath = fv.storePath
	return opts, nil
}

// printReport lists the written files, aligned on a terminal and tab
// separated otherwise.
func printReport(w io.Writer, r *converters.Report) {
	if isTerminal(w) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TABLE\tROWS\tFILE")
		for _, t := range r.Tables {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", t.Table, t.Rows, t.Path)
		}
		tw.Flush()
		fmt.Fprintf(w, "%d files written in %s", len(r.Tables), r.Elapsed.Round(time.Millisecond))
		if r.Ingest.Failed > 0 {
			fmt.Fprintf(w, ", %d statements failed", r.Ingest.Failed)
		}
		if r.StorePath != "" {
			fmt.Fprintf(w, ", store kept at %s", r.StorePath)
		}
		fmt.Fprintln(w)
		return
	}
	for _, t := range r.Tables {
		fmt.Fprintf(w, "%s\t%d\t%s\n", t.Table, t.Rows, t.Path)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
