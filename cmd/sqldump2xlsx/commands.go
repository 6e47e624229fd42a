package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/darianmavgo/sqldump2xlsx/config"
	"github.com/darianmavgo/sqldump2xlsx/converters"
	"github.com/darianmavgo/sqldump2xlsx/converters/zip"
)

func newSQLCmd(fv *flagValues, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "sql <dump.sql> [output.sql]",
		Short: "Print the statements the dump translates to",
		Long:  "Translates the dump without loading it and writes one SQLite statement per line.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resolveOptions(cmd.Flags(), fv)
			if err != nil {
				return err
			}
			opts.Logger = newLogger(stderr, fv.verbose)

			var in io.Reader
			if args[0] == converters.StdinPath {
				in = cmd.InOrStdin()
			} else {
				rc, _, err := zip.OpenDump(args[0])
				if err != nil {
					return err
				}
				defer rc.Close()
				in = rc
			}

			out := stdout
			if len(args) == 2 {
				f, err := os.Create(args[1])
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				out = f
			}
			return converters.WriteSQL(in, out, opts)
		},
	}
}

func newConfigCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage config files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "export <file>",
		Short: "Write the default config as HCL, or YAML for .yaml files",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := config.Export(args[0], config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Config written to %s\n", args[0])
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "check <file>",
		Short: "Load a config file and report errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s: format %s, max field size %d, batch size %d\n",
				args[0], cfg.Format, cfg.MaxFieldSize, cfg.BatchSize)
			return nil
		},
	})
	return cmd
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(stdout, "sqldump2xlsx version %s (commit: %s)\n", version, commit)
		},
	}
}
