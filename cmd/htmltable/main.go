// Command htmltable prints HTML tables as CSV, TSV or JSON.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cybergodev/htmltable"
	"github.com/spf13/cobra"
)

type options struct {
	id        string
	headers   []string
	all       bool
	format    string
	encoding  string
	htmlCells bool
	verbose   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "htmltable [file...]",
		Short: "Extract tables from HTML documents",
		Long: `Extract a table from each HTML document and print its rows.

The table is the first one in the document unless --id or --header narrows
the search. With no file arguments the document is read from stdin.

Example: htmltable report.html --header Name --header Age --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.id != "" && len(opts.headers) > 0 {
				return errors.New("--id and --header are mutually exclusive")
			}
			w, err := newWriter(opts.format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return run(cmd, args, opts, w)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.id, "id", "", "select the table with this id attribute")
	flags.StringArrayVar(&opts.headers, "header", nil, "select the first table whose header row has this header (repeatable)")
	flags.BoolVar(&opts.all, "all", false, "print every table in the document")
	flags.StringVarP(&opts.format, "format", "f", "csv", "output format: csv, tsv or json")
	flags.StringVar(&opts.encoding, "encoding", "", "force the input charset instead of detecting it")
	flags.BoolVar(&opts.htmlCells, "html-cells", false, "keep cell markup instead of plain text")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log processing details to stderr")

	return cmd
}

func run(cmd *cobra.Command, args []string, opts options, w tableWriter) error {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg := htmltable.DefaultConfig()
	cfg.ForcedEncoding = opts.encoding
	cfg.Logger = logger
	if opts.htmlCells {
		cfg.CellMode = htmltable.CellHTML
	}
	p, err := htmltable.New(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	query := htmltable.First()
	switch {
	case opts.id != "":
		query = htmltable.ByID(opts.id)
	case len(opts.headers) > 0:
		query = htmltable.ByHeaders(opts.headers...)
	}

	if len(args) == 0 {
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), int64(cfg.MaxInputSize)+1))
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		src := source{name: "-", one: func() (*htmltable.Table, error) {
			return p.FindBytes(data, query)
		}, all: func() ([]*htmltable.Table, error) {
			return p.FindAllBytes(data)
		}}
		return emit(w, src, opts.all)
	}

	for _, path := range args {
		src := source{name: path, one: func() (*htmltable.Table, error) {
			return p.FindFromFile(path, query)
		}, all: func() ([]*htmltable.Table, error) {
			return p.FindAllFromFile(path)
		}}
		if err := emit(w, src, opts.all); err != nil {
			return err
		}
	}
	return nil
}

// source is one input document with its two lookups bound.
type source struct {
	name string
	one  func() (*htmltable.Table, error)
	all  func() ([]*htmltable.Table, error)
}

func emit(w tableWriter, src source, all bool) error {
	var tables []*htmltable.Table
	if all {
		found, err := src.all()
		if err != nil {
			return fmt.Errorf("%s: %w", src.name, err)
		}
		if len(found) == 0 {
			return fmt.Errorf("%s: %w", src.name, htmltable.ErrTableNotFound)
		}
		tables = found
	} else {
		table, err := src.one()
		if err != nil {
			return fmt.Errorf("%s: %w", src.name, err)
		}
		tables = []*htmltable.Table{table}
	}

	for i, table := range tables {
		if err := w.Write(src.name, i, table); err != nil {
			return err
		}
	}
	return w.Flush()
}
