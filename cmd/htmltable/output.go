package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cybergodev/htmltable"
)

type tableWriter interface {
	Write(source string, index int, table *htmltable.Table) error
	Flush() error
}

func newWriter(format string, out io.Writer) (tableWriter, error) {
	switch format {
	case "csv":
		return &delimitedWriter{w: csv.NewWriter(out)}, nil
	case "tsv":
		cw := csv.NewWriter(out)
		cw.Comma = '\t'
		return &delimitedWriter{w: cw}, nil
	case "json":
		return &jsonWriter{enc: json.NewEncoder(out)}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want csv, tsv or json)", format)
	}
}

// headerRecord lays the headers out by position so they line up with the
// data cells. Positions whose text was reused by a later header are blank.
func headerRecord(h htmltable.Headers) []string {
	width := 0
	for _, i := range h {
		width = max(width, i+1)
	}
	record := make([]string, width)
	for name, i := range h {
		record[i] = name
	}
	return record
}

// delimitedWriter prints the header row, when the table has one, then the
// data rows. Tables after the first are separated by an empty record.
type delimitedWriter struct {
	w       *csv.Writer
	written int
}

func (d *delimitedWriter) Write(_ string, _ int, table *htmltable.Table) error {
	if d.written > 0 {
		if err := d.w.Write([]string{}); err != nil {
			return err
		}
	}
	d.written++

	if names := headerRecord(table.Headers()); len(names) > 0 {
		if err := d.w.Write(names); err != nil {
			return err
		}
	}
	for row := range table.Rows() {
		if err := d.w.Write(row.Cells()); err != nil {
			return err
		}
	}
	return nil
}

func (d *delimitedWriter) Flush() error {
	d.w.Flush()
	return d.w.Error()
}

type jsonTable struct {
	Source  string     `json:"source"`
	Index   int        `json:"index"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// jsonWriter emits one JSON object per table, newline separated.
type jsonWriter struct {
	enc *json.Encoder
}

func (j *jsonWriter) Write(source string, index int, table *htmltable.Table) error {
	out := jsonTable{
		Source:  source,
		Index:   index,
		Headers: headerRecord(table.Headers()),
		Rows:    make([][]string, 0, table.Len()),
	}
	for row := range table.Rows() {
		cells := row.Cells()
		if cells == nil {
			cells = []string{}
		}
		out.Rows = append(out.Rows, cells)
	}
	return j.enc.Encode(out)
}

func (j *jsonWriter) Flush() error { return nil }
