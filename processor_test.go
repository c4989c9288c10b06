package htmltable_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cybergodev/htmltable"
)

func newProcessor(t *testing.T, mutate func(*htmltable.Config)) *htmltable.Processor {
	t.Helper()
	cfg := htmltable.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := htmltable.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*htmltable.Config)
	}{
		{"zero MaxInputSize", func(c *htmltable.Config) { c.MaxInputSize = 0 }},
		{"negative MaxCacheEntries", func(c *htmltable.Config) { c.MaxCacheEntries = -1 }},
		{"negative CacheTTL", func(c *htmltable.Config) { c.CacheTTL = -time.Second }},
		{"zero WorkerPoolSize", func(c *htmltable.Config) { c.WorkerPoolSize = 0 }},
		{"zero MaxDepth", func(c *htmltable.Config) { c.MaxDepth = 0 }},
		{"negative ProcessingTimeout", func(c *htmltable.Config) { c.ProcessingTimeout = -time.Second }},
		{"unknown CellMode", func(c *htmltable.Config) { c.CellMode = htmltable.CellMode(9) }},
		{"unknown ForcedEncoding", func(c *htmltable.Config) { c.ForcedEncoding = "no-such-charset" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := htmltable.DefaultConfig()
			tt.mutate(&cfg)
			if _, err := htmltable.New(cfg); !errors.Is(err, htmltable.ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}

	if _, err := htmltable.New(htmltable.DefaultConfig()); err != nil {
		t.Errorf("New(DefaultConfig()) error = %v", err)
	}
}

func TestProcessorFind(t *testing.T) {
	t.Parallel()

	p := htmltable.NewWithDefaults()
	defer p.Close()

	tests := []struct {
		name  string
		query htmltable.Query
		want  *htmltable.Table
	}{
		{"first", htmltable.First(), htmltable.FindFirst(htmlTwoTables)},
		{"zero query", htmltable.Query{}, htmltable.FindFirst(htmlTwoTables)},
		{"by id", htmltable.ByID("second"), htmltable.FindByID(htmlTwoTables, "second")},
		{"by headers", htmltable.ByHeaders("Weight", "Name"), htmltable.FindByID(htmlTwoTables, "second")},
		{"by no headers", htmltable.ByHeaders(), htmltable.FindFirst(htmlTwoTables)},
	}

	for _, tt := range tests {
		got, err := p.Find(htmlTwoTables, tt.query)
		if err != nil {
			t.Errorf("%s: Find() error = %v", tt.name, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("%s: Find() returned a different table", tt.name)
		}
	}
}

func TestProcessorNotFound(t *testing.T) {
	t.Parallel()

	p := htmltable.NewWithDefaults()
	defer p.Close()

	for _, q := range []htmltable.Query{htmltable.First(), htmltable.ByID("nope"), htmltable.ByHeaders("Nope")} {
		if _, err := p.Find(htmlNoTable, q); !errors.Is(err, htmltable.ErrTableNotFound) {
			t.Errorf("Find(%s) error = %v, want ErrTableNotFound", q, err)
		}
	}
	if got := p.GetStatistics().NotFound; got != 3 {
		t.Errorf("NotFound = %d, want 3", got)
	}
}

func TestProcessorCache(t *testing.T) {
	t.Parallel()

	p := htmltable.NewWithDefaults()
	defer p.Close()

	first, err := p.Find(htmlTwoTables, htmltable.ByHeaders("Name", "Age"))
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	second, err := p.Find(htmlTwoTables, htmltable.ByHeaders("Age", "Name", "Age"))
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if first != second {
		t.Error("equivalent header queries should share a cache entry")
	}

	stats := p.GetStatistics()
	if stats.CacheMisses != 1 || stats.CacheHits != 1 {
		t.Errorf("CacheMisses = %d, CacheHits = %d, want 1 and 1", stats.CacheMisses, stats.CacheHits)
	}

	if _, err := p.Find(htmlTwoTables, htmltable.ByID("first")); err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got := p.GetStatistics().CacheMisses; got != 2 {
		t.Errorf("CacheMisses = %d, want 2 for a different query", got)
	}

	p.ClearCache()
	stats = p.GetStatistics()
	if stats.CacheHits != 0 || stats.CacheMisses != 0 {
		t.Errorf("after ClearCache hits = %d, misses = %d, want 0", stats.CacheHits, stats.CacheMisses)
	}
}

func TestProcessorCacheLargeDocuments(t *testing.T) {
	t.Parallel()

	// Same length, differing only well inside the document.
	page := func(header string) string {
		return "<!--" + strings.Repeat("x", 20*1024) + "-->" +
			"<table><tr><th>" + header + "</th></tr><tr><td>1</td></tr></table>" +
			"<!--" + strings.Repeat("y", 80*1024) + "-->"
	}
	a, b := page("A"), page("B")

	p := htmltable.NewWithDefaults()
	defer p.Close()

	for _, tt := range []struct {
		html   string
		header string
	}{{a, "A"}, {b, "B"}, {a, "A"}} {
		table, err := p.Find(tt.html, htmltable.First())
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if got := table.HeaderNames(); !slices.Equal(got, []string{tt.header}) {
			t.Errorf("HeaderNames() = %v, want [%s]", got, tt.header)
		}
		if !table.Equal(htmltable.FindFirst(tt.html)) {
			t.Errorf("Find() differs from FindFirst() for header %s", tt.header)
		}
	}
	if stats := p.GetStatistics(); stats.CacheMisses != 2 || stats.CacheHits != 1 {
		t.Errorf("CacheMisses = %d, CacheHits = %d, want 2 and 1", stats.CacheMisses, stats.CacheHits)
	}
}

func TestProcessorAgreesWithFindFirst(t *testing.T) {
	t.Parallel()

	inputs := []string{
		`<template><table><tr><th>T</th></tr><tr><td>1</td></tr></table></template><table><tr><th>U</th></tr></table>`,
		`<div><template><table id="x"><tr><td>in template</td></tr></table></template></div>`,
		tableComplex,
	}

	p := htmltable.NewWithDefaults()
	defer p.Close()

	for _, src := range inputs {
		want := htmltable.FindFirst(src)
		if want == nil {
			t.Fatalf("FindFirst(%q) = nil", src)
		}
		got, err := p.Find(src, htmltable.First())
		if err != nil {
			t.Fatalf("Find(%q) error = %v", src, err)
		}
		if !got.Equal(want) {
			t.Errorf("Find(%q) = %v, want %v", src, got, want)
		}
	}
}

func TestProcessorCacheDisabled(t *testing.T) {
	t.Parallel()

	p := newProcessor(t, func(c *htmltable.Config) { c.MaxCacheEntries = 0 })
	for range 2 {
		if _, err := p.Find(tableTHTD, htmltable.First()); err != nil {
			t.Fatalf("Find() error = %v", err)
		}
	}
	if got := p.GetStatistics().CacheHits; got != 0 {
		t.Errorf("CacheHits = %d, want 0 with caching disabled", got)
	}
}

func TestProcessorInputTooLarge(t *testing.T) {
	t.Parallel()

	p := newProcessor(t, func(c *htmltable.Config) { c.MaxInputSize = 16 })
	if _, err := p.Find(tableTHTD, htmltable.First()); !errors.Is(err, htmltable.ErrInputTooLarge) {
		t.Errorf("Find() error = %v, want ErrInputTooLarge", err)
	}
	if _, err := p.FindBytes([]byte(tableTHTD), htmltable.First()); !errors.Is(err, htmltable.ErrInputTooLarge) {
		t.Errorf("FindBytes() error = %v, want ErrInputTooLarge", err)
	}
	if _, err := p.FindAll(tableTHTD); !errors.Is(err, htmltable.ErrInputTooLarge) {
		t.Errorf("FindAll() error = %v, want ErrInputTooLarge", err)
	}
	if got := p.GetStatistics().ErrorCount; got != 3 {
		t.Errorf("ErrorCount = %d, want 3", got)
	}
}

func TestProcessorMaxDepth(t *testing.T) {
	t.Parallel()

	p := newProcessor(t, func(c *htmltable.Config) { c.MaxDepth = 20 })
	deep := strings.Repeat("<div>", 50) + tableTHTD + strings.Repeat("</div>", 50)
	if _, err := p.Find(deep, htmltable.First()); !errors.Is(err, htmltable.ErrMaxDepthExceeded) {
		t.Errorf("Find() error = %v, want ErrMaxDepthExceeded", err)
	}
	if _, err := p.Find(tableTHTD, htmltable.First()); err != nil {
		t.Errorf("Find(shallow) error = %v", err)
	}
}

func TestProcessorClosed(t *testing.T) {
	t.Parallel()

	p := htmltable.NewWithDefaults()
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if _, err := p.Find(tableTHTD, htmltable.First()); !errors.Is(err, htmltable.ErrProcessorClosed) {
		t.Errorf("Find() error = %v, want ErrProcessorClosed", err)
	}
	if _, err := p.FindAll(tableTHTD); !errors.Is(err, htmltable.ErrProcessorClosed) {
		t.Errorf("FindAll() error = %v, want ErrProcessorClosed", err)
	}
	if _, err := p.FindBatch(context.Background(), []string{tableTHTD}, htmltable.First()); !errors.Is(err, htmltable.ErrProcessorClosed) {
		t.Errorf("FindBatch() error = %v, want ErrProcessorClosed", err)
	}
}

func TestProcessorSanitization(t *testing.T) {
	t.Parallel()

	src := `<table>
		<tr><th>Name</th></tr>
		<tr><td>John<script>alert("x")</script><style>td{}</style></td></tr>
	</table>`

	p := htmltable.NewWithDefaults()
	defer p.Close()
	table, err := p.Find(src, htmltable.First())
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	row, _ := table.Row(0)
	if got, _ := row.Get("Name"); got != "John" {
		t.Errorf("Get(Name) = %q, want John", got)
	}

	raw := newProcessor(t, func(c *htmltable.Config) { c.EnableSanitization = false })
	table, err = raw.Find(src, htmltable.First())
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	row, _ = table.Row(0)
	if got, _ := row.Get("Name"); !strings.Contains(got, "alert") {
		t.Errorf("Get(Name) = %q, want script text without sanitization", got)
	}
}

func TestProcessorCellHTML(t *testing.T) {
	t.Parallel()

	src := `<table>
		<tr><th><b>Name</b></th></tr>
		<tr><td> <a href="/john" onclick="x()">John</a> </td></tr>
	</table>`

	p := newProcessor(t, func(c *htmltable.Config) { c.CellMode = htmltable.CellHTML })
	table, err := p.Find(src, htmltable.ByHeaders("<b>Name</b>"))
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	row, _ := table.Row(0)
	if got, _ := row.Get("<b>Name</b>"); got != `<a href="/john">John</a>` {
		t.Errorf("Get() = %q", got)
	}
}

func TestProcessorFindAll(t *testing.T) {
	t.Parallel()

	p := htmltable.NewWithDefaults()
	defer p.Close()

	all, err := p.FindAll(htmlTwoTables)
	if err != nil || len(all) != 2 {
		t.Fatalf("FindAll() = %d tables, %v, want 2", len(all), err)
	}
	none, err := p.FindAll(htmlNoTable)
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("FindAll(no table) = %v, %v, want empty slice", none, err)
	}

	latin1 := []byte("<meta charset=\"windows-1252\"><table><tr><td>\xe9</td></tr></table><table></table>")
	all, err = p.FindAllBytes(latin1)
	if err != nil || len(all) != 2 {
		t.Fatalf("FindAllBytes() = %d tables, %v, want 2", len(all), err)
	}
	row, _ := all[0].Row(0)
	if got := row.Cells(); !slices.Equal(got, []string{"é"}) {
		t.Errorf("Cells() = %q, want é", got)
	}
}

func TestProcessorFindBytes(t *testing.T) {
	t.Parallel()

	// "Café" and "Müller" in windows-1252.
	latin1 := []byte("<meta charset=\"windows-1252\"><table><tr><th>Caf\xe9</th></tr><tr><td>M\xfcller</td></tr></table>")

	p := htmltable.NewWithDefaults()
	defer p.Close()
	table, err := p.FindBytes(latin1, htmltable.ByHeaders("Café"))
	if err != nil {
		t.Fatalf("FindBytes() error = %v", err)
	}
	row, _ := table.Row(0)
	if got, _ := row.Get("Café"); got != "Müller" {
		t.Errorf("Get(Café) = %q, want Müller", got)
	}

	bom := append([]byte{0xEF, 0xBB, 0xBF}, tableTHTD...)
	if _, err := p.FindBytes(bom, htmltable.ByHeaders("Name")); err != nil {
		t.Errorf("FindBytes(utf-8 BOM) error = %v", err)
	}

	forced := newProcessor(t, func(c *htmltable.Config) { c.ForcedEncoding = "latin1" })
	noMeta := []byte("<table><tr><td>\xe9t\xe9</td></tr></table>")
	table, err = forced.FindBytes(noMeta, htmltable.First())
	if err != nil {
		t.Fatalf("FindBytes(forced) error = %v", err)
	}
	row, _ = table.Row(0)
	if got := row.Cells(); !slices.Equal(got, []string{"été"}) {
		t.Errorf("Cells() = %q, want été", got)
	}
}

func TestProcessorFindFromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tables.html")
	if err := os.WriteFile(path, []byte(htmlTwoTables), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	p := htmltable.NewWithDefaults()
	defer p.Close()

	table, err := p.FindFromFile(path, htmltable.ByID("second"))
	if err != nil {
		t.Fatalf("FindFromFile() error = %v", err)
	}
	if table.Len() != 1 {
		t.Errorf("Len() = %d, want 1", table.Len())
	}

	if _, err := p.FindFromFile(filepath.Join(dir, "missing.html"), htmltable.First()); !errors.Is(err, htmltable.ErrFileNotFound) {
		t.Errorf("FindFromFile(missing) error = %v, want ErrFileNotFound", err)
	}
	if _, err := p.FindFromFile("", htmltable.First()); !errors.Is(err, htmltable.ErrInvalidFilePath) {
		t.Errorf("FindFromFile(\"\") error = %v, want ErrInvalidFilePath", err)
	}
	if _, err := p.FindFromFile(dir, htmltable.First()); !errors.Is(err, htmltable.ErrInvalidFilePath) {
		t.Errorf("FindFromFile(dir) error = %v, want ErrInvalidFilePath", err)
	}

	all, err := p.FindAllFromFile(path)
	if err != nil || len(all) != 2 {
		t.Errorf("FindAllFromFile() = %d tables, %v, want 2", len(all), err)
	}
	if _, err := p.FindAllFromFile(dir); !errors.Is(err, htmltable.ErrInvalidFilePath) {
		t.Errorf("FindAllFromFile(dir) error = %v, want ErrInvalidFilePath", err)
	}

	small := newProcessor(t, func(c *htmltable.Config) { c.MaxInputSize = 16 })
	if _, err := small.FindAllFromFile(path); !errors.Is(err, htmltable.ErrInputTooLarge) {
		t.Errorf("FindAllFromFile(large) error = %v, want ErrInputTooLarge", err)
	}
}

func TestProcessorFindBatch(t *testing.T) {
	t.Parallel()

	p := newProcessor(t, func(c *htmltable.Config) { c.WorkerPoolSize = 2 })
	inputs := []string{tableTHTD, htmlTwoTables, tableComplex, tableTD}

	tables, err := p.FindBatch(context.Background(), inputs, htmltable.First())
	if err != nil {
		t.Fatalf("FindBatch() error = %v", err)
	}
	for i, src := range inputs {
		if !tables[i].Equal(htmltable.FindFirst(src)) {
			t.Errorf("FindBatch()[%d] differs from FindFirst", i)
		}
	}

	empty, err := p.FindBatch(context.Background(), nil, htmltable.First())
	if err != nil || len(empty) != 0 {
		t.Errorf("FindBatch(nil) = %v, %v", empty, err)
	}
}

func TestProcessorFindBatchPartialFailure(t *testing.T) {
	t.Parallel()

	p := htmltable.NewWithDefaults()
	defer p.Close()

	tables, err := p.FindBatch(context.Background(), []string{tableTHTD, htmlNoTable}, htmltable.First())
	if !errors.Is(err, htmltable.ErrTableNotFound) {
		t.Fatalf("FindBatch() error = %v, want ErrTableNotFound", err)
	}
	if !strings.Contains(err.Error(), "partial failure (1/2 succeeded)") {
		t.Errorf("FindBatch() error = %q", err)
	}
	if tables[0] == nil || tables[1] != nil {
		t.Errorf("FindBatch() = %v, want [table nil]", tables)
	}

	_, err = p.FindBatch(context.Background(), []string{htmlNoTable}, htmltable.First())
	if err == nil || !strings.Contains(err.Error(), "all 1 items failed") {
		t.Errorf("FindBatch() error = %v, want all failed", err)
	}
}

func TestProcessorFindBatchCanceled(t *testing.T) {
	t.Parallel()

	p := htmltable.NewWithDefaults()
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.FindBatch(ctx, []string{tableTHTD, tableTD}, htmltable.First())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("FindBatch() error = %v, want context.Canceled", err)
	}
}

func TestProcessorFindBatchFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := make([]string, 3)
	for i, src := range []string{tableTHTD, tableTDTD, htmlTwoTables} {
		paths[i] = filepath.Join(dir, "t"+string(rune('a'+i))+".html")
		if err := os.WriteFile(paths[i], []byte(src), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	p := htmltable.NewWithDefaults()
	defer p.Close()

	tables, err := p.FindBatchFiles(context.Background(), paths, htmltable.First())
	if err != nil {
		t.Fatalf("FindBatchFiles() error = %v", err)
	}
	if tables[1].Len() != 2 {
		t.Errorf("tables[1].Len() = %d, want 2", tables[1].Len())
	}

	paths = append(paths, filepath.Join(dir, "missing.html"))
	_, err = p.FindBatchFiles(context.Background(), paths, htmltable.First())
	if !errors.Is(err, htmltable.ErrFileNotFound) || !strings.Contains(err.Error(), "missing.html") {
		t.Errorf("FindBatchFiles() error = %v, want ErrFileNotFound naming the file", err)
	}
}

func TestProcessorConcurrentFind(t *testing.T) {
	t.Parallel()

	p := htmltable.NewWithDefaults()
	defer p.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q := htmltable.ByID("first")
			if i%2 == 1 {
				q = htmltable.ByHeaders("Weight")
			}
			table, err := p.Find(htmlTwoTables, q)
			if err != nil {
				errs <- err
				return
			}
			for row := range table.Rows() {
				if _, ok := row.Get("Name"); !ok {
					errs <- errors.New("missing Name cell")
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	if got := p.GetStatistics().TotalProcessed; got != 32 {
		t.Errorf("TotalProcessed = %d, want 32", got)
	}
}

func TestProcessorLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := newProcessor(t, func(c *htmltable.Config) { c.Logger = logger })

	if _, err := p.Find(tableTHTD, htmltable.ByID("missing")); err == nil {
		t.Fatal("Find() error = nil, want not found")
	}
	if !strings.Contains(buf.String(), "no table matched") || !strings.Contains(buf.String(), "id=missing") {
		t.Errorf("log output = %q", buf.String())
	}
}

func TestQueryString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query htmltable.Query
		want  string
	}{
		{htmltable.First(), "first"},
		{htmltable.ByID("x"), "id=x"},
		{htmltable.ByHeaders("A", "B"), "headers=[A,B]"},
		{htmltable.ByHeaders(), "first"},
	}
	for _, tt := range tests {
		if got := tt.query.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
