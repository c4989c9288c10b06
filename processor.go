package htmltable

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cybergodev/htmltable/internal"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// Default configuration values.
const (
	DefaultMaxInputSize      = 50 * 1024 * 1024 // 50MB
	DefaultMaxCacheEntries   = 1000             // 1000 entries
	DefaultWorkerPoolSize    = 4                // 4 workers
	DefaultCacheTTL          = time.Hour        // 1 hour
	DefaultMaxDepth          = 500              // 500 levels
	DefaultProcessingTimeout = 30 * time.Second // 30 seconds
)

// Processor finds tables with input limits, caching and batch support.
// It is safe for concurrent use.
type Processor struct {
	config *Config
	logger *slog.Logger
	cache  *internal.Cache[*Table]
	closed atomic.Bool
	stats  struct {
		totalProcessed   atomic.Int64
		cacheHits        atomic.Int64
		cacheMisses      atomic.Int64
		notFound         atomic.Int64
		errorCount       atomic.Int64
		totalProcessTime atomic.Int64
	}
}

// Config holds processor configuration.
type Config struct {
	MaxInputSize      int
	MaxCacheEntries   int
	CacheTTL          time.Duration
	WorkerPoolSize    int
	MaxDepth          int
	ProcessingTimeout time.Duration

	// EnableSanitization drops script, style and noscript elements, event
	// handler attributes and unsafe URIs before tables are built. Tables
	// found are the same as without it.
	EnableSanitization bool

	CellMode CellMode

	// ForcedEncoding overrides charset detection in FindBytes and
	// FindFromFile. Any WHATWG encoding label is accepted.
	ForcedEncoding string

	// Logger receives debug and warning records. Nil discards them.
	Logger *slog.Logger
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		MaxInputSize:       DefaultMaxInputSize,
		MaxCacheEntries:    DefaultMaxCacheEntries,
		CacheTTL:           DefaultCacheTTL,
		WorkerPoolSize:     DefaultWorkerPoolSize,
		MaxDepth:           DefaultMaxDepth,
		ProcessingTimeout:  DefaultProcessingTimeout,
		EnableSanitization: true,
		CellMode:           CellText,
	}
}

func validateConfig(c Config) error {
	switch {
	case c.MaxInputSize <= 0:
		return fmt.Errorf("%w: MaxInputSize must be positive", ErrInvalidConfig)
	case c.MaxCacheEntries < 0:
		return fmt.Errorf("%w: MaxCacheEntries cannot be negative", ErrInvalidConfig)
	case c.CacheTTL < 0:
		return fmt.Errorf("%w: CacheTTL cannot be negative", ErrInvalidConfig)
	case c.WorkerPoolSize <= 0:
		return fmt.Errorf("%w: WorkerPoolSize must be positive", ErrInvalidConfig)
	case c.MaxDepth <= 0:
		return fmt.Errorf("%w: MaxDepth must be positive", ErrInvalidConfig)
	case c.ProcessingTimeout < 0:
		return fmt.Errorf("%w: ProcessingTimeout cannot be negative", ErrInvalidConfig)
	case c.CellMode != CellText && c.CellMode != CellHTML:
		return fmt.Errorf("%w: unknown CellMode %d", ErrInvalidConfig, c.CellMode)
	case c.ForcedEncoding != "" && !internal.KnownCharset(c.ForcedEncoding):
		return fmt.Errorf("%w: %w %q", ErrInvalidConfig, ErrUnknownEncoding, c.ForcedEncoding)
	}
	return nil
}

// Statistics contains processing metrics.
type Statistics struct {
	TotalProcessed     int64
	CacheHits          int64
	CacheMisses        int64
	NotFound           int64
	ErrorCount         int64
	AverageProcessTime time.Duration
}

// New creates a Processor with the given configuration.
func New(config Config) (*Processor, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Processor{
		config: &config,
		logger: logger,
		cache:  internal.NewCache[*Table](config.MaxCacheEntries, config.CacheTTL),
	}, nil
}

// NewWithDefaults creates a Processor with default configuration.
func NewWithDefaults() *Processor {
	p, _ := New(DefaultConfig())
	return p
}

// Find returns the table in htmlContent selected by q, or an error wrapping
// ErrTableNotFound when there is none.
func (p *Processor) Find(htmlContent string, q Query) (*Table, error) {
	if p.closed.Load() {
		return nil, ErrProcessorClosed
	}
	startTime := time.Now()

	if len(htmlContent) > p.config.MaxInputSize {
		p.stats.errorCount.Add(1)
		return nil, fmt.Errorf("%w: size=%d, max=%d", ErrInputTooLarge, len(htmlContent), p.config.MaxInputSize)
	}

	cacheKey := p.generateCacheKey(htmlContent, q)
	if cached, ok := p.cache.Get(cacheKey); ok {
		p.stats.cacheHits.Add(1)
		p.stats.totalProcessed.Add(1)
		p.logger.Debug("table cache hit", slog.String("query", q.String()))
		return cached, nil
	}
	p.stats.cacheMisses.Add(1)

	candidates := 0
	table, err := withTimeout(p.config.ProcessingTimeout, func() (*Table, error) {
		root, err := p.parse(htmlContent)
		if err != nil {
			return nil, err
		}
		t := find(root, q, p.config.CellMode)
		if t == nil {
			candidates = internal.CountElements(root.Nodes[0], "table")
		}
		return t, nil
	})
	if err != nil {
		p.stats.errorCount.Add(1)
		return nil, err
	}

	processingTime := time.Since(startTime)
	p.stats.totalProcessTime.Add(int64(processingTime))
	p.stats.totalProcessed.Add(1)

	if table == nil {
		p.stats.notFound.Add(1)
		p.logger.Debug("no table matched",
			slog.String("query", q.String()),
			slog.Int("tables", candidates),
			slog.Int("size", len(htmlContent)))
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, q)
	}

	p.cache.Set(cacheKey, table)
	p.logger.Debug("table found",
		slog.String("query", q.String()),
		slog.Int("headers", len(table.headers)),
		slog.Int("rows", table.Len()),
		slog.Duration("elapsed", processingTime))
	return table, nil
}

// FindAll returns every table in htmlContent in document order. A document
// without tables yields an empty slice, not an error. Results are not
// cached.
func (p *Processor) FindAll(htmlContent string) ([]*Table, error) {
	if p.closed.Load() {
		return nil, ErrProcessorClosed
	}
	startTime := time.Now()

	if len(htmlContent) > p.config.MaxInputSize {
		p.stats.errorCount.Add(1)
		return nil, fmt.Errorf("%w: size=%d, max=%d", ErrInputTooLarge, len(htmlContent), p.config.MaxInputSize)
	}

	tables, err := withTimeout(p.config.ProcessingTimeout, func() ([]*Table, error) {
		root, err := p.parse(htmlContent)
		if err != nil {
			return nil, err
		}
		return findAll(root, p.config.CellMode), nil
	})
	if err != nil {
		p.stats.errorCount.Add(1)
		return nil, err
	}
	if tables == nil {
		tables = []*Table{}
	}

	p.stats.totalProcessTime.Add(int64(time.Since(startTime)))
	p.stats.totalProcessed.Add(1)
	p.logger.Debug("tables collected", slog.Int("count", len(tables)))
	return tables, nil
}

// FindBytes decodes data to UTF-8 and then behaves like Find. The charset
// comes from Config.ForcedEncoding, a byte order mark, a <meta> charset
// declaration, or content sniffing, in that order.
func (p *Processor) FindBytes(data []byte, q Query) (*Table, error) {
	if p.closed.Load() {
		return nil, ErrProcessorClosed
	}
	text, err := p.decode(data)
	if err != nil {
		return nil, err
	}
	return p.Find(text, q)
}

// FindAllBytes decodes data like FindBytes and then behaves like FindAll.
func (p *Processor) FindAllBytes(data []byte) ([]*Table, error) {
	if p.closed.Load() {
		return nil, ErrProcessorClosed
	}
	text, err := p.decode(data)
	if err != nil {
		return nil, err
	}
	return p.FindAll(text)
}

func (p *Processor) decode(data []byte) (string, error) {
	if len(data) > p.config.MaxInputSize {
		p.stats.errorCount.Add(1)
		return "", fmt.Errorf("%w: size=%d, max=%d", ErrInputTooLarge, len(data), p.config.MaxInputSize)
	}
	text, charset, err := internal.DecodeHTML(data, p.config.ForcedEncoding)
	if err != nil {
		p.stats.errorCount.Add(1)
		if errors.Is(err, internal.ErrUnknownCharset) {
			return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, p.config.ForcedEncoding)
		}
		return "", err
	}
	p.logger.Debug("decoded input", slog.String("charset", charset), slog.Int("bytes", len(data)))
	return text, nil
}

// FindFromFile reads an HTML file and finds the table selected by q.
func (p *Processor) FindFromFile(filePath string, q Query) (*Table, error) {
	if p.closed.Load() {
		return nil, ErrProcessorClosed
	}
	data, err := p.readFile(filePath)
	if err != nil {
		p.stats.errorCount.Add(1)
		return nil, err
	}
	return p.FindBytes(data, q)
}

// FindAllFromFile reads an HTML file and returns every table in it.
func (p *Processor) FindAllFromFile(filePath string) ([]*Table, error) {
	if p.closed.Load() {
		return nil, ErrProcessorClosed
	}
	data, err := p.readFile(filePath)
	if err != nil {
		p.stats.errorCount.Add(1)
		return nil, err
	}
	return p.FindAllBytes(data)
}

func (p *Processor) readFile(filePath string) ([]byte, error) {
	if strings.TrimSpace(filePath) == "" || strings.ContainsRune(filePath, 0) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilePath, filePath)
	}
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
		}
		return nil, fmt.Errorf("stat %q: %w", filePath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidFilePath, filePath)
	}
	if info.Size() > int64(p.config.MaxInputSize) {
		return nil, fmt.Errorf("%w: size=%d, max=%d", ErrInputTooLarge, info.Size(), p.config.MaxInputSize)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read file %q: %w", filePath, err)
	}
	return data, nil
}

// FindBatch runs Find over several documents in parallel, using at most
// WorkerPoolSize goroutines. The result has one entry per input, nil where
// that input failed. The error reports the first failure and how many
// inputs failed.
func (p *Processor) FindBatch(ctx context.Context, htmlContents []string, q Query) ([]*Table, error) {
	return p.batch(ctx, len(htmlContents), nil, func(i int) (*Table, error) {
		return p.Find(htmlContents[i], q)
	})
}

// FindBatchFiles runs FindFromFile over several files in parallel.
func (p *Processor) FindBatchFiles(ctx context.Context, filePaths []string, q Query) ([]*Table, error) {
	return p.batch(ctx, len(filePaths), filePaths, func(i int) (*Table, error) {
		return p.FindFromFile(filePaths[i], q)
	})
}

func (p *Processor) batch(ctx context.Context, n int, names []string, fn func(int) (*Table, error)) ([]*Table, error) {
	if p.closed.Load() {
		return nil, ErrProcessorClosed
	}
	if n == 0 {
		return []*Table{}, nil
	}

	results := make([]*Table, n)
	errs := make([]error, n)
	var g errgroup.Group
	g.SetLimit(p.config.WorkerPoolSize)
	for i := range n {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			results[i], errs[i] = fn(i)
			return nil
		})
	}
	_ = g.Wait()

	tables, err := collectResults(results, errs, names)
	if err != nil {
		p.logger.Warn("batch finished with failures", slog.Int("items", n), slog.Any("error", err))
	}
	return tables, err
}

func collectResults(results []*Table, errs []error, names []string) ([]*Table, error) {
	var firstErr error
	successCount := 0
	failCount := 0

	for i, err := range errs {
		if err != nil {
			failCount++
			if firstErr == nil {
				if names != nil {
					firstErr = fmt.Errorf("%s: %w", names[i], err)
				} else {
					firstErr = fmt.Errorf("item %d: %w", i, err)
				}
			}
		} else {
			successCount++
		}
	}

	switch {
	case successCount == 0:
		return results, fmt.Errorf("all %d items failed: %w", len(results), firstErr)
	case failCount > 0:
		return results, fmt.Errorf("partial failure (%d/%d succeeded): %w", successCount, len(results), firstErr)
	default:
		return results, nil
	}
}

// GetStatistics returns processing statistics.
func (p *Processor) GetStatistics() Statistics {
	totalProcessed := p.stats.totalProcessed.Load()
	totalTime := time.Duration(p.stats.totalProcessTime.Load())
	var avgTime time.Duration
	if totalProcessed > 0 {
		avgTime = totalTime / time.Duration(totalProcessed)
	}
	return Statistics{
		TotalProcessed:     totalProcessed,
		CacheHits:          p.stats.cacheHits.Load(),
		CacheMisses:        p.stats.cacheMisses.Load(),
		NotFound:           p.stats.notFound.Load(),
		ErrorCount:         p.stats.errorCount.Load(),
		AverageProcessTime: avgTime,
	}
}

// ClearCache clears the cache and resets cache statistics.
func (p *Processor) ClearCache() {
	p.cache.Clear()
	p.stats.cacheHits.Store(0)
	p.stats.cacheMisses.Store(0)
}

// Close releases processor resources. Later calls return ErrProcessorClosed.
func (p *Processor) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.cache.Clear()
	return nil
}

// parse builds the searchable tree for htmlContent, enforcing MaxDepth and
// applying sanitization when enabled.
func (p *Processor) parse(htmlContent string) (*goquery.Selection, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if internal.ExceedsDepth(doc, p.config.MaxDepth) {
		return nil, fmt.Errorf("%w: max=%d", ErrMaxDepthExceeded, p.config.MaxDepth)
	}
	if p.config.EnableSanitization {
		internal.Sanitize(doc)
	}
	return goquery.NewDocumentFromNode(doc).Selection, nil
}

// withTimeout runs fn, giving up after timeout when timeout is positive.
// The abandoned goroutine finishes in the background.
func withTimeout[T any](timeout time.Duration, fn func() (T, error)) (T, error) {
	if timeout <= 0 {
		return fn()
	}
	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn()
		done <- outcome{value: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-done:
		return res.value, res.err
	case <-timer.C:
		var zero T
		return zero, ErrProcessingTimeout
	}
}

// generateCacheKey hashes everything that affects the lookup result.
func (p *Processor) generateCacheKey(content string, q Query) string {
	h := sha256.New()
	var flags byte
	if p.config.EnableSanitization {
		flags |= 1 << 0
	}
	flags |= byte(p.config.CellMode) << 1
	h.Write([]byte{flags})
	h.Write([]byte(q.key()))
	h.Write([]byte{0})

	// Full content: sampled keys let distinct documents collide.
	io.WriteString(h, content)
	var buf [sha256.Size]byte
	return hex.EncodeToString(h.Sum(buf[:0]))
}
