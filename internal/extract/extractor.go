// Package extract detects the format of uploaded documents and summarizes
// them: page, paragraph, slide or sheet counts plus a bounded text preview.
//
// Each document is processed independently. A failure in one document is
// recorded in its Result and never affects the others in a batch.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/soochol/docsum/internal/convert"
	"github.com/soochol/docsum/internal/sniff"
)

// Config configures a Pipeline.
type Config struct {
	// Converter runs the external tools used by the legacy strategies
	// (default: convert.New with default settings).
	Converter *convert.Converter
	// MaxFileSize rejects larger inputs without parsing them (default: 50 MiB).
	MaxFileSize int64
	// Workers bounds how many documents of a batch are processed at once (default: 4).
	Workers int
	Logger  *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Converter == nil {
		c.Converter = convert.New(convert.Config{Logger: c.Logger})
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 50 << 20
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
}

// Pipeline sniffs, routes and summarizes documents. It holds no per-document
// state and is safe for concurrent use.
type Pipeline struct {
	converter   *convert.Converter
	maxFileSize int64
	workers     int
	logger      *slog.Logger
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		converter:   cfg.Converter,
		maxFileSize: cfg.MaxFileSize,
		workers:     cfg.Workers,
		logger:      cfg.Logger,
	}
}

// Detect sniffs rs and returns the MIME type and the strategy it routes to.
// The stream position is restored.
func (p *Pipeline) Detect(rs io.ReadSeeker) Detection {
	mime := sniff.Sniff(rs)
	return Detection{MIME: mime, Strategy: Route(mime)}
}

// Process summarizes one document. It never fails: every problem is
// reported in Result.Error alongside whatever fields were gathered.
func (p *Pipeline) Process(ctx context.Context, doc Document) Result {
	if doc.Content == nil {
		return assemble(doc.Name, sniff.Unknown, Fields{}, errors.New("no content"))
	}

	det := p.Detect(doc.Content)
	log := p.logger.With("file", doc.Name, "mime", det.MIME, "strategy", det.Strategy)
	log.Debug("extract: routed document")

	fields, err := p.run(ctx, det.Strategy, doc.Content)
	if err != nil {
		log.Warn("extract: strategy failed", "err", err)
	}
	return assemble(doc.Name, det.MIME, fields, err)
}

// ProcessBatch processes docs concurrently and returns one Result per
// document, in input order.
func (p *Pipeline) ProcessBatch(ctx context.Context, docs []Document) []Result {
	results := make([]Result, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, doc := range docs {
		g.Go(func() error {
			results[i] = p.Process(gctx, doc)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// run reads the content and dispatches it to the strategy. Panics raised by
// a parser are turned into errors.
func (p *Pipeline) run(ctx context.Context, strategy Strategy, rs io.ReadSeeker) (fields Fields, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure: %v", r)
		}
	}()

	if strategy == StrategyUnsupported {
		return Fields{}, nil
	}

	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return Fields{}, fmt.Errorf("seek: %w", err)
	}
	if size > p.maxFileSize {
		rs.Seek(0, io.SeekStart)
		return Fields{}, fmt.Errorf("file too large: %d bytes (max %d)", size, p.maxFileSize)
	}

	data, err := readAll(rs)
	if err != nil {
		return Fields{}, err
	}

	switch strategy {
	case StrategyPDF:
		return extractPDF(data)
	case StrategyDOCX:
		return extractDOCX(data)
	case StrategyDOC:
		return p.extractDOC(ctx, data)
	case StrategyPPTX:
		return extractPPTX(data)
	case StrategyPPT:
		return p.extractPPT(ctx, data)
	case StrategyOLE:
		return p.extractOLE(ctx, data)
	case StrategyXLSX:
		return extractXLSX(data)
	default:
		return Fields{}, nil
	}
}

// assemble merges strategy fields onto the identity of the document. An
// error keeps the partial fields gathered before it. Previews are left as the
// strategy bounded them.
func assemble(name, mime string, fields Fields, err error) Result {
	if err != nil {
		fields.Error = err.Error()
	}
	return Result{FileName: name, MimeType: mime, Fields: fields}
}
