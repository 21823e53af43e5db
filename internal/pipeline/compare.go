package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/payrecon/internal/config"
	"github.com/dgallion1/payrecon/internal/pages"
	"github.com/dgallion1/payrecon/internal/reconcile"
	"github.com/dgallion1/payrecon/internal/schema"
	"golang.org/x/sync/errgroup"
)

// Comparer runs one comparison end to end: page extraction of both files,
// then reconciliation. It is shared by the synchronous HTTP handler, the
// job workers and the CLI.
type Comparer struct {
	pages  *pages.Extractor
	engine *reconcile.Engine
	stats  *Stats
	log    *slog.Logger
}

func NewComparer(px *pages.Extractor, engine *reconcile.Engine, stats *Stats, log *slog.Logger) *Comparer {
	if stats == nil {
		stats = NewStats(time.Hour)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Comparer{pages: px, engine: engine, stats: stats, log: log}
}

// Stats returns the latency windows fed by this comparer.
func (c *Comparer) Stats() *Stats {
	return c.stats
}

// Engine returns the reconciliation engine.
func (c *Comparer) Engine() *reconcile.Engine {
	return c.engine
}

// Outcome is the result of a comparison.
type Outcome struct {
	DocA pages.Document
	DocB pages.Document
	Rows []reconcile.Row
}

// ExtractBoth reads the pages of both files concurrently. The first
// failure cancels the other side.
func (c *Comparer) ExtractBoth(ctx context.Context, a, b Upload, mode pages.Mode) (pages.Document, pages.Document, error) {
	var docA, docB pages.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc, err := c.extract(gctx, a, mode)
		if err != nil {
			return fmt.Errorf("source a (%s): %w", a.Name, err)
		}
		docA = doc
		return nil
	})
	g.Go(func() error {
		doc, err := c.extract(gctx, b, mode)
		if err != nil {
			return fmt.Errorf("source b (%s): %w", b.Name, err)
		}
		docB = doc
		return nil
	})
	if err := g.Wait(); err != nil {
		return pages.Document{}, pages.Document{}, err
	}
	return docA, docB, nil
}

func (c *Comparer) extract(ctx context.Context, u Upload, mode pages.Mode) (pages.Document, error) {
	start := time.Now()
	doc, err := c.pages.Extract(ctx, u.Data, u.Name, mode)
	if err != nil {
		return doc, err
	}
	elapsed := time.Since(start)
	c.stats.Extract.Record(elapsed, len(doc.Pages), doc.Method)
	c.log.Info("pages extracted",
		"filename", u.Name,
		"method", doc.Method,
		"pages", len(doc.Pages),
		"warnings", len(doc.Warnings),
		"duration_ms", elapsed.Milliseconds(),
	)
	return doc, nil
}

// Reconcile pairs and compares the extracted documents.
func (c *Comparer) Reconcile(docA, docB pages.Document) ([]reconcile.Row, error) {
	start := time.Now()
	rows, err := c.engine.Reconcile(docA.Pages, docB.Pages)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	c.stats.Reconcile.Record(time.Since(start), len(rows), "")
	return rows, nil
}

// Compare extracts both files and reconciles them.
func (c *Comparer) Compare(ctx context.Context, a, b Upload, mode pages.Mode) (Outcome, error) {
	start := time.Now()
	docA, docB, err := c.ExtractBoth(ctx, a, b, mode)
	if err != nil {
		return Outcome{}, err
	}
	rows, err := c.Reconcile(docA, docB)
	if err != nil {
		return Outcome{}, err
	}
	c.stats.Total.Record(time.Since(start), len(docA.Pages)+len(docB.Pages), "")

	s := reconcile.Summarize(rows)
	c.log.Info("comparison complete",
		"rows", len(rows),
		"paired", s.Paired,
		"blocking", s.BlockingIssues,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Outcome{DocA: docA, DocB: docB, Rows: rows}, nil
}

// NewComparerFromConfig wires the field schema, page extractor and
// reconciliation engine described by cfg.
func NewComparerFromConfig(cfg config.Config, log *slog.Logger) (*Comparer, error) {
	s := schema.Default()
	if cfg.SchemaFile != "" {
		var err error
		if s, err = schema.Load(cfg.SchemaFile); err != nil {
			return nil, err
		}
		log.Info("field schema loaded", "file", cfg.SchemaFile, "fields", len(s.Fields()))
	}
	px := pages.New(pages.Config{
		FallbackPdftotext: cfg.PDFFallbackPdftotext,
		PdftotextBin:      cfg.PdftotextBin,
		PdftoppmBin:       cfg.PdftoppmBin,
		TesseractBin:      cfg.TesseractBin,
		Lang:              cfg.OCRLang,
		DPI:               cfg.OCRDPI,
		MaxPages:          cfg.MaxPages,
		OCRTimeout:        cfg.OCRTimeout,
	}, pages.WithLogger(log))
	return NewComparer(px, reconcile.New(s), NewStats(cfg.StatsWindow), log), nil
}
