// Package pipeline orchestrates a baking run: load metadata, discover and
// probe parts, reconcile the timeline, then write sidecar files and embed
// tags.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookbakeapp/bookbake/internal/domain"
	"github.com/bookbakeapp/bookbake/internal/export"
	"github.com/bookbakeapp/bookbake/internal/loader"
	"github.com/bookbakeapp/bookbake/internal/scanner"
	"github.com/bookbakeapp/bookbake/internal/tagger"
	"github.com/bookbakeapp/bookbake/internal/timeline"
)

// Status is the overall outcome of a run.
type Status string

// Run outcomes, from best to worst.
const (
	StatusSuccess             Status = "success"
	StatusSuccessWithWarnings Status = "success_with_warnings"
	StatusCompletedWithErrors Status = "completed_with_errors"
)

// Options configures one baking run.
type Options struct {
	// Workers bounds concurrent probing and tagging (<=0 means NumCPU).
	Workers int

	// DurationTolerance is the allowed drift between declared and probed
	// total duration before a warning is raised.
	DurationTolerance time.Duration

	// MinChapterLength is the threshold below which clipped chapter entries
	// are merged into a neighbor.
	MinChapterLength time.Duration

	// CoverMaxEdge is the longest allowed cover edge in pixels before the
	// embedded cover is downscaled (<=0 disables scaling).
	CoverMaxEdge int

	// SkipTagging leaves the part files untouched.
	SkipTagging bool

	// SkipExports suppresses the sidecar files.
	SkipExports bool

	// DryRun computes the full reconciled layout but writes nothing.
	DryRun bool

	// OnProgress, when set, receives progress snapshots.
	OnProgress func(Progress)
}

// Report is the outcome of a run.
type Report struct {
	Book    *domain.Book
	Parts   []domain.Part
	Entries [][]domain.PartChapter

	// SidecarPaths lists the export files written.
	SidecarPaths []string

	// PartResults holds the per-part tagging outcomes, in part order.
	// Empty when tagging was skipped.
	PartResults []tagger.PartResult

	// Warnings collects all non-fatal findings across phases.
	Warnings []string

	Status Status
}

// FailedParts returns the number of parts whose tag write failed.
func (r *Report) FailedParts() int {
	n := 0
	for _, res := range r.PartResults {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Pipeline wires the baking components together.
type Pipeline struct {
	loader   *loader.Loader
	scanner  *scanner.Scanner
	exporter *export.Exporter
	writer   tagger.Writer
	logger   *slog.Logger
}

// New creates a pipeline with the default ID3 tag writer.
func New(logger *slog.Logger) *Pipeline {
	return NewWithWriter(logger, tagger.NewID3Writer())
}

// NewWithWriter creates a pipeline with a custom tag writer.
func NewWithWriter(logger *slog.Logger, writer tagger.Writer) *Pipeline {
	return &Pipeline{
		loader:   loader.New(logger),
		scanner:  scanner.New(logger),
		exporter: export.New(logger),
		writer:   writer,
		logger:   logger,
	}
}

// Run bakes the export in dir. It returns an error only for fatal
// conditions (malformed metadata, missing parts, cancellation); per-part
// write failures and warnings are carried in the report instead.
func (p *Pipeline) Run(ctx context.Context, dir string, opts Options) (*Report, error) {
	tracker := NewProgressTracker(opts.OnProgress)
	report := &Report{}

	tracker.SetPhase(PhaseLoading)
	book, loadWarnings, err := p.loader.Load(dir)
	if err != nil {
		return nil, err
	}
	report.Book = book
	report.Warnings = append(report.Warnings, loadWarnings...)

	tracker.SetPhase(PhaseScanning)
	parts, err := p.scanner.Discover(dir)
	if err != nil {
		return nil, err
	}
	tracker.SetTotal(len(parts))

	if len(book.SpineDurations) != len(parts) {
		w := fmt.Sprintf("metadata declares %d spine entries but %d part files were found",
			len(book.SpineDurations), len(parts))
		report.Warnings = append(report.Warnings, w)
		p.logger.Warn("spine and part counts differ",
			"spine", len(book.SpineDurations),
			"parts", len(parts),
		)
	}

	parts, probeWarnings, err := p.scanner.Probe(ctx, parts, scanner.ProbeOptions{
		Declared: book.SpineDurations,
		Workers:  opts.Workers,
	})
	if err != nil {
		return nil, err
	}
	report.Parts = parts
	report.Warnings = append(report.Warnings, probeWarnings...)

	tracker.SetPhase(PhaseReconciling)
	reconciled := timeline.Reconcile(book.Chapters, parts, timeline.Options{
		TotalDuration:  book.TotalDuration,
		Tolerance:      opts.DurationTolerance,
		MinEntryLength: opts.MinChapterLength,
	})
	report.Entries = reconciled.Entries
	for _, w := range reconciled.Warnings {
		report.Warnings = append(report.Warnings, w.Message)
		p.logger.Warn(w.Message, "code", w.Code)
	}

	if opts.DryRun {
		report.Status = statusFrom(report)
		tracker.SetPhase(PhaseComplete)
		return report, nil
	}

	if !opts.SkipExports {
		tracker.SetPhase(PhaseExporting)
		written, err := p.exporter.WriteFiles(dir, book, parts)
		if err != nil {
			return nil, err
		}
		report.SidecarPaths = written
	}

	if !opts.SkipTagging {
		tracker.SetPhase(PhaseTagging)
		tracker.SetTotal(len(parts))
		embedder := tagger.New(p.writer, p.logger, tagger.Options{
			Workers:      opts.Workers,
			CoverMaxEdge: opts.CoverMaxEdge,
		})
		tagReport, err := embedder.EmbedAll(ctx, book, parts, reconciled.Entries)
		if err != nil {
			return nil, err
		}
		report.PartResults = tagReport.Results
		for _, w := range tagReport.Warnings() {
			report.Warnings = append(report.Warnings, w.Message)
		}
	}

	report.Status = statusFrom(report)
	tracker.SetPhase(PhaseComplete)

	p.logger.Info("bake finished",
		"status", report.Status,
		"parts", len(report.Parts),
		"failed", report.FailedParts(),
		"warnings", len(report.Warnings),
	)
	return report, nil
}

// statusFrom derives the overall status from the collected outcomes.
func statusFrom(r *Report) Status {
	switch {
	case r.FailedParts() > 0:
		return StatusCompletedWithErrors
	case len(r.Warnings) > 0:
		return StatusSuccessWithWarnings
	default:
		return StatusSuccess
	}
}
