package tagger

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bookbakeapp/bookbake/internal/domain"
	"github.com/bookbakeapp/bookbake/internal/errors"
)

// Options configures the batch embedder.
type Options struct {
	// Workers bounds concurrent part writes (<=0 means NumCPU).
	Workers int

	// CoverMaxEdge is the longest allowed cover edge in pixels before the
	// cover is downscaled for embedding (<=0 disables scaling).
	CoverMaxEdge int
}

// PartResult is the outcome of embedding one part.
type PartResult struct {
	Part     domain.Part
	Err      *errors.Error
	Warnings []*errors.Error
}

// Report aggregates per-part outcomes of a batch.
type Report struct {
	Results []PartResult
}

// Failed returns the number of parts whose write failed.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Warnings returns all informational warnings across parts.
func (r *Report) Warnings() []*errors.Error {
	var all []*errors.Error
	for _, res := range r.Results {
		all = append(all, res.Warnings...)
	}
	return all
}

// Embedder writes tags and chapter tables into every part file.
type Embedder struct {
	writer Writer
	logger *slog.Logger
	opts   Options

	// locks serializes writes to the same path within the process; the
	// advisory flock covers concurrent invocations of the tool itself.
	locks *SyncMap[string, *sync.Mutex]
}

// New creates a batch embedder backed by the given tag writer.
func New(writer Writer, logger *slog.Logger, opts Options) *Embedder {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Embedder{
		writer: writer,
		logger: logger,
		opts:   opts,
		locks:  NewSyncMap[string, *sync.Mutex](),
	}
}

// EmbedAll writes tags into all parts concurrently. A part failure is
// recorded in the report and never aborts the remaining parts; only context
// cancellation stops the batch early. entries must hold one chapter entry
// list per part, in part order.
func (e *Embedder) EmbedAll(ctx context.Context, book *domain.Book, parts []domain.Part, entries [][]domain.PartChapter) (*Report, error) {
	if len(entries) != len(parts) {
		return nil, errors.Internal(fmt.Sprintf(
			"entry lists (%d) do not match parts (%d)", len(entries), len(parts)))
	}

	cover := FitCover(book.Cover, e.opts.CoverMaxEdge)

	report := &Report{Results: make([]PartResult, len(parts))}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	for i := range parts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result := PartResult{Part: parts[i]}
			tag := e.buildTag(book, parts[i], len(parts), cover, entries[i])

			warnings, err := e.embedOne(ctx, parts[i].Path, tag)
			for _, w := range warnings {
				result.Warnings = append(result.Warnings, errors.TagWarning(
					fmt.Sprintf("%s: %s", parts[i].Path, w)))
			}
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				result.Err = errors.PartWriteFailuref(
					"writing tags to %s", parts[i].Path).WithCause(err)
				e.logger.Error("part write failed",
					"path", parts[i].Path,
					"error", err,
				)
			}
			report.Results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "embedding aborted")
	}
	return report, nil
}

// embedOne writes one part under its per-path mutex. Cross-process
// exclusion is the writer's concern.
func (e *Embedder) embedOne(ctx context.Context, path string, tag Tag) ([]string, error) {
	mu, _ := e.locks.LoadOrStore(path, &sync.Mutex{})
	mu.Lock()
	defer mu.Unlock()

	return e.writer.Write(ctx, path, tag)
}

// buildTag assembles the per-part tag fields. With a single part the track
// title is the book title; with several it carries the part number so
// players list the files distinguishably.
func (e *Embedder) buildTag(book *domain.Book, part domain.Part, total int, cover domain.CoverImage, entries []domain.PartChapter) Tag {
	title := book.Title
	if total > 1 {
		title = fmt.Sprintf("%s - Part %d", book.Title, part.Index)
	}

	marks := make([]ChapterMark, len(entries))
	for i, entry := range entries {
		marks[i] = ChapterMark{
			Title: entry.Title,
			Index: i + 1,
			Start: entry.Start,
			End:   entry.End,
		}
	}

	return Tag{
		Title:      title,
		Artist:     book.Author(),
		Album:      book.Title,
		Narrator:   book.Narrator(),
		Track:      part.Index,
		TrackTotal: total,
		Cover:      cover,
		Chapters:   marks,
	}
}
