// Package timeline maps the logical whole-book chapter list onto the
// physical part sequence, producing part-relative chapter entries.
package timeline

import (
	"fmt"
	"time"

	"github.com/bookbakeapp/bookbake/internal/domain"
	"github.com/bookbakeapp/bookbake/internal/errors"
)

// Options holds the reconciliation policy knobs.
type Options struct {
	// TotalDuration is the declared whole-book duration. When positive, the
	// sum of part durations is checked against it within Tolerance.
	TotalDuration time.Duration

	// Tolerance is the allowed divergence between the declared total and the
	// sum of part durations before a DurationMismatch warning is raised.
	Tolerance time.Duration

	// MinEntryLength is the threshold below which a clipped entry is merged
	// into its neighbor instead of emitted. Rounding drift at part splits
	// otherwise produces near-zero markers that glitch players.
	MinEntryLength time.Duration
}

// Result is the reconciled per-part chapter layout.
type Result struct {
	// Entries holds one ordered entry list per part, in part order.
	// Every part has at least one entry.
	Entries [][]domain.PartChapter

	// Warnings carries non-fatal findings (DurationMismatch). Reconciliation
	// never fails hard: approximate timing still yields useful tags.
	Warnings []*errors.Error
}

// Reconcile clips every chapter span onto the part sequence. Chapters and
// parts are read-only; chapters must be ordered and non-overlapping (the
// loader guarantees this).
func Reconcile(chapters []domain.Chapter, parts []domain.Part, opts Options) Result {
	result := Result{
		Entries: make([][]domain.PartChapter, len(parts)),
	}

	var cursor time.Duration
	for i, part := range parts {
		end := cursor + part.Duration
		entries := clipToSpan(chapters, cursor, end, part.Index)
		entries = mergeDegenerate(entries, opts.MinEntryLength)

		if len(entries) == 0 {
			entries = []domain.PartChapter{syntheticEntry(chapters, cursor, part)}
		}

		result.Entries[i] = entries
		cursor = end
	}

	if opts.TotalDuration > 0 {
		drift := cursor - opts.TotalDuration
		if drift < 0 {
			drift = -drift
		}
		if drift > opts.Tolerance {
			result.Warnings = append(result.Warnings, errors.DurationMismatchf(
				"part durations sum to %s but metadata declares %s (drift %s exceeds tolerance %s)",
				cursor, opts.TotalDuration, drift, opts.Tolerance))
		}
	}

	return result
}

// clipToSpan emits one part-relative entry for every chapter intersecting
// the logical span [start, end). A chapter crossing either edge is clipped
// to the intersection; its title is carried unmodified, so a spanning
// chapter appears under the same name in both parts and players treat the
// second entry as a continuation.
func clipToSpan(chapters []domain.Chapter, start, end time.Duration, partIndex int) []domain.PartChapter {
	var entries []domain.PartChapter
	for _, ch := range chapters {
		if ch.End <= start {
			continue
		}
		if ch.Start >= end {
			break
		}
		entries = append(entries, domain.PartChapter{
			Title:     ch.Title,
			Start:     max(ch.Start, start) - start,
			End:       min(ch.End, end) - start,
			PartIndex: partIndex,
		})
	}
	return entries
}

// mergeDegenerate absorbs entries shorter than minLength into a neighbor.
// A part's sole entry is kept regardless: every part needs a marker.
func mergeDegenerate(entries []domain.PartChapter, minLength time.Duration) []domain.PartChapter {
	if minLength <= 0 || len(entries) < 2 {
		return entries
	}

	merged := make([]domain.PartChapter, 0, len(entries))
	for _, e := range entries {
		if e.End-e.Start >= minLength || len(merged) == 0 {
			merged = append(merged, e)
			continue
		}
		// Extend the previous entry over the degenerate span.
		merged[len(merged)-1].End = e.End
	}

	// A degenerate leading entry ends up first in merged; fold it into its
	// successor instead.
	if len(merged) > 1 && merged[0].End-merged[0].Start < minLength {
		merged[1].Start = merged[0].Start
		merged = merged[1:]
	}

	return merged
}

// syntheticEntry covers a part that intersects no chapter. It spans the
// whole part and borrows the nearest preceding chapter's title so players
// do not show the part as untitled; with no preceding chapter it falls back
// to the part's own name.
func syntheticEntry(chapters []domain.Chapter, cursor time.Duration, part domain.Part) domain.PartChapter {
	title := fmt.Sprintf("Part %d", part.Index)
	for _, ch := range chapters {
		if ch.Start > cursor {
			break
		}
		title = ch.Title
	}
	return domain.PartChapter{
		Title:     title,
		Start:     0,
		End:       part.Duration,
		PartIndex: part.Index,
	}
}
