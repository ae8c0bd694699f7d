// Package domain contains the core entities of the baking pipeline: the
// canonical book model in logical (whole-book) time and the physical part
// files it is split across.
package domain

import (
	"strings"
	"time"
)

// Chapter is a chapter span in logical time, relative to the fully
// concatenated audiobook. Chapters are ordered by Start, non-overlapping,
// and the first chapter starts at zero.
type Chapter struct {
	Title string        `json:"title"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Length returns the chapter's duration.
func (c Chapter) Length() time.Duration {
	return c.End - c.Start
}

// CoverImage holds the cover art bytes and their sniffed MIME type.
type CoverImage struct {
	Data []byte `json:"-"`
	MIME string `json:"mime"`
}

// Book is the canonical model built from the export's metadata document.
// It is read-only input for the rest of the pipeline.
type Book struct {
	Title         string        `json:"title"`
	Authors       []string      `json:"authors"`
	Narrators     []string      `json:"narrators,omitempty"`
	Cover         CoverImage    `json:"cover"`
	Chapters      []Chapter     `json:"chapters"`
	TotalDuration time.Duration `json:"total_duration"`

	// SpineDurations carries the declared duration of each spine entry, in
	// part order. Used as a probe fallback when a part file cannot be parsed.
	SpineDurations []time.Duration `json:"spine_durations"`
}

// Author returns the primary author line for tagging, joining multiple
// authors and falling back to "Unknown" when the export named none.
func (b *Book) Author() string {
	if len(b.Authors) == 0 {
		return "Unknown"
	}
	return strings.Join(b.Authors, ", ")
}

// Narrator returns the narrator line for tagging, or "" when the export
// named none. Unlike Author there is no fallback: the tag is simply
// omitted.
func (b *Book) Narrator() string {
	return strings.Join(b.Narrators, ", ")
}
