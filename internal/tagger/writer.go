// Package tagger embeds per-part tags and chapter tables into the part
// files through a pluggable tag-writing capability.
package tagger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/simonhull/audiometa"

	"github.com/bookbakeapp/bookbake/internal/domain"
	"github.com/bookbakeapp/bookbake/pkg/id3"
)

// lockRetryDelay paces advisory-lock acquisition retries.
const lockRetryDelay = 100 * time.Millisecond

// ChapterMark is one chapter table entry in the unit the tag writer
// expects: part-relative offsets.
type ChapterMark struct {
	Title string
	Index int
	Start time.Duration
	End   time.Duration
}

// Tag is the full set of fields written into one part file.
type Tag struct {
	Title      string
	Artist     string
	Album      string
	Narrator   string
	Track      int
	TrackTotal int
	Cover      domain.CoverImage
	Chapters   []ChapterMark
}

// Writer is the tag-writing capability. Implementations must leave the
// target file untouched when the write cannot be completed, and may return
// non-fatal warnings alongside success.
type Writer interface {
	Write(ctx context.Context, path string, tag Tag) (warnings []string, err error)
}

// ID3Writer writes MP3 part files: it inspects the file's current metadata
// with audiometa to surface parse warnings, then replaces the whole tag with
// an ID3v2.4 tag via write-then-atomic-replace.
type ID3Writer struct{}

// NewID3Writer creates the default tag writer.
func NewID3Writer() *ID3Writer {
	return &ID3Writer{}
}

// Write replaces the tag of the part file at path under an advisory lock.
// Problems with the file's existing metadata are returned as informational
// warnings; only the write itself can fail.
func (w *ID3Writer) Write(ctx context.Context, path string, tag Tag) ([]string, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".mp3" {
		return nil, fmt.Errorf("tag writing supports only mp3 part files, got %s", ext)
	}
	// Locking would create a missing file; catch that first.
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("part file: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquiring lock on %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("file %s is locked by another process", path)
	}
	defer fl.Unlock() //nolint:errcheck // lock dies with the descriptor regardless

	warnings := inspect(ctx, path)

	if err := id3.WriteFile(path, buildID3Tag(tag)); err != nil {
		return warnings, err
	}
	return warnings, nil
}

// inspect reads the file's current metadata and reports anything the parser
// flags. An unreadable tag is itself a warning: the replacement tag gets
// written either way.
func inspect(ctx context.Context, path string) []string {
	file, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		return []string{fmt.Sprintf("cannot inspect existing metadata: %v", err)}
	}
	defer file.Close() //nolint:errcheck // Read-only handle

	var warnings []string
	for _, warn := range file.Warnings {
		warnings = append(warnings, warn.Message)
	}
	return warnings
}

// buildID3Tag maps the writer-facing tag onto the ID3 frame set.
func buildID3Tag(tag Tag) id3.Tag {
	out := id3.Tag{
		Title:       tag.Title,
		Artist:      tag.Artist,
		AlbumArtist: tag.Artist,
		Album:       tag.Album,
		Narrator:    tag.Narrator,
		TrackNumber: tag.Track,
		TrackTotal:  tag.TrackTotal,
	}
	if len(tag.Cover.Data) > 0 {
		out.Cover = id3.CoverArt{MIME: tag.Cover.MIME, Data: tag.Cover.Data}
	}
	out.Chapters = make([]id3.Chapter, len(tag.Chapters))
	for i, mark := range tag.Chapters {
		out.Chapters[i] = id3.Chapter{
			Title: mark.Title,
			Start: mark.Start,
			End:   mark.End,
		}
	}
	return out
}
