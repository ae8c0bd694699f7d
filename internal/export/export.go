// Package export renders the logical chapter timeline into sidecar files
// for downstream tooling: a human-readable chapter listing, an ffmpeg
// metadata file, and an ffmpeg concat list of the part files.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bookbakeapp/bookbake/internal/domain"
	"github.com/bookbakeapp/bookbake/internal/errors"
)

// Sidecar file names written into the export directory.
const (
	ChaptersFileName   = "chapters.txt"
	FFMetadataFileName = "ffmetadata.txt"
	ConcatFileName     = "concat.txt"
)

// Exporter writes sidecar files derived from the logical timeline.
type Exporter struct {
	logger *slog.Logger
}

// New creates an exporter.
func New(logger *slog.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// WriteFiles renders all sidecar files into dir and returns the paths
// written. A book with no chapters still produces valid, headers-only
// output.
func (e *Exporter) WriteFiles(dir string, book *domain.Book, parts []domain.Part) ([]string, error) {
	concat, err := ConcatList(parts)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "building concat list")
	}

	files := []struct {
		name    string
		content string
	}{
		{ChaptersFileName, ChaptersTxt(book.Chapters)},
		{FFMetadataFileName, FFMetadata(book)},
		{ConcatFileName, concat},
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0o644); err != nil {
			return written, errors.Wrapf(err, errors.CodeInternal, "writing %s", path)
		}
		written = append(written, path)
	}

	e.logger.Info("sidecar files written", "dir", dir, "chapters", len(book.Chapters))
	return written, nil
}

// ChaptersTxt renders one line per chapter: a whole-book timestamp
// followed by the title.
func ChaptersTxt(chapters []domain.Chapter) string {
	var b strings.Builder
	for _, ch := range chapters {
		fmt.Fprintf(&b, "%s %s\n", FormatTimestamp(ch.Start), ch.Title)
	}
	return b.String()
}

// FFMetadata renders an ffmpeg metadata file with global title and artist
// followed by one [CHAPTER] block per chapter in millisecond timebase.
func FFMetadata(book *domain.Book) string {
	var b strings.Builder
	b.WriteString(";FFMETADATA1\n")
	fmt.Fprintf(&b, "title=%s\n", escapeFFMeta(book.Title))
	fmt.Fprintf(&b, "artist=%s\n", escapeFFMeta(book.Author()))
	for _, ch := range book.Chapters {
		b.WriteString("\n[CHAPTER]\n")
		b.WriteString("TIMEBASE=1/1000\n")
		fmt.Fprintf(&b, "START=%d\n", ch.Start.Milliseconds())
		fmt.Fprintf(&b, "END=%d\n", ch.End.Milliseconds())
		fmt.Fprintf(&b, "title=%s\n", escapeFFMeta(ch.Title))
	}
	return b.String()
}

// ConcatList renders an ffmpeg concat demuxer script referencing every
// part file by absolute path, in part order.
func ConcatList(parts []domain.Part) (string, error) {
	var b strings.Builder
	for _, p := range parts {
		abs, err := filepath.Abs(p.Path)
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", p.Path, err)
		}
		// The concat demuxer unescapes \' inside single-quoted strings.
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	return b.String(), nil
}

// FormatTimestamp renders a duration as HH:MM:SS.mmm, rounding to the
// nearest millisecond. Hours widen past two digits for very long books.
func FormatTimestamp(d time.Duration) string {
	ms := d.Milliseconds()
	if d%time.Millisecond >= 500*time.Microsecond {
		ms++
	}
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// SafeTitle makes a book title usable as a file name: characters that are
// unsafe on common filesystems are replaced with a hyphen and runs of
// whitespace collapse to single spaces.
func SafeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteByte('-')
		case r < 0x20:
			// Control characters become spaces and collapse below.
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// escapeFFMeta backslash-escapes the characters the ffmpeg metadata
// format treats specially.
func escapeFFMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '=', ';', '#', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString("\\\n")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
