// Package loader parses the export's sidecar metadata document and cover
// image into the canonical book model.
package loader

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"

	"github.com/bookbakeapp/bookbake/internal/domain"
	"github.com/bookbakeapp/bookbake/internal/errors"
	"github.com/bookbakeapp/bookbake/internal/validation"
)

const (
	metadataDirName  = "metadata"
	metadataFileName = "metadata.json"
	coverPrefix      = "cover"

	roleAuthor   = "author"
	roleNarrator = "narrator"
	roleBoth     = "author and narrator"
)

// Loader reads and validates the metadata document of one audiobook export.
type Loader struct {
	validator *validation.Validator
	logger    *slog.Logger
}

// New creates a loader.
func New(logger *slog.Logger) *Loader {
	return &Loader{
		validator: validation.New(),
		logger:    logger,
	}
}

// Load reads <dir>/metadata/metadata.json and the cover image next to it
// and builds the canonical book model. Returned warnings describe explicit
// fallbacks (placeholder chapter titles, missing author). Any structural
// problem is a MalformedMetadata error: nothing downstream may run.
func (l *Loader) Load(dir string) (*domain.Book, []string, error) {
	metaDir := filepath.Join(dir, metadataDirName)
	if _, err := os.Stat(metaDir); err != nil {
		return nil, nil, errors.MalformedMetadata(
			"working directory must contain a metadata directory (use the website's export button)").WithCause(err)
	}

	doc, err := l.readDocument(filepath.Join(metaDir, metadataFileName))
	if err != nil {
		return nil, nil, err
	}

	cover, err := loadCover(metaDir)
	if err != nil {
		return nil, nil, err
	}

	book := &domain.Book{
		Title: doc.Title,
		Cover: *cover,
	}

	var warnings []string

	book.Authors, book.Narrators = contributors(doc.Creator)
	if len(book.Authors) == 0 {
		warnings = append(warnings, "metadata names no author; tagging will use \"Unknown\"")
		l.logger.Warn("metadata names no author")
	}

	book.SpineDurations = spineDurations(doc.Spine)
	book.TotalDuration = sumSpine(doc.Spine)

	chapters, chapterWarnings, err := buildChapters(doc)
	if err != nil {
		return nil, nil, err
	}
	book.Chapters = chapters
	warnings = append(warnings, chapterWarnings...)
	for _, w := range chapterWarnings {
		l.logger.Warn(w)
	}

	l.logger.Info("metadata loaded",
		"title", book.Title,
		"chapters", len(book.Chapters),
		"parts", len(doc.Spine),
		"duration", book.TotalDuration,
	)

	return book, warnings, nil
}

// readDocument decodes and structurally validates metadata.json.
func (l *Loader) readDocument(path string) (*document, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- Export directory path comes from the user
	if err != nil {
		return nil, errors.MalformedMetadataf("cannot read %s", metadataFileName).WithCause(err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.MalformedMetadataf("cannot parse %s", metadataFileName).WithCause(err)
	}

	if err := l.validator.Validate(&doc); err != nil {
		return nil, errors.MalformedMetadata("invalid metadata document").WithCause(err)
	}

	for i, ch := range doc.Chapters {
		if ch.Spine >= len(doc.Spine) {
			return nil, errors.MalformedMetadataf(
				"chapter %d (%q) references spine %d, but the spine has %d entries",
				i, ch.Title, ch.Spine, len(doc.Spine))
		}
	}

	return &doc, nil
}

// contributors splits the creator list into author and narrator names,
// preserving document order. The combined "author and narrator" role fills
// whichever list the explicit roles left empty.
func contributors(creators []creatorDoc) (authors, narrators []string) {
	var both []string
	for _, c := range creators {
		if c.Name == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(c.Role)) {
		case roleBoth:
			both = append(both, c.Name)
		case roleNarrator:
			narrators = append(narrators, c.Name)
		case roleAuthor:
			authors = append(authors, c.Name)
		default:
			// Roles sometimes arrive decorated ("primary author").
			role := strings.ToLower(c.Role)
			if strings.Contains(role, roleNarrator) {
				narrators = append(narrators, c.Name)
			} else if strings.Contains(role, roleAuthor) {
				authors = append(authors, c.Name)
			}
		}
	}
	if len(authors) == 0 {
		authors = append(authors, both...)
	}
	if len(narrators) == 0 {
		narrators = append(narrators, both...)
	}
	return authors, narrators
}

// spineDurations converts the declared per-entry durations.
func spineDurations(spine []spineDoc) []time.Duration {
	out := make([]time.Duration, len(spine))
	for i, s := range spine {
		out[i] = secondsToDuration(s.Duration)
	}
	return out
}

// sumSpine returns the declared total duration: the sum of spine durations.
func sumSpine(spine []spineDoc) time.Duration {
	var seconds float64
	for _, s := range spine {
		seconds += s.Duration
	}
	return secondsToDuration(seconds)
}

// buildChapters converts spine-relative chapter starts into logical-time
// chapter spans. Each chapter ends where the next begins; the last ends at
// the declared total duration.
func buildChapters(doc *document) ([]domain.Chapter, []string, error) {
	if len(doc.Chapters) == 0 {
		return nil, nil, nil
	}

	// Cumulative logical offset of each spine entry.
	spineOffsets := make([]float64, len(doc.Spine))
	var cum float64
	for i, s := range doc.Spine {
		spineOffsets[i] = cum
		cum += s.Duration
	}

	var warnings []string
	chapters := make([]domain.Chapter, len(doc.Chapters))
	for i, ch := range doc.Chapters {
		title := strings.TrimSpace(ch.Title)
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
			warnings = append(warnings, fmt.Sprintf("chapter %d has no title, using %q", i+1, title))
		}
		chapters[i] = domain.Chapter{
			Title: title,
			Start: secondsToDuration(ch.Offset + spineOffsets[ch.Spine]),
		}
	}

	if chapters[0].Start != 0 {
		warnings = append(warnings, fmt.Sprintf(
			"first chapter starts at %s, not at the beginning of the book", chapters[0].Start))
	}

	total := secondsToDuration(cum)
	for i := range chapters {
		if i+1 < len(chapters) {
			chapters[i].End = chapters[i+1].Start
		} else {
			chapters[i].End = total
		}
		if chapters[i].End <= chapters[i].Start {
			prev := doc.Chapters[i]
			return nil, nil, errors.MalformedMetadataf(
				"overlapping chapter times: chapter %q (spine %d, offset %.3fs) is not before the next chapter",
				prev.Title, prev.Spine, prev.Offset)
		}
	}

	return chapters, warnings, nil
}

// loadCover finds the single cover.* file in the metadata directory, reads
// it, and sniffs its MIME type from content.
func loadCover(metaDir string) (*domain.CoverImage, error) {
	entries, err := os.ReadDir(metaDir)
	if err != nil {
		return nil, errors.MalformedMetadata("cannot list metadata directory").WithCause(err)
	}

	var coverNames []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), coverPrefix) {
			coverNames = append(coverNames, e.Name())
		}
	}
	if len(coverNames) != 1 {
		return nil, errors.MalformedMetadataf("expected exactly one cover image, found %d", len(coverNames))
	}

	data, err := os.ReadFile(filepath.Join(metaDir, coverNames[0])) //#nosec G304 -- Name comes from a directory listing
	if err != nil {
		return nil, errors.MalformedMetadataf("cannot read cover image %s", coverNames[0]).WithCause(err)
	}

	kind, err := filetype.Match(data)
	if err != nil || !filetype.IsImage(data) {
		return nil, errors.MalformedMetadataf("cover file %s is not a recognized image", coverNames[0])
	}

	return &domain.CoverImage{Data: data, MIME: kind.MIME.Value}, nil
}

// secondsToDuration converts a fractional seconds value into a Duration,
// rounding to the nearest millisecond so exporter timestamps stay stable.
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds*1000)) * time.Millisecond
}
