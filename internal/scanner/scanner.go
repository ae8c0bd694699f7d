// Package scanner discovers the export's part files and probes their actual
// encoded durations.
package scanner

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/maruel/natural"

	"github.com/bookbakeapp/bookbake/internal/domain"
	"github.com/bookbakeapp/bookbake/internal/errors"
)

// Part files follow the export's numeric naming convention.
var partNameRe = regexp.MustCompile(`^Part (\d+)\.([A-Za-z0-9]+)$`)

// Audio extension set for part file classification.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".m4b":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".aac":  true,
	".wav":  true,
}

// Scanner finds part files in an export directory.
type Scanner struct {
	logger *slog.Logger
}

// New creates a scanner.
func New(logger *slog.Logger) *Scanner {
	return &Scanner{logger: logger}
}

// Discover lists the `Part <N>.<ext>` audio files in dir in natural name
// order and checks that their numbers form the contiguous sequence 1..N.
// Durations are not probed here; see Probe.
func (s *Scanner) Discover(dir string) ([]domain.Part, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NotFoundf("cannot list directory %s", dir).WithCause(err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := parsePartName(e.Name()); ok {
			names = append(names, e.Name())
		}
	}

	if len(names) == 0 {
		return nil, errors.NotFound("no part files found to process")
	}

	// Natural order: "Part 2" sorts before "Part 10".
	sort.Sort(natural.StringSlice(names))

	parts := make([]domain.Part, len(names))
	for i, name := range names {
		number, _ := parsePartName(name)
		if number != i+1 {
			return nil, errors.MalformedMetadataf(
				"part files are not a contiguous sequence: expected Part %d, found %q", i+1, name)
		}
		parts[i] = domain.Part{
			Path:  filepath.Join(dir, name),
			Index: number,
		}
	}

	s.logger.Info("parts discovered", "dir", dir, "count", len(parts))
	return parts, nil
}

// parsePartName extracts the part number from a `Part <N>.<ext>` filename.
func parsePartName(name string) (int, bool) {
	m := partNameRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	if !audioExtensions["."+strings.ToLower(m[2])] {
		return 0, false
	}
	number, err := strconv.Atoi(m[1])
	if err != nil || number < 1 {
		return 0, false
	}
	return number, true
}
