package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookbakeapp/bookbake/internal/errors"
	"github.com/bookbakeapp/bookbake/internal/export"
	"github.com/bookbakeapp/bookbake/internal/tagger"
)

var jpegStub = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

// recordingWriter is a tag writer that records calls instead of touching
// the part files.
type recordingWriter struct {
	mu      sync.Mutex
	written map[string]tagger.Tag
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{written: make(map[string]tagger.Tag)}
}

func (w *recordingWriter) Write(ctx context.Context, path string, tag tagger.Tag) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.written[path] = tag
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// writeExport lays out a two-part export. The part files hold no parseable
// audio, so duration probing falls back to the declared spine durations.
func writeExport(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	metaDir := filepath.Join(dir, "metadata")
	require.NoError(t, os.Mkdir(metaDir, 0o755))

	doc := `{
		"title": "The Test Book",
		"creator": [{"name": "Alice Author", "role": "author"}],
		"spine": [
			{"duration": 1800},
			{"duration": 1800}
		],
		"chapters": [
			{"title": "One", "spine": 0, "offset": 0},
			{"title": "Two", "spine": 0, "offset": 1200},
			{"title": "Three", "spine": 1, "offset": 600}
		]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(metaDir, "metadata.json"), []byte(doc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(metaDir, "cover.jpg"), jpegStub, 0o644))
	for i := 1; i <= 2; i++ {
		name := fmt.Sprintf("Part %d.mp3", i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("stub"), 0o644))
	}
	return dir
}

func TestRun_FullBake(t *testing.T) {
	dir := writeExport(t)
	writer := newRecordingWriter()

	var phases []Phase
	report, err := NewWithWriter(testLogger(), writer).Run(context.Background(), dir, Options{
		Workers:           2,
		DurationTolerance: 2 * time.Second,
		MinChapterLength:  time.Second,
		OnProgress: func(p Progress) {
			if len(phases) == 0 || phases[len(phases)-1] != p.Phase {
				phases = append(phases, p.Phase)
			}
		},
	})
	require.NoError(t, err)

	// Probe fallbacks produce warnings, so the run is not a clean success.
	assert.Equal(t, StatusSuccessWithWarnings, report.Status)
	assert.Equal(t, 0, report.FailedParts())
	assert.NotEmpty(t, report.Warnings)

	require.Len(t, report.Parts, 2)
	assert.Equal(t, 30*time.Minute, report.Parts[0].Duration)

	// Chapter "Two" (1200s..2400s) spans the part boundary at 1800s.
	require.Len(t, report.Entries, 2)
	require.Len(t, report.Entries[0], 2)
	require.Len(t, report.Entries[1], 2)
	assert.Equal(t, "Two", report.Entries[0][1].Title)
	assert.Equal(t, "Two", report.Entries[1][0].Title)

	// Both parts were tagged.
	require.Len(t, writer.written, 2)
	tag := writer.written[report.Parts[1].Path]
	assert.Equal(t, "The Test Book - Part 2", tag.Title)
	assert.Equal(t, "Alice Author", tag.Artist)
	assert.Equal(t, 2, tag.TrackTotal)

	// Sidecar files landed next to the parts.
	require.Len(t, report.SidecarPaths, 3)
	for _, name := range []string{export.ChaptersFileName, export.FFMetadataFileName, export.ConcatFileName} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	assert.Equal(t, PhaseComplete, phases[len(phases)-1])
	assert.Contains(t, phases, PhaseTagging)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	dir := writeExport(t)
	writer := newRecordingWriter()

	report, err := NewWithWriter(testLogger(), writer).Run(context.Background(), dir, Options{
		DryRun: true,
	})
	require.NoError(t, err)

	assert.Empty(t, writer.written)
	assert.Empty(t, report.SidecarPaths)
	assert.NotEmpty(t, report.Entries)

	_, statErr := os.Stat(filepath.Join(dir, export.ChaptersFileName))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_SkipFlags(t *testing.T) {
	dir := writeExport(t)
	writer := newRecordingWriter()

	report, err := NewWithWriter(testLogger(), writer).Run(context.Background(), dir, Options{
		SkipTagging: true,
	})
	require.NoError(t, err)
	assert.Empty(t, writer.written)
	assert.Len(t, report.SidecarPaths, 3)

	report, err = NewWithWriter(testLogger(), writer).Run(context.Background(), dir, Options{
		SkipExports: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, writer.written)
	assert.Empty(t, report.SidecarPaths)
}

func TestRun_MalformedMetadataIsFatal(t *testing.T) {
	dir := t.TempDir()

	_, err := NewWithWriter(testLogger(), newRecordingWriter()).
		Run(context.Background(), dir, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMalformedMetadata))
}

func TestRun_SpinePartCountMismatchWarns(t *testing.T) {
	dir := writeExport(t)
	// Remove one part so the spine declares more entries than exist on disk.
	require.NoError(t, os.Remove(filepath.Join(dir, "Part 2.mp3")))

	report, err := NewWithWriter(testLogger(), newRecordingWriter()).
		Run(context.Background(), dir, Options{DryRun: true})
	require.NoError(t, err)

	found := false
	for _, w := range report.Warnings {
		if strings.Contains(w, "2 spine entries") && strings.Contains(w, "1 part files") {
			found = true
		}
	}
	assert.True(t, found, "expected a spine/part count warning, got %v", report.Warnings)
}
