package tagger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookbakeapp/bookbake/internal/domain"
	"github.com/bookbakeapp/bookbake/internal/errors"
)

// fakeWriter records writes and fails or warns on request.
type fakeWriter struct {
	mu       sync.Mutex
	written  map[string]Tag
	failPath string
	warnPath string
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{written: make(map[string]Tag)}
}

func (w *fakeWriter) Write(ctx context.Context, path string, tag Tag) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if path == w.failPath {
		return nil, fmt.Errorf("simulated write failure")
	}
	w.written[path] = tag
	if path == w.warnPath {
		return []string{"CRC check skipped"}, nil
	}
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func testBook() *domain.Book {
	return &domain.Book{
		Title:   "A Book",
		Authors: []string{"An Author"},
	}
}

func makeParts(n int) ([]domain.Part, [][]domain.PartChapter) {
	parts := make([]domain.Part, n)
	entries := make([][]domain.PartChapter, n)
	for i := range parts {
		parts[i] = domain.Part{
			Path:     fmt.Sprintf("/export/Part %d.mp3", i+1),
			Index:    i + 1,
			Duration: 30 * time.Minute,
		}
		entries[i] = []domain.PartChapter{
			{Title: fmt.Sprintf("Chapter %d", i+1), Start: 0, End: 30 * time.Minute, PartIndex: i + 1},
		}
	}
	return parts, entries
}

func TestEmbedAll_WritesEveryPart(t *testing.T) {
	writer := newFakeWriter()
	parts, entries := makeParts(3)

	report, err := New(writer, testLogger(), Options{Workers: 2}).
		EmbedAll(context.Background(), testBook(), parts, entries)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Failed())
	require.Len(t, writer.written, 3)

	tag := writer.written["/export/Part 2.mp3"]
	assert.Equal(t, "A Book - Part 2", tag.Title)
	assert.Equal(t, "An Author", tag.Artist)
	assert.Equal(t, "A Book", tag.Album)
	assert.Equal(t, 2, tag.Track)
	assert.Equal(t, 3, tag.TrackTotal)
	require.Len(t, tag.Chapters, 1)
	assert.Equal(t, "Chapter 2", tag.Chapters[0].Title)
	assert.Equal(t, 1, tag.Chapters[0].Index)
}

func TestEmbedAll_SinglePartKeepsPlainTitle(t *testing.T) {
	writer := newFakeWriter()
	parts, entries := makeParts(1)

	_, err := New(writer, testLogger(), Options{}).
		EmbedAll(context.Background(), testBook(), parts, entries)
	require.NoError(t, err)

	tag := writer.written["/export/Part 1.mp3"]
	assert.Equal(t, "A Book", tag.Title)
	assert.Equal(t, 1, tag.Track)
	assert.Equal(t, 1, tag.TrackTotal)
}

func TestEmbedAll_OneFailureDoesNotAbortOthers(t *testing.T) {
	writer := newFakeWriter()
	parts, entries := makeParts(5)
	writer.failPath = parts[2].Path

	report, err := New(writer, testLogger(), Options{Workers: 3}).
		EmbedAll(context.Background(), testBook(), parts, entries)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed())
	assert.Len(t, writer.written, 4)

	res := report.Results[2]
	require.NotNil(t, res.Err)
	assert.True(t, errors.Is(res.Err, errors.ErrPartWriteFailure))
	assert.Contains(t, res.Err.Error(), "simulated write failure")

	for i, other := range report.Results {
		if i == 2 {
			continue
		}
		assert.Nil(t, other.Err, "part %d should have succeeded", i+1)
	}
}

func TestEmbedAll_WriterWarningsSurfaceAsTagWarnings(t *testing.T) {
	writer := newFakeWriter()
	parts, entries := makeParts(2)
	writer.warnPath = parts[0].Path

	report, err := New(writer, testLogger(), Options{}).
		EmbedAll(context.Background(), testBook(), parts, entries)
	require.NoError(t, err)

	warnings := report.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, errors.CodeTagWarning, warnings[0].Code)
	assert.Contains(t, warnings[0].Message, "CRC check skipped")
	assert.Equal(t, 0, report.Failed())
}

func TestEmbedAll_EntryCountMismatch(t *testing.T) {
	writer := newFakeWriter()
	parts, entries := makeParts(2)

	_, err := New(writer, testLogger(), Options{}).
		EmbedAll(context.Background(), testBook(), parts, entries[:1])
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInternal))
}

func TestEmbedAll_CancelledContext(t *testing.T) {
	writer := newFakeWriter()
	parts, entries := makeParts(2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(writer, testLogger(), Options{Workers: 1}).
		EmbedAll(ctx, testBook(), parts, entries)
	require.Error(t, err)
}
