package tagger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookbakeapp/bookbake/internal/domain"
)

func TestID3Writer_RejectsNonMP3(t *testing.T) {
	_, err := NewID3Writer().Write(context.Background(), "/export/Part 1.m4b", Tag{Title: "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only mp3")
}

func TestID3Writer_WritesReplacementTag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Part 1.mp3")
	audio := []byte("\xFF\xFBnot a real mpeg stream")
	require.NoError(t, os.WriteFile(path, audio, 0o644))

	_, err := NewID3Writer().Write(context.Background(), path, Tag{
		Title:      "Book - Part 1",
		Artist:     "A. Author",
		Album:      "Book",
		Narrator:   "N. Narrator",
		Track:      1,
		TrackTotal: 1,
		Cover:      domain.CoverImage{MIME: "image/jpeg", Data: []byte{0xFF, 0xD8}},
		Chapters: []ChapterMark{
			{Title: "One", Index: 1, Start: 0, End: 30 * time.Minute},
		},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("ID3")), "tag must lead the file")
	assert.True(t, bytes.HasSuffix(data, audio), "audio stream must be preserved")
	assert.Contains(t, string(data), "Book - Part 1")
	assert.Contains(t, string(data), "narrator")
}

func TestID3Writer_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.mp3")
	_, err := NewID3Writer().Write(context.Background(), path, Tag{Title: "X"})
	assert.Error(t, err)
}
