package id3

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFile replaces the ID3v2 tag at the start of the file with the given
// tag. This is an atomic operation: the new tag and the untouched audio
// stream are written to a temporary file in the same directory, synced, and
// renamed over the original. On any failure the original file is left as it
// was and the temporary file is removed.
func WriteFile(path string, tag Tag) error {
	src, err := os.Open(path) //#nosec G304 -- Part path comes from a directory listing
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close() //nolint:errcheck // Read-only handle

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	skip, err := existingTagSize(src)
	if err != nil {
		return fmt.Errorf("reading existing tag of %s: %w", path, err)
	}
	if _, err := src.Seek(skip, io.SeekStart); err != nil {
		return fmt.Errorf("seek past existing tag of %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".bookbake-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		// Best effort cleanup: the original file is still intact.
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(tag.Bytes()); err != nil {
		return fmt.Errorf("write tag: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		return fmt.Errorf("copy audio stream: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, info.Mode()); err != nil {
		return fmt.Errorf("preserve file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	success = true
	return nil
}

// existingTagSize returns the byte length of the ID3v2 tag at the start of
// the file, including header and optional footer, or 0 when none is present.
func existingTagSize(r io.ReaderAt) (int64, error) {
	buf := make([]byte, 10)
	if _, err := r.ReadAt(buf, 0); err != nil {
		if errors.Is(err, io.EOF) {
			// Shorter than a tag header: no tag.
			return 0, nil
		}
		return 0, err
	}
	if string(buf[0:3]) != "ID3" {
		return 0, nil
	}
	total := 10 + int64(decodeSynchsafe(buf[6:10]))
	if buf[5]&0x10 != 0 {
		// Footer present.
		total += 10
	}
	return total, nil
}
