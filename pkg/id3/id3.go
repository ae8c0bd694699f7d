// Package id3 encodes ID3v2.4 tags for MP3 part files: text frames, a
// front-cover APIC frame, and a CHAP/CTOC chapter table. Writing replaces
// the file's existing tag wholesale; the audio stream is never touched.
package id3

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ID3v2 text encoding and picture type bytes.
const (
	encodingUTF8      = 0x03
	pictureFrontCover = 0x03
)

// CTOC flags: top-level entry, ordered children.
const tocFlags = 0x03

// CoverArt is an embedded image with its MIME type.
type CoverArt struct {
	MIME string
	Data []byte
}

// Chapter is one CHAP entry. Times are relative to the start of the file.
type Chapter struct {
	Title string
	Start time.Duration
	End   time.Duration
}

// Tag is the full replacement tag for one file.
type Tag struct {
	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	Narrator    string
	TrackNumber int
	TrackTotal  int
	Cover       CoverArt
	Chapters    []Chapter
}

// Bytes renders the complete ID3v2.4 tag: 10-byte header followed by the
// frames. Empty fields produce no frame.
func (t Tag) Bytes() []byte {
	var frames bytes.Buffer

	writeTextFrame(&frames, "TIT2", t.Title)
	writeTextFrame(&frames, "TPE1", t.Artist)
	writeTextFrame(&frames, "TPE2", t.AlbumArtist)
	writeTextFrame(&frames, "TALB", t.Album)

	if t.TrackNumber > 0 {
		track := strconv.Itoa(t.TrackNumber)
		if t.TrackTotal > 0 {
			track += "/" + strconv.Itoa(t.TrackTotal)
		}
		writeTextFrame(&frames, "TRCK", track)
	}
	if t.Narrator != "" {
		writeTXXXFrame(&frames, "narrator", t.Narrator)
	}
	if len(t.Cover.Data) > 0 {
		writeAPICFrame(&frames, t.Cover)
	}
	if len(t.Chapters) > 0 {
		ids := make([]string, len(t.Chapters))
		for i, ch := range t.Chapters {
			ids[i] = fmt.Sprintf("chp%d", i)
			writeCHAPFrame(&frames, ids[i], ch)
		}
		writeCTOCFrame(&frames, ids)
	}

	out := make([]byte, 0, 10+frames.Len())
	out = append(out, 'I', 'D', '3', 4, 0, 0)
	out = append(out, encodeSynchsafe(uint32(frames.Len()))...)
	return append(out, frames.Bytes()...)
}

// writeFrame emits one frame: 4-byte ID, synchsafe size, two zero flag
// bytes, then the payload.
func writeFrame(buf *bytes.Buffer, id string, data []byte) {
	buf.WriteString(id)
	buf.Write(encodeSynchsafe(uint32(len(data))))
	buf.Write([]byte{0, 0})
	buf.Write(data)
}

// writeTextFrame emits a T*** frame as UTF-8. Empty text is skipped.
func writeTextFrame(buf *bytes.Buffer, id, text string) {
	if text == "" {
		return
	}
	data := make([]byte, 0, 1+len(text))
	data = append(data, encodingUTF8)
	data = append(data, text...)
	writeFrame(buf, id, data)
}

// writeTXXXFrame emits a custom text frame: [encoding][description\0][value].
func writeTXXXFrame(buf *bytes.Buffer, description, value string) {
	data := make([]byte, 0, 2+len(description)+len(value))
	data = append(data, encodingUTF8)
	data = append(data, description...)
	data = append(data, 0)
	data = append(data, value...)
	writeFrame(buf, "TXXX", data)
}

// writeAPICFrame emits the front cover:
// [encoding][mime\0][picture type][description\0][image data].
func writeAPICFrame(buf *bytes.Buffer, cover CoverArt) {
	data := make([]byte, 0, 4+len(cover.MIME)+len(cover.Data))
	data = append(data, encodingUTF8)
	data = append(data, cover.MIME...)
	data = append(data, 0)
	data = append(data, pictureFrontCover)
	data = append(data, 0) // empty description
	data = append(data, cover.Data...)
	writeFrame(buf, "APIC", data)
}

// writeCHAPFrame emits one chapter:
// [element_id\0][start ms][end ms][start offset][end offset][TIT2 subframe].
// Byte offsets are unused per convention (0xFFFFFFFF).
func writeCHAPFrame(buf *bytes.Buffer, elementID string, ch Chapter) {
	title := make([]byte, 0, 1+len(ch.Title))
	title = append(title, encodingUTF8)
	title = append(title, ch.Title...)

	data := make([]byte, 0, 27+len(elementID)+len(title))
	data = append(data, elementID...)
	data = append(data, 0)
	data = binary.BigEndian.AppendUint32(data, clampMillis(ch.Start))
	data = binary.BigEndian.AppendUint32(data, clampMillis(ch.End))
	data = binary.BigEndian.AppendUint32(data, 0xFFFFFFFF)
	data = binary.BigEndian.AppendUint32(data, 0xFFFFFFFF)

	data = append(data, "TIT2"...)
	data = append(data, encodeSynchsafe(uint32(len(title)))...)
	data = append(data, 0, 0)
	data = append(data, title...)

	writeFrame(buf, "CHAP", data)
}

// writeCTOCFrame emits the table of contents listing every chapter element
// in playback order.
func writeCTOCFrame(buf *bytes.Buffer, elementIDs []string) {
	data := []byte("toc")
	data = append(data, 0)
	data = append(data, tocFlags, byte(len(elementIDs)))
	for _, id := range elementIDs {
		data = append(data, id...)
		data = append(data, 0)
	}
	writeFrame(buf, "CTOC", data)
}

// clampMillis converts a duration to the frame's uint32 millisecond field.
func clampMillis(d time.Duration) uint32 {
	ms := d.Milliseconds()
	if ms < 0 {
		return 0
	}
	if ms > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(ms)
}

// encodeSynchsafe packs an integer 7 bits per byte, high bit clear.
func encodeSynchsafe(n uint32) []byte {
	return []byte{
		byte(n>>21) & 0x7F,
		byte(n>>14) & 0x7F,
		byte(n>>7) & 0x7F,
		byte(n) & 0x7F,
	}
}

// decodeSynchsafe is the inverse of encodeSynchsafe.
func decodeSynchsafe(b []byte) uint32 {
	return uint32(b[0]&0x7F)<<21 | uint32(b[1]&0x7F)<<14 | uint32(b[2]&0x7F)<<7 | uint32(b[3]&0x7F)
}
