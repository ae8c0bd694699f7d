package tagger

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/bookbakeapp/bookbake/internal/domain"
)

const coverJPEGQuality = 85

// FitCover downscales a cover whose longest edge exceeds maxEdge,
// re-encoding as JPEG. Covers already within bounds, and covers that fail
// to decode, pass through untouched; an oversized embedded image is a
// cosmetic problem, a dropped cover is not. maxEdge <= 0 disables scaling.
func FitCover(cover domain.CoverImage, maxEdge int) domain.CoverImage {
	if maxEdge <= 0 || len(cover.Data) == 0 {
		return cover
	}

	src, _, err := image.Decode(bytes.NewReader(cover.Data))
	if err != nil {
		return cover
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := max(w, h)
	if longest <= maxEdge {
		return cover
	}

	scale := float64(maxEdge) / float64(longest)
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: coverJPEGQuality}); err != nil {
		return cover
	}

	return domain.CoverImage{
		Data: buf.Bytes(),
		MIME: "image/jpeg",
	}
}
