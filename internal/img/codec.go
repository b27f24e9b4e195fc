package img

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/tendant/drawing-thumbnailer/internal/failure"
)

// DefaultQuality is the JPEG quality previews are encoded at.
const DefaultQuality = 80

// Decode turns compressed raster bytes into a pixel buffer, applying EXIF
// orientation.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, failure.Errorf(failure.DecodeError, "decode image", "empty input")
	}
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, failure.New(failure.DecodeError, "decode image", err)
	}
	return src, nil
}

// Encode compresses a pixel buffer as JPEG. Transparent regions are
// flattened onto white, since JPEG has no alpha.
func Encode(src image.Image, quality int) ([]byte, error) {
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, failure.Errorf(failure.EncodeError, "encode jpeg", "empty raster %v", b)
	}
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}

	flat := imaging.Overlay(imaging.New(b.Dx(), b.Dy(), color.White), src, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, failure.New(failure.EncodeError, "encode jpeg", err)
	}
	return buf.Bytes(), nil
}
