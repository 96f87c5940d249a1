// Package picture normalizes harvested image attachments: EXIF-correct
// orientation, a fixed-size resize, and re-encoding in the source format.
package picture

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
)

// Normalizer resizes every image to exactly Width x Height. The resize is
// deliberately non-aspect-preserving: downstream consumers want uniform
// dimensions, not thumbnails.
type Normalizer struct {
	Width  int
	Height int
}

// Normalize decodes, orients, resizes, and re-encodes one image payload.
// A payload that does not decode is the caller's cue to drop the attachment.
func (n Normalizer) Normalize(data []byte) ([]byte, error) {
	format := detectFormat(data)

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if tag, ok := orientation(data); ok {
		img = rotateForOrientation(img, tag)
	}

	img = imaging.Resize(img, n.Width, n.Height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// detectFormat sniffs the source format from the payload bytes. When the
// sniff is inconclusive the original pipeline fell back to JPEG, and that
// behavior is kept: a payload that later decodes anyway gets re-encoded as
// JPEG, which is lossy for formats with transparency.
func detectFormat(data []byte) imaging.Format {
	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return imaging.JPEG
	}
	switch name {
	case "png":
		return imaging.PNG
	case "gif":
		return imaging.GIF
	case "bmp":
		return imaging.BMP
	default:
		return imaging.JPEG
	}
}

// orientation reads the EXIF orientation tag. The second return value is
// false whenever there is no usable EXIF data: no rotation is applied then.
func orientation(data []byte) (int, bool) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, false
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0, false
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0, false
	}
	return v, true
}

// rotateForOrientation undoes the camera rotation recorded in the EXIF tag.
// Tags 2/4/5/7 (mirrored variants) are rare in mail traffic and are left
// untouched, matching the original pipeline. Rotation expands the canvas.
func rotateForOrientation(img image.Image, tag int) image.Image {
	switch tag {
	case 3:
		return imaging.Rotate180(img)
	case 6:
		return imaging.Rotate270(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
