package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
)

// Decode reads a PNG or JPEG image.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}
	if img, err = png.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err = jpeg.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("decode image failed: %w", err)
}

// Scale returns img resized so that its longer side is maxSide, keeping the
// aspect ratio. Images already within bounds are returned unchanged.
func Scale(img image.Image, maxSide int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return img
	}
	if w >= h {
		h = max(1, h*maxSide/w)
		w = maxSide
	} else {
		w = max(1, w*maxSide/h)
		h = maxSide
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// WritePNG encodes a thumbnail of data to w.
func WritePNG(w io.Writer, data []byte, maxSide int) error {
	img, err := Decode(data)
	if err != nil {
		return err
	}
	if err := png.Encode(w, Scale(img, maxSide)); err != nil {
		return fmt.Errorf("encode thumbnail failed: %w", err)
	}
	return nil
}
