package storage

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
)

var ErrUnsupportedImage = errors.New("only JPEG and PNG images are accepted")

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// PrepareImage checks the magic bytes, shrinks the image to fit within
// maxDimension on both sides, and re-encodes it as JPEG.
func PrepareImage(data []byte, maxDimension int) ([]byte, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown || !allowedImageTypes[kind.MIME.Value] {
		return nil, ErrUnsupportedImage
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	bounds := img.Bounds()
	if maxDimension > 0 && (bounds.Dx() > maxDimension || bounds.Dy() > maxDimension) {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
