package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const (
	targetWidth     = 800
	primaryQuality  = 85
	fallbackQuality = 60
	sizeCeiling     = 700 * 1024 // bytes
)

// ErrBadImage reports input bytes that can't be decoded as an image.
var ErrBadImage = errors.New("cannot decode thumbnail image")

// Normalize decodes the raw bytes, scales to the standard thumbnail width
// preserving aspect ratio, and returns JPEG bytes. If the primary-quality
// encode comes out over the size ceiling it re-encodes exactly once at a
// lower quality and returns that result either way; staying under the
// ceiling is best effort, not a guarantee.
func Normalize(raw []byte) ([]byte, error) {
	return normalize(raw, sizeCeiling)
}

func normalize(raw []byte, ceiling int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}

	// height 0 = preserve aspect ratio
	resized := imaging.Resize(img, targetWidth, 0, imaging.Lanczos)

	out, err := encodeJPEG(resized, primaryQuality)
	if err != nil {
		return nil, err
	}
	if len(out) <= ceiling {
		return out, nil
	}
	log.Debugf("thumbnail is %d bytes at quality %d, re-encoding at quality %d",
		len(out), primaryQuality, fallbackQuality)
	return encodeJPEG(resized, fallbackQuality)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	if err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
