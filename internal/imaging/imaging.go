// Package imaging holds the raster plumbing around the inpainting pipeline:
// decoding uploads, fixed-size scaling, mask construction and JPEG/base64
// encoding of results.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

var (
	// ErrEmptyImage indicates a zero-length upload.
	ErrEmptyImage = errors.New("imaging: empty image data")
	// ErrInvalidImage indicates bytes that are not a recognized raster format.
	ErrInvalidImage = errors.New("imaging: invalid image data")
)

// jpegQuality applies to all encoded responses.
const jpegQuality = 90

// Decode parses image bytes in any registered format (PNG, JPEG, GIF).
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// Resize scales img to exactly width x height using CatmullRom interpolation.
// Aspect ratio is not preserved; the model requires a fixed square input.
func Resize(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// EncodeJPEG serializes img as a JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeBase64JPEG serializes img as a base64-encoded JPEG string.
func EncodeBase64JPEG(img image.Image) (string, error) {
	b, err := EncodeJPEG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeBase64 decodes a base64 payload, tolerating a leading data URI
// prefix ("data:image/png;base64,...") as sent by browser-side callers.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	if s == "" {
		return nil, ErrEmptyImage
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return b, nil
}
