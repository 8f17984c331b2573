// Package imageproc turns client-submitted images into a bounded JPEG suitable for the
// reasoning engine.
package imageproc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
)

const (
	// DefaultMaxEdge bounds the longer side of a normalized image.
	DefaultMaxEdge = 1024
	// DefaultQuality is the JPEG quality of normalized output.
	DefaultQuality = 85
	// DefaultMaxPixels rejects decompression bombs before the full decode.
	DefaultMaxPixels = 64 << 20

	// MIMEType of every normalized image.
	MIMEType = "image/jpeg"
)

// Normalized is a model-ready image.
type Normalized struct {
	Base64       string
	Width        int
	Height       int
	MIMEType     string
	SourceFormat string
	SourceBytes  int
}

// DataURL renders the image as a data URL.
func (n *Normalized) DataURL() string {
	return "data:" + n.MIMEType + ";base64," + n.Base64
}

// Normalizer validates and transcodes images.
type Normalizer struct {
	MaxEdge   int
	Quality   int
	MaxPixels int
}

// NewNormalizer returns a Normalizer with the default bounds.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		MaxEdge:   DefaultMaxEdge,
		Quality:   DefaultQuality,
		MaxPixels: DefaultMaxPixels,
	}
}

// Normalize decodes a base64 image (optionally a data URL), flattens it to opaque RGB,
// shrinks it to fit MaxEdge and re-encodes it as JPEG. Every decoding failure wraps
// domain.ErrInvalidImage.
func (n *Normalizer) Normalize(encoded string) (*Normalized, error) {
	raw, err := DecodeBase64(encoded)
	if err != nil {
		return nil, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}
	if n.MaxPixels > 0 && cfg.Width*cfg.Height > n.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", domain.ErrInvalidImage, cfg.Width, cfg.Height, n.MaxPixels)
	}

	src, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}

	img := flatten(src)
	b := img.Bounds()
	if b.Dx() > n.MaxEdge || b.Dy() > n.MaxEdge {
		img = imaging.Fit(img, n.MaxEdge, n.MaxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(n.Quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return &Normalized{
		Base64:       base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:        img.Bounds().Dx(),
		Height:       img.Bounds().Dy(),
		MIMEType:     MIMEType,
		SourceFormat: format,
		SourceBytes:  len(raw),
	}, nil
}

// DecodeBase64 strips an optional data URL prefix and decodes the payload.
// Padding is optional and surrounding whitespace is ignored.
func DecodeBase64(encoded string) ([]byte, error) {
	payload := strings.TrimSpace(encoded)
	if strings.HasPrefix(payload, "data:") {
		var found bool
		_, payload, found = strings.Cut(payload, ",")
		if !found {
			return nil, fmt.Errorf("%w: data url without payload", domain.ErrInvalidImage)
		}
	}
	payload = strings.TrimRight(strings.TrimSpace(payload), "=")
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrInvalidImage)
	}

	raw, err := base64.RawStdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", domain.ErrInvalidImage, err)
	}
	return raw, nil
}

// flatten returns an NRGBA copy of img with every pixel made opaque.
// Color values are kept as stored, so transparent areas keep their underlying color.
func flatten(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
