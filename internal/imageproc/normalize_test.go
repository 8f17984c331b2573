package imageproc

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
)

func encodePNG(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func solidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func decodeOutput(t *testing.T, n *Normalized) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(n.Base64)
	require.NoError(t, err)
	img, format, err := image.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
	return img
}

func TestNormalizeShrinksWideImage(t *testing.T) {
	src := encodePNG(t, solidNRGBA(2000, 500, color.NRGBA{R: 10, G: 200, B: 30, A: 255}))

	out, err := NewNormalizer().Normalize(src)
	require.NoError(t, err)

	assert.Equal(t, 1024, out.Width)
	assert.Equal(t, 256, out.Height)
	assert.Equal(t, "png", out.SourceFormat)
	assert.Equal(t, MIMEType, out.MIMEType)

	img := decodeOutput(t, out)
	assert.Equal(t, image.Rect(0, 0, 1024, 256), img.Bounds())
}

func TestNormalizeShrinksTallImage(t *testing.T) {
	src := encodePNG(t, solidNRGBA(300, 3000, color.NRGBA{A: 255}))

	out, err := NewNormalizer().Normalize(src)
	require.NoError(t, err)

	assert.Equal(t, 102, out.Width)
	assert.Equal(t, 1024, out.Height)
}

func TestNormalizeKeepsSmallImageSize(t *testing.T) {
	src := encodePNG(t, solidNRGBA(500, 400, color.NRGBA{R: 90, G: 90, B: 90, A: 255}))

	out, err := NewNormalizer().Normalize(src)
	require.NoError(t, err)

	assert.Equal(t, 500, out.Width)
	assert.Equal(t, 400, out.Height)
	assert.Equal(t, image.Rect(0, 0, 500, 400), decodeOutput(t, out).Bounds())
}

func TestNormalizeAcceptsDataURL(t *testing.T) {
	src := "data:image/png;base64," + encodePNG(t, solidNRGBA(8, 8, color.NRGBA{A: 255}))

	out, err := NewNormalizer().Normalize(src)
	require.NoError(t, err)
	assert.Equal(t, 8, out.Width)
	assert.Contains(t, out.DataURL(), "data:image/jpeg;base64,")
}

func TestNormalizeAcceptsUnpaddedBase64(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidNRGBA(3, 3, color.NRGBA{A: 255})))
	src := base64.RawStdEncoding.EncodeToString(buf.Bytes())

	_, err := NewNormalizer().Normalize(src)
	assert.NoError(t, err)
}

func TestNormalizeFlattensTransparency(t *testing.T) {
	// Fully transparent red: the alpha channel is dropped, the color stays.
	src := encodePNG(t, solidNRGBA(16, 16, color.NRGBA{R: 255, A: 0}))

	out, err := NewNormalizer().Normalize(src)
	require.NoError(t, err)

	r, g, b, _ := decodeOutput(t, out).At(8, 8).RGBA()
	assert.Greater(t, r>>8, uint32(200))
	assert.Less(t, g>>8, uint32(60))
	assert.Less(t, b>>8, uint32(60))
}

func TestNormalizeConvertsPalettedAndGray(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 20, 10), color.Palette{color.Black, color.White})
	var gifBuf bytes.Buffer
	require.NoError(t, gif.Encode(&gifBuf, pal, nil))

	gray := image.NewGray(image.Rect(0, 0, 12, 12))
	var jpgBuf bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpgBuf, gray, nil))

	for name, raw := range map[string][]byte{"gif": gifBuf.Bytes(), "jpeg": jpgBuf.Bytes()} {
		out, err := NewNormalizer().Normalize(base64.StdEncoding.EncodeToString(raw))
		require.NoError(t, err, name)
		assert.Equal(t, name, out.SourceFormat)
		decodeOutput(t, out)
	}
}

func TestNormalizeRejectsMalformedBase64(t *testing.T) {
	_, err := NewNormalizer().Normalize("%%% not base64 %%%")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidImage))
}

func TestNormalizeRejectsNonImage(t *testing.T) {
	src := base64.StdEncoding.EncodeToString([]byte("definitely not an image"))

	_, err := NewNormalizer().Normalize(src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidImage))
}

func TestNormalizeRejectsEmptyDataURL(t *testing.T) {
	for _, src := range []string{"data:image/png;base64", "data:image/png;base64,", "   "} {
		_, err := NewNormalizer().Normalize(src)
		assert.ErrorIs(t, err, domain.ErrInvalidImage, "src=%q", src)
	}
}

func TestNormalizeRejectsOversizedPixelCount(t *testing.T) {
	n := NewNormalizer()
	n.MaxPixels = 100

	_, err := n.Normalize(encodePNG(t, solidNRGBA(20, 20, color.NRGBA{A: 255})))
	assert.ErrorIs(t, err, domain.ErrInvalidImage)
}
