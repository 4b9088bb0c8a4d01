package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessReencodesAsJPEG(t *testing.T) {
	result, err := Process(bytes.NewReader(encodePNG(t, 100, 60)))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", result.MIME)

	img, err := jpeg.Decode(bytes.NewReader(result.Data))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 60, img.Bounds().Dy())
}

func TestProcessDownscalesWide(t *testing.T) {
	result, err := Process(bytes.NewReader(encodePNG(t, MaxDimension*2, MaxDimension)))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(result.Data))
	require.NoError(t, err)
	assert.Equal(t, MaxDimension, img.Bounds().Dx())
	assert.Equal(t, MaxDimension/2, img.Bounds().Dy())
}

func TestProcessDownscalesTall(t *testing.T) {
	result, err := Process(bytes.NewReader(encodePNG(t, 200, MaxDimension*4)))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(result.Data))
	require.NoError(t, err)
	assert.Equal(t, MaxDimension, img.Bounds().Dy())
	assert.LessOrEqual(t, img.Bounds().Dx(), MaxDimension)
}

func TestProcessRejectsNonImage(t *testing.T) {
	_, err := Process(strings.NewReader("definitely not an image"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported image format")
}
