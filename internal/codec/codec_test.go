package codec

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/imgstore/internal/format"
)

// testPNG renders a w x h gradient and encodes it as PNG.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestSniff(t *testing.T) {
	g := New(2)

	f, err := g.Sniff(testPNG(t, 8, 8))
	require.NoError(t, err)
	assert.Equal(t, format.PNG, f)

	jpg, err := g.Encode(image.NewRGBA(image.Rect(0, 0, 4, 4)), format.JPG)
	require.NoError(t, err)
	f, err = g.Sniff(jpg)
	require.NoError(t, err)
	assert.Equal(t, format.JPG, f)
}

func TestSniffRejectsGarbage(t *testing.T) {
	g := New(2)
	_, err := g.Sniff([]byte("not an image at all, not even close"))
	assert.Error(t, err)
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	g := New(2)

	img, err := g.Decode(testPNG(t, 20, 10))
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 10, img.Bounds().Dy())

	out, err := g.Encode(img, format.JPG)
	require.NoError(t, err)

	back, err := g.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, 20, back.Bounds().Dx())
	assert.Equal(t, 10, back.Bounds().Dy())
}

func TestResizeExactWhenBothGiven(t *testing.T) {
	g := New(2)
	img, err := g.Decode(testPNG(t, 200, 100))
	require.NoError(t, err)

	out := g.Resize(img, 50, 80)
	assert.Equal(t, 50, out.Bounds().Dx())
	assert.Equal(t, 80, out.Bounds().Dy())
}

func TestResizeFillsMissingAxisFromAspect(t *testing.T) {
	g := New(2)
	img, err := g.Decode(testPNG(t, 200, 100))
	require.NoError(t, err)

	out := g.Resize(img, 100, 0)
	assert.Equal(t, 100, out.Bounds().Dx())
	assert.Equal(t, 50, out.Bounds().Dy())

	out = g.Resize(img, 0, 50)
	assert.Equal(t, 100, out.Bounds().Dx())
	assert.Equal(t, 50, out.Bounds().Dy())
}

func TestEncodeDecodeHDR(t *testing.T) {
	g := New(2)
	img, err := g.Decode(testPNG(t, 12, 6))
	require.NoError(t, err)

	out, err := g.Encode(img, format.HDR)
	require.NoError(t, err)

	f, err := g.Sniff(out)
	require.NoError(t, err)
	assert.Equal(t, format.HDR, f)

	back, err := g.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, 12, back.Bounds().Dx())
	assert.Equal(t, 6, back.Bounds().Dy())
}
