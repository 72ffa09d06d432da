package codec

import (
	"image"
	"io"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"
)

// encodeHDR writes img as Radiance RGBE. The library encodes its own
// floating-point image type, so LDR sources are lifted into [0,1] range
// channel by channel first.
func encodeHDR(w io.Writer, img image.Image) error {
	if m, ok := img.(hdr.Image); ok {
		return rgbe.Encode(w, m)
	}

	bounds := img.Bounds()
	m := hdr.NewRGB(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			m.SetRGB(x, y, hdrcolor.RGB{
				R: float64(r) / 0xffff,
				G: float64(g) / 0xffff,
				B: float64(b) / 0xffff,
			})
		}
	}
	return rgbe.Encode(w, m)
}
