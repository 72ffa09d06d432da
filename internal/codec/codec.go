// Package codec wraps the pixel-level image libraries behind a small
// gateway: sniff, decode, resize, encode. Callers hand it bytes and get
// bytes back; readers from disk or memory are unified at this boundary.
//
// All CPU-bound work acquires a slot on a bounded semaphore so a burst of
// transcodes degrades into a queue instead of saturating the scheduler.
package codec

import (
	"bytes"
	"fmt"
	"image"
	"runtime"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"

	_ "image/jpeg"
	_ "image/png"

	_ "github.com/mdouchement/hdr/codec/rgbe"
	_ "golang.org/x/image/webp"

	"github.com/agentic-research/imgstore/internal/format"
)

// sniffNames maps the names under which the decoders register themselves
// to the registry's formats.
var sniffNames = map[string]format.Format{
	"png":  format.PNG,
	"jpeg": format.JPG,
	"webp": format.WEBP,
	"avif": format.AVIF,
	"rgbe": format.HDR,
	"hdr":  format.HDR,
}

// Gateway serializes codec work through a fixed-size worker pool.
type Gateway struct {
	sem chan struct{}
}

// New returns a gateway running at most workers concurrent codec
// operations. workers <= 0 means one slot per CPU.
func New(workers int) *Gateway {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Gateway{sem: make(chan struct{}, workers)}
}

func (g *Gateway) acquire() { g.sem <- struct{}{} }
func (g *Gateway) release() { <-g.sem }

// Sniff guesses the format from magic bytes without decoding pixels.
func (g *Gateway) Sniff(data []byte) (format.Format, error) {
	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("unrecognized image data: %w", err)
	}
	f, ok := sniffNames[name]
	if !ok {
		return 0, fmt.Errorf("unrecognized image format %q", name)
	}
	return f, nil
}

// Decode materializes the full image in memory.
func (g *Gateway) Decode(data []byte) (image.Image, error) {
	g.acquire()
	defer g.release()

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Resize scales img to width x height with Lanczos resampling. A zero
// dimension is filled from the source aspect ratio.
func (g *Gateway) Resize(img image.Image, width, height int) image.Image {
	g.acquire()
	defer g.release()

	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// Encode renders img into the requested format.
func (g *Gateway) Encode(img image.Image, f format.Format) ([]byte, error) {
	g.acquire()
	defer g.release()

	var buf bytes.Buffer
	var err error
	switch f {
	case format.PNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case format.JPG:
		err = imaging.Encode(&buf, img, imaging.JPEG)
	case format.WEBP:
		err = webp.Encode(&buf, img)
	case format.AVIF:
		err = avif.Encode(&buf, img)
	case format.HDR:
		err = encodeHDR(&buf, img)
	default:
		err = fmt.Errorf("no encoder for format %s", f)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", f, err)
	}
	return buf.Bytes(), nil
}
