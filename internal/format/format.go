// Package format is the single source of truth for the closed set of image
// formats the service stores and serves. No other package spells format
// names as literals except when translating wire input through Parse.
package format

import "fmt"

// Format identifies one supported image encoding.
type Format int

const (
	PNG Format = iota
	JPG
	WEBP
	HDR
	AVIF
)

// tags holds the canonical lowercase tag per format. The tag doubles as the
// file extension and as the durable representation in the metadata store.
var tags = map[Format]string{
	PNG:  "png",
	JPG:  "jpg",
	WEBP: "webp",
	HDR:  "hdr",
	AVIF: "avif",
}

var mimes = map[Format]string{
	PNG:  "image/png",
	JPG:  "image/jpeg",
	WEBP: "image/webp",
	HDR:  "image/vnd.radiance",
	AVIF: "image/avif",
}

// Parse maps a wire tag to a Format. "jpeg" is accepted as an alias for
// "jpg". The empty string is not a format.
func Parse(tag string) (Format, error) {
	if tag == "jpeg" {
		return JPG, nil
	}
	for f, t := range tags {
		if t == tag {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unsupported image format %q", tag)
}

// Tag returns the canonical lowercase tag.
func (f Format) Tag() string {
	return tags[f]
}

// Ext returns the file extension, which equals the tag.
func (f Format) Ext() string {
	return tags[f]
}

// MIME returns the content type served for this format.
func (f Format) MIME() string {
	return mimes[f]
}

func (f Format) String() string {
	return tags[f]
}

// All returns every supported format, in declaration order.
func All() []Format {
	return []Format{PNG, JPG, WEBP, HDR, AVIF}
}
