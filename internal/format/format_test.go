package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCanonicalTags(t *testing.T) {
	for _, f := range All() {
		got, err := Parse(f.Tag())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
}

func TestParseJpegAlias(t *testing.T) {
	got, err := Parse("jpeg")
	require.NoError(t, err)
	assert.Equal(t, JPG, got)

	// The canonical tag stays "jpg" regardless of how it was spelled.
	assert.Equal(t, "jpg", got.Tag())
}

func TestParseRejectsUnknown(t *testing.T) {
	for _, tag := range []string{"", "bmp", "gif", "PNG", "jpg "} {
		_, err := Parse(tag)
		assert.Error(t, err, "tag %q", tag)
	}
}

func TestExtensionEqualsTag(t *testing.T) {
	for _, f := range All() {
		assert.Equal(t, f.Tag(), f.Ext())
	}
}

func TestMIME(t *testing.T) {
	assert.Equal(t, "image/png", PNG.MIME())
	assert.Equal(t, "image/jpeg", JPG.MIME())
	assert.Equal(t, "image/webp", WEBP.MIME())
	assert.Equal(t, "image/vnd.radiance", HDR.MIME())
	assert.Equal(t, "image/avif", AVIF.MIME())
}
