package img

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImage(w, h int) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetNRGBA(x, y, color.NRGBA{uint8(x * 10), uint8(y * 10), 128, 255})
		}
	}
	return m
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var b bytes.Buffer
	require.NoError(t, png.Encode(&b, newImage(w, h)))
	return b.Bytes()
}

func TestDecode(t *testing.T) {
	t.Run("png", func(t *testing.T) {
		im, err := Decode(bytes.NewReader(pngBytes(t, 24, 18)))
		require.NoError(t, err)
		assert.Equal(t, "png", im.Format())
		assert.Equal(t, uint(24), im.Width())
		assert.Equal(t, uint(18), im.Height())
		assert.NotNil(t, im.Image())
	})

	t.Run("bogus", func(t *testing.T) {
		im, err := Decode(bytes.NewReader([]byte("not an image")))
		assert.Nil(t, im)
		assert.EqualError(t, err, "image: unknown format")
	})

	t.Run("too big", func(t *testing.T) {
		max := MaxPixels
		MaxPixels = 100
		defer func() { MaxPixels = max }()

		im, err := Decode(bytes.NewReader(pngBytes(t, 20, 20)))
		assert.Nil(t, im)
		assert.True(t, errors.Is(err, ErrTooBig))
	})

	t.Run("file", func(t *testing.T) {
		name := filepath.Join(t.TempDir(), "img.png")
		require.NoError(t, os.WriteFile(name, pngBytes(t, 4, 4), 0644))

		im, err := Load(name, nil)
		require.NoError(t, err)
		assert.Equal(t, uint(4), im.Width())

		_, err = Open(filepath.Join(t.TempDir(), "missing.png"))
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}

func TestRemoteImage(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "http://x/img.png", httpmock.NewBytesResponder(200, pngBytes(t, 12, 8)))
	httpmock.RegisterResponder("GET", "http://x/bogus", httpmock.NewStringResponder(200, "bogus"))
	httpmock.RegisterResponder("GET", "http://x/404", httpmock.NewStringResponder(404, ""))
	httpmock.RegisterResponder("GET", "http://x/error", httpmock.NewErrorResponder(errors.New("HTTP")))

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name string
			path string
			err  string
		}{
			{"url", "", "No image URL"},
			{"404", "http://x/404", "Invalid response status (404)"},
			{"http", "http://x/error", `Get "http://x/error": HTTP`},
			{"bogus", "http://x/bogus", "image: unknown format"},
		}

		for _, x := range tests {
			t.Run(x.name, func(t *testing.T) {
				ri, err := NewRemoteImage(x.path, nil)
				assert.Nil(t, ri)
				assert.EqualError(t, err, x.err)
			})
		}
	})

	t.Run("load", func(t *testing.T) {
		ri, err := Load("http://x/img.png", nil)
		require.NoError(t, err)
		assert.Equal(t, "png", ri.Format())
		assert.Equal(t, image.Rect(0, 0, 12, 8), ri.Image().Bounds())
	})

	assert.True(t, IsRemote("https://example.net/a.jpg"))
	assert.False(t, IsRemote("/tmp/a.jpg"))
}

func TestEncode(t *testing.T) {
	m := newImage(16, 10)

	tests := []struct {
		format   string
		expected string
	}{
		{"", "jpeg"},
		{"jpg", "jpeg"},
		{"JPEG", "jpeg"},
		{"png", "png"},
		{"gif", "gif"},
		{"bmp", "bmp"},
		{"tif", "tiff"},
		{"webp", "jpeg"},
	}

	for _, x := range tests {
		t.Run(x.format, func(t *testing.T) {
			var b bytes.Buffer
			f, err := Encode(&b, m, x.format, 80)
			require.NoError(t, err)
			assert.Equal(t, x.expected, f)

			c, decoded, err := image.DecodeConfig(&b)
			require.NoError(t, err)
			assert.Equal(t, x.expected, decoded)
			assert.Equal(t, 16, c.Width)
		})
	}

	t.Run("save", func(t *testing.T) {
		name := filepath.Join(t.TempDir(), "out.png")
		f, err := Save(name, m, "", 80)
		require.NoError(t, err)
		assert.Equal(t, "png", f)

		im, err := Open(name)
		require.NoError(t, err)
		assert.Equal(t, "png", im.Format())
	})
}

func TestFormats(t *testing.T) {
	assert.Equal(t, "jpeg", FormatFromName("a/b.JPG"))
	assert.Equal(t, "png", FormatFromName("b.png"))
	assert.Equal(t, "", FormatFromName("b.txt"))
	assert.Equal(t, "", FormatFromName("noext"))
	assert.Equal(t, "image/jpeg", ContentType("jpg"))
	assert.Equal(t, "image/png", ContentType("png"))
	assert.True(t, IsFormat("TIF"))
	assert.False(t, IsFormat("webp"))
	assert.False(t, IsFormat(""))
	assert.Equal(t, "tiff", NormalizeFormat("TIF"))
	assert.Equal(t, "png", NormalizeFormat("png"))
	assert.Equal(t, "jpeg", NormalizeFormat("webp"))
}

func TestThumbnail(t *testing.T) {
	m := newImage(40, 20)
	assert.Same(t, m, Thumbnail(m, 50))
	assert.Same(t, m, Thumbnail(m, 0))

	th := Thumbnail(m, 10)
	assert.Equal(t, image.Rect(0, 0, 10, 5), th.Bounds())
}
