// Package img loads source images and encodes rendered bitmaps.
package img

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder

	"github.com/disintegration/imaging"

	_ "github.com/biessek/golang-ico" // ICO decoder
	_ "golang.org/x/image/bmp"        // BMP decoder
	_ "golang.org/x/image/tiff"       // TIFF decoder
	_ "golang.org/x/image/webp"       // WEBP decoder
)

// ErrTooBig is returned when an image has more pixels than MaxPixels.
var ErrTooBig = errors.New("image is too big")

// MaxPixels is the maximum pixel count of a decoded image.
var MaxPixels = 30000000

// Image is a decoded source image.
type Image struct {
	m      image.Image
	format string
}

// New wraps an already decoded image.
func New(m image.Image, format string) *Image {
	return &Image{m: m, format: format}
}

// Decode reads and decodes an image. The orientation stored in EXIF
// data, if any, is applied.
func Decode(r io.Reader) (*Image, error) {
	// We need to grab the format first, hence this two pass thing
	var buf bytes.Buffer
	tee := io.TeeReader(r, &buf)

	c, format, err := image.DecodeConfig(tee)
	if err != nil {
		return nil, err
	}
	if c.Width*c.Height > MaxPixels {
		return nil, ErrTooBig
	}

	m, err := imaging.Decode(
		io.MultiReader(&buf, r),
		imaging.AutoOrientation(true),
	)
	if err != nil {
		return nil, err
	}

	return &Image{m: m, format: format}, nil
}

// Open decodes an image file.
func Open(name string) (*Image, error) {
	fd, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	return Decode(fd)
}

// Image returns the decoded image.
func (im *Image) Image() image.Image {
	return im.m
}

// Format returns the source format.
func (im *Image) Format() string {
	return im.format
}

// Width returns the image width.
func (im *Image) Width() uint {
	return uint(im.m.Bounds().Dx())
}

// Height returns the image height.
func (im *Image) Height() uint {
	return uint(im.m.Bounds().Dy())
}

var encFormats = map[string]imaging.Format{
	"jpeg": imaging.JPEG,
	"png":  imaging.PNG,
	"gif":  imaging.GIF,
	"bmp":  imaging.BMP,
	"tiff": imaging.TIFF,
}

// Encode encodes m to w. An empty or unknown format falls back to
// jpeg. It returns the format actually used.
func Encode(w io.Writer, m image.Image, format string, quality int) (string, error) {
	format = normalizeFormat(format)
	f, ok := encFormats[format]
	if !ok {
		format, f = "jpeg", imaging.JPEG
	}

	var err error
	switch f {
	case imaging.JPEG:
		err = imaging.Encode(w, m, f, imaging.JPEGQuality(quality))
	case imaging.PNG:
		err = imaging.Encode(w, m, f, imaging.PNGCompressionLevel(png.BestSpeed))
	default:
		err = imaging.Encode(w, m, f)
	}
	if err != nil {
		return "", err
	}
	return format, nil
}

// Save encodes m into a file. An empty format is guessed from the
// file name extension.
func Save(name string, m image.Image, format string, quality int) (string, error) {
	if format == "" {
		format = FormatFromName(name)
	}

	fd, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "", err
	}

	format, err = Encode(fd, m, format, quality)
	if err != nil {
		fd.Close()
		return "", err
	}
	return format, fd.Close()
}

// FormatFromName returns the encoding format matching a file name
// extension, or an empty string.
func FormatFromName(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	format := normalizeFormat(ext)
	if _, ok := encFormats[format]; !ok {
		return ""
	}
	return format
}

// IsFormat returns true when f is a supported encoding format.
func IsFormat(f string) bool {
	_, ok := encFormats[normalizeFormat(f)]
	return ok
}

// ContentType returns the MIME type of an encoding format.
func ContentType(format string) string {
	return fmt.Sprintf("image/%s", normalizeFormat(format))
}

// Thumbnail returns m reduced to fit in a size × size box. Smaller
// images are returned unchanged.
func Thumbnail(m image.Image, size int) image.Image {
	b := m.Bounds()
	if size <= 0 || (b.Dx() <= size && b.Dy() <= size) {
		return m
	}
	return imaging.Fit(m, size, size, imaging.Lanczos)
}

// NormalizeFormat returns the canonical name of a supported format,
// or "jpeg" for an unknown one.
func NormalizeFormat(f string) string {
	f = normalizeFormat(f)
	if _, ok := encFormats[f]; !ok {
		return "jpeg"
	}
	return f
}

func normalizeFormat(f string) string {
	f = strings.ToLower(f)
	switch f {
	case "jpg":
		return "jpeg"
	case "tif":
		return "tiff"
	}
	return f
}
