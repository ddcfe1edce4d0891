package pipeline

import (
	"errors"
	"fmt"
	"image"
)

// CheckSource verifies that an image can be read: it must exist, have
// pixels, and, for buffer backed images, hold a buffer large enough for
// its bounds.
func CheckSource(src image.Image) error {
	if src == nil {
		return errors.New("no image")
	}

	b := src.Bounds()
	if b.Empty() {
		return fmt.Errorf("empty image %v", b)
	}

	var pix []uint8
	var stride, bpp int

	switch m := src.(type) {
	case *image.RGBA:
		pix, stride, bpp = m.Pix, m.Stride, 4
	case *image.NRGBA:
		pix, stride, bpp = m.Pix, m.Stride, 4
	case *image.RGBA64:
		pix, stride, bpp = m.Pix, m.Stride, 8
	case *image.NRGBA64:
		pix, stride, bpp = m.Pix, m.Stride, 8
	case *image.Gray:
		pix, stride, bpp = m.Pix, m.Stride, 1
	case *image.Gray16:
		pix, stride, bpp = m.Pix, m.Stride, 2
	case *image.Alpha:
		pix, stride, bpp = m.Pix, m.Stride, 1
	case *image.Paletted:
		if len(m.Palette) == 0 {
			return errors.New("empty palette")
		}
		if err := checkBuffer(b, m.Pix, m.Stride, 1); err != nil {
			return err
		}
		return checkPalette(m)
	case *image.YCbCr:
		if err := checkBuffer(b, m.Y, m.YStride, 1); err != nil {
			return err
		}
		return checkChroma(m)
	default:
		return nil
	}

	return checkBuffer(b, pix, stride, bpp)
}

func checkBuffer(b image.Rectangle, pix []uint8, stride, bpp int) error {
	if stride < b.Dx()*bpp {
		return fmt.Errorf("stride %d too small for width %d", stride, b.Dx())
	}
	if need := (b.Dy()-1)*stride + b.Dx()*bpp; len(pix) < need {
		return fmt.Errorf("pixel buffer too short (%d < %d)", len(pix), need)
	}
	return nil
}

// checkPalette rejects color indices outside of the palette.
func checkPalette(m *image.Paletted) error {
	b := m.Bounds()
	n := len(m.Palette)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := m.PixOffset(b.Min.X, y)
		for _, c := range m.Pix[i : i+b.Dx()] {
			if int(c) >= n {
				return fmt.Errorf("color index %d out of palette (%d colors)", c, n)
			}
		}
	}
	return nil
}

// checkChroma verifies that the Cb and Cr planes cover the bounds.
func checkChroma(m *image.YCbCr) error {
	b := m.Bounds()
	if m.CStride <= 0 {
		return fmt.Errorf("invalid chroma stride %d", m.CStride)
	}
	need := m.COffset(b.Max.X-1, b.Max.Y-1) + 1
	if len(m.Cb) < need || len(m.Cr) < need {
		return fmt.Errorf("chroma buffer too short (%d, %d < %d)", len(m.Cb), len(m.Cr), need)
	}
	return nil
}
