package filters

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/gift"
)

// defaultUnsharpRadius is the blur radius of the unsharp mask when
// the intensity drives its amount.
const defaultUnsharpRadius = 2.5

type gaussianBlur struct{ base }

func newGaussianBlur() (Filter, error) {
	return &gaussianBlur{}, nil
}

func (f *gaussianBlur) Output(src image.Image) (*Output, error) {
	radius := f.params.Radius
	if radius < 0 || math.IsNaN(radius) {
		return nil, fmt.Errorf("invalid blur radius %v", radius)
	}

	return NewOutput(src.Bounds(), func() image.Image {
		if radius == 0 {
			return clone.AsRGBA(src)
		}
		return blur.Gaussian(src, radius)
	}), nil
}

type pixellate struct{ base }

func newPixellate() (Filter, error) {
	return &pixellate{}, nil
}

func (f *pixellate) Output(src image.Image) (*Output, error) {
	scale := f.params.Scale
	if scale < 0 || math.IsNaN(scale) {
		return nil, fmt.Errorf("invalid pixel scale %v", scale)
	}

	// Cells smaller than a pixel leave the image untouched.
	g := gift.New(gift.Pixelate(int(math.Round(scale))))
	bounds := g.Bounds(src.Bounds())

	return NewOutput(bounds, func() image.Image {
		dst := image.NewRGBA(bounds)
		g.Draw(dst, src)
		return dst
	}), nil
}

type sepiaTone struct{ base }

func newSepiaTone() (Filter, error) {
	return &sepiaTone{}, nil
}

func (f *sepiaTone) Output(src image.Image) (*Output, error) {
	amount := f.params.Intensity
	if amount < 0 || amount > 1 || math.IsNaN(amount) {
		return nil, fmt.Errorf("invalid sepia intensity %v", amount)
	}

	return NewOutput(src.Bounds(), func() image.Image {
		if amount == 0 {
			return clone.AsRGBA(src)
		}
		return blend.Opacity(src, effect.Sepia(src), amount)
	}), nil
}

type unsharpMask struct {
	base
	radius float64
}

func newUnsharpMask() (Filter, error) {
	return &unsharpMask{radius: defaultUnsharpRadius}, nil
}

func (f *unsharpMask) Output(src image.Image) (*Output, error) {
	amount := f.params.Scale
	if amount < 0 || math.IsNaN(amount) {
		return nil, fmt.Errorf("invalid unsharp amount %v", amount)
	}

	radius := f.radius
	return NewOutput(src.Bounds(), func() image.Image {
		if amount == 0 {
			return clone.AsRGBA(src)
		}
		return effect.UnsharpMask(src, radius, amount)
	}), nil
}
