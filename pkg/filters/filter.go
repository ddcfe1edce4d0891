package filters

import (
	"image"
)

// Filter is a single-pass image transform configured through its
// native Params.
type Filter interface {
	// Params returns the instance knobs, ready to be modified
	// before calling Output.
	Params() *Params

	// Output binds src as the filter input and returns the lazy
	// description of the result.
	Output(src image.Image) (*Output, error)
}

// Output is a transform result that is not rasterized yet. Nothing is
// computed until Render is called.
type Output struct {
	// Bounds is the natural extent of the result.
	Bounds image.Rectangle

	render func() image.Image
}

// NewOutput returns an Output whose content is produced by fn.
func NewOutput(bounds image.Rectangle, fn func() image.Image) *Output {
	return &Output{Bounds: bounds, render: fn}
}

// Render computes the output image. It returns nil when the output
// has nothing to render.
func (o *Output) Render() image.Image {
	if o.render == nil {
		return nil
	}
	return o.render()
}

type base struct {
	params Params
}

func (b *base) Params() *Params {
	return &b.params
}
