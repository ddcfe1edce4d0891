package pipeline

import (
	"errors"
	"image"
	"image/color"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readeck/instafilter/pkg/filters"
)

func newImage(w, h int) *image.RGBA {
	m := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetRGBA(x, y, color.RGBA{uint8(x * 7), uint8(y * 11), uint8(x ^ y), 255})
		}
	}
	return m
}

type stubFilter struct {
	params filters.Params
	output func(image.Image) (*filters.Output, error)
}

func (f *stubFilter) Params() *filters.Params {
	return &f.params
}

func (f *stubFilter) Output(src image.Image) (*filters.Output, error) {
	return f.output(src)
}

func stubRegistry() *filters.Registry {
	return filters.NewRegistry(
		filters.Descriptor{Key: "noConstructor", Parameter: filters.KindScale},
		filters.Descriptor{Key: "failing", Parameter: filters.KindScale, New: func() (filters.Filter, error) {
			return nil, errors.New("no GPU")
		}},
		filters.Descriptor{Key: "panicking", Parameter: filters.KindScale, New: func() (filters.Filter, error) {
			return &stubFilter{output: func(image.Image) (*filters.Output, error) {
				panic("boom")
			}}, nil
		}},
		filters.Descriptor{Key: "transformError", Parameter: filters.KindScale, New: func() (filters.Filter, error) {
			return &stubFilter{output: func(image.Image) (*filters.Output, error) {
				return nil, errors.New("bad knob")
			}}, nil
		}},
		filters.Descriptor{Key: "emptyRender", Parameter: filters.KindScale, New: func() (filters.Filter, error) {
			return &stubFilter{output: func(src image.Image) (*filters.Output, error) {
				return filters.NewOutput(src.Bounds(), func() image.Image { return nil }), nil
			}}, nil
		}},
		filters.Descriptor{Key: "renderPanic", Parameter: filters.KindScale, New: func() (filters.Filter, error) {
			return &stubFilter{output: func(src image.Image) (*filters.Output, error) {
				return filters.NewOutput(src.Bounds(), func() image.Image { panic("oops") }), nil
			}}, nil
		}},
		filters.Descriptor{Key: "unbound", Parameter: filters.KindNone, New: func() (filters.Filter, error) {
			f := &stubFilter{params: filters.Params{Radius: 3}}
			f.output = func(src image.Image) (*filters.Output, error) {
				return filters.NewOutput(src.Bounds(), func() image.Image { return src }), nil
			}
			return f, nil
		}},
	)
}

func TestApply(t *testing.T) {
	src := newImage(32, 24)

	t.Run("all filters", func(t *testing.T) {
		for _, d := range filters.List() {
			t.Run(d.Key, func(t *testing.T) {
				res, err := Apply(src, d.Key, 0.5)
				require.NoError(t, err)
				assert.Equal(t, d.Key, res.Filter.Key)
				assert.Equal(t, 0.5, res.Intensity)
				assert.Equal(t, image.Rect(0, 0, 32, 24), res.Bitmap.Bounds())
			})
		}
	})

	t.Run("parameter mapping", func(t *testing.T) {
		tests := []struct {
			key       string
			intensity float64
			kind      filters.ParameterKind
			expected  float64
		}{
			{"gaussianBlur", 0.5, filters.KindRadius, 100},
			{"crystallize", 0.1, filters.KindRadius, 20},
			{"pixellate", 0.3, filters.KindScale, 3},
			{"unsharpMask", 0.2, filters.KindScale, 2},
			{"sepiaTone", 0.7, filters.KindIntensity, 0.7},
			{"vignette", 0.4, filters.KindIntensity, 0.4},
		}

		for _, x := range tests {
			t.Run(x.key, func(t *testing.T) {
				res, err := Apply(src, x.key, x.intensity)
				require.NoError(t, err)
				v, ok := res.Params.Get(x.kind)
				assert.True(t, ok)
				assert.InDelta(t, x.expected, v, 1e-9)
			})
		}

		// Only the declared knob is driven.
		res, _ := Apply(src, "gaussianBlur", 0.5)
		assert.Equal(t, filters.Params{Radius: 100}, res.Params)
	})

	t.Run("clamping", func(t *testing.T) {
		over, err := Apply(src, "sepiaTone", 1.5)
		require.NoError(t, err)
		one, err := Apply(src, "sepiaTone", 1.0)
		require.NoError(t, err)

		assert.Equal(t, 1.0, over.Intensity)
		assert.Equal(t, one.Params, over.Params)
		assert.Equal(t, one.Bitmap.Pix, over.Bitmap.Pix)

		under, err := Apply(src, "gaussianBlur", -3)
		require.NoError(t, err)
		assert.Equal(t, 0.0, under.Params.Radius)
	})

	t.Run("determinism", func(t *testing.T) {
		for _, d := range filters.List() {
			t.Run(d.Key, func(t *testing.T) {
				r1, err := Apply(src, d.Key, 0.5)
				require.NoError(t, err)
				r2, err := Apply(src, d.Key, 0.5)
				require.NoError(t, err)
				assert.Equal(t, r1.Bitmap.Pix, r2.Bitmap.Pix)
				assert.NotSame(t, r1.Bitmap, r2.Bitmap)
			})
		}
	})

	t.Run("source is not modified", func(t *testing.T) {
		before := append([]uint8(nil), src.Pix...)
		_, err := Apply(src, "vignette", 1)
		require.NoError(t, err)
		assert.Equal(t, before, src.Pix)
	})

	t.Run("sub image", func(t *testing.T) {
		sub := src.SubImage(image.Rect(8, 4, 24, 20))
		res, err := Apply(sub, "pixellate", 0.4)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 16, 16), res.Bitmap.Bounds())
	})
}

func TestApplyErrors(t *testing.T) {
	src := newImage(16, 16)
	corrupt := newImage(16, 16)
	corrupt.Pix = corrupt.Pix[:100]

	chroma := image.NewYCbCr(image.Rect(0, 0, 16, 16), image.YCbCrSubsampleRatio420)
	chroma.Cb = chroma.Cb[:10]

	paletted := image.NewPaletted(image.Rect(0, 0, 16, 16), color.Palette{color.Black})
	for i := range paletted.Pix {
		paletted.Pix[i] = 5
	}

	p := New(stubRegistry())

	tests := []struct {
		name   string
		p      *Pipeline
		src    image.Image
		key    string
		target error
		msg    string
	}{
		{"nil source", Default, nil, "vignette", ErrSourceUnreadable,
			"source image is unreadable: no image (vignette)"},
		{"empty source", Default, image.NewRGBA(image.Rect(0, 0, 0, 0)), "vignette", ErrSourceUnreadable, ""},
		{"corrupt source", Default, corrupt, "vignette", ErrSourceUnreadable, ""},
		{"short chroma", Default, chroma, "gaussianBlur", ErrSourceUnreadable,
			"source image is unreadable: chroma buffer too short (10, 64 < 64) (gaussianBlur)"},
		{"palette index", Default, paletted, "gaussianBlur", ErrSourceUnreadable,
			"source image is unreadable: color index 5 out of palette (1 colors) (gaussianBlur)"},
		{"unknown filter", Default, src, "nonexistent", ErrUnknownFilter,
			`unknown filter: "nonexistent" (nonexistent)`},
		{"no constructor", p, src, "noConstructor", ErrFilterConstruction,
			"filter construction failed: no constructor (noConstructor)"},
		{"constructor error", p, src, "failing", ErrFilterConstruction, ""},
		{"transform panic", p, src, "panicking", ErrTransformExecution,
			"transform execution failed: panic: boom (panicking)"},
		{"transform error", p, src, "transformError", ErrTransformExecution, ""},
		{"empty render", p, src, "emptyRender", ErrRasterization,
			"rasterization failed: nothing rendered (emptyRender)"},
		{"render panic", p, src, "renderPanic", ErrRasterization, ""},
	}

	for _, x := range tests {
		t.Run(x.name, func(t *testing.T) {
			res, err := x.p.Apply(x.src, x.key, 0.5)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, errors.Is(err, x.target), err.Error())

			var e *Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, x.key, e.Filter)
			if x.msg != "" {
				assert.EqualError(t, err, x.msg)
			}
		})
	}

	t.Run("stages", func(t *testing.T) {
		_, err := Apply(nil, "vignette", 0.5)
		assert.False(t, errors.Is(err, ErrRasterization))
		assert.Equal(t, "source", err.(*Error).Stage.String())
		assert.Equal(t, "Stage(9)", Stage(9).String())
	})

	t.Run("logged", func(t *testing.T) {
		hook := test.NewGlobal()
		defer hook.Reset()

		_, err := Apply(nil, "vignette", 0.5)
		require.Error(t, err)

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, log.WarnLevel, entry.Level)
		assert.Equal(t, "source", entry.Data["stage"])
		assert.Equal(t, "vignette", entry.Data["filter"])
	})

	t.Run("unbound parameter", func(t *testing.T) {
		res, err := p.Apply(src, "unbound", 0.9)
		require.NoError(t, err)
		assert.Equal(t, filters.Params{Radius: 3}, res.Params)
		assert.Equal(t, src.Pix, res.Bitmap.Pix)
	})
}

func TestCheckSource(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 4, 4))
	assert.NoError(t, CheckSource(gray))

	gray.Stride = 2
	assert.EqualError(t, CheckSource(gray), "stride 2 too small for width 4")

	pal := image.NewPaletted(image.Rect(0, 0, 2, 2), nil)
	assert.EqualError(t, CheckSource(pal), "empty palette")

	ycc := image.NewYCbCr(image.Rect(0, 0, 8, 8), image.YCbCrSubsampleRatio420)
	assert.NoError(t, CheckSource(ycc))

	assert.NoError(t, CheckSource(image.NewUniform(color.White)))
}

func TestRasterize(t *testing.T) {
	_, err := Rasterize(nil)
	assert.EqualError(t, err, "no output")

	_, err = Rasterize(filters.NewOutput(image.Rectangle{}, nil))
	assert.EqualError(t, err, "empty extent (0,0)-(0,0)")

	src := newImage(4, 4)
	out := filters.NewOutput(image.Rect(10, 10, 14, 14), func() image.Image {
		m := image.NewRGBA(image.Rect(10, 10, 14, 14))
		copy(m.Pix, src.Pix)
		return m
	})
	m, err := Rasterize(out)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), m.Bounds())
	assert.Equal(t, src.Pix, m.Pix)
}
