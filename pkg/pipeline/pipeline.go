// Package pipeline turns a source image, a filter key and an intensity
// into a rasterized bitmap.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"

	"github.com/readeck/instafilter/pkg/filters"
)

// Describer resolves filter keys into descriptors.
type Describer interface {
	Describe(key string) (filters.Descriptor, error)
}

// Result is a successful render.
type Result struct {
	// Bitmap is owned by the caller.
	Bitmap    *image.NRGBA
	Filter    filters.Descriptor
	Intensity float64
	Params    filters.Params
}

// Pipeline applies filters from a registry. It holds no state between
// calls and is safe for concurrent use.
type Pipeline struct {
	registry Describer
}

// New returns a pipeline using the given registry. A nil registry
// means the built-in one.
func New(registry Describer) *Pipeline {
	if registry == nil {
		registry = filters.Default
	}
	return &Pipeline{registry: registry}
}

// Default uses the built-in filters.
var Default = New(nil)

// Apply runs the filter on src with Default.
func Apply(src image.Image, key string, intensity float64) (*Result, error) {
	return Default.Apply(src, key, intensity)
}

// Describe returns the descriptor of a filter key.
func (p *Pipeline) Describe(key string) (filters.Descriptor, error) {
	return p.registry.Describe(key)
}

// Apply resolves the filter, binds the clamped intensity to its native
// parameter, executes the transform and rasterizes it.
// On failure the returned error is an *Error and no bitmap is returned.
func (p *Pipeline) Apply(src image.Image, key string, intensity float64) (res *Result, err error) {
	start := time.Now()
	intensity = filters.Clamp(intensity)
	fields := log.Fields{"filter": key, "intensity": intensity}

	defer func() {
		if err != nil {
			var e *Error
			if errors.As(err, &e) {
				fields["stage"] = e.Stage.String()
			}
			log.WithFields(fields).WithError(err).Warn("filter pipeline failed")
			return
		}
		fields["elapsed"] = time.Since(start)
		log.WithFields(fields).Debug("filter applied")
	}()

	if err := CheckSource(src); err != nil {
		return nil, newError(StageSource, key, err)
	}

	d, err := p.registry.Describe(key)
	if err != nil {
		return nil, newError(StageLookup, key, err)
	}

	var f filters.Filter
	if err := protect(func() (err error) {
		if d.New == nil {
			return errors.New("no constructor")
		}
		if f, err = d.New(); err == nil && f == nil {
			err = errors.New("no filter instance")
		}
		return
	}); err != nil {
		return nil, newError(StageConstruct, key, err)
	}

	params := f.Params()
	if v, ok := d.Parameter.Native(intensity); ok {
		params.Set(d.Parameter, v)
	}
	fields["params"] = *params

	var out *filters.Output
	if err := protect(func() (err error) {
		out, err = f.Output(src)
		if err == nil && out == nil {
			err = errors.New("no output")
		}
		return
	}); err != nil {
		return nil, newError(StageTransform, key, err)
	}

	m, err := Rasterize(out)
	if err != nil {
		return nil, newError(StageRasterize, key, err)
	}

	return &Result{
		Bitmap:    m,
		Filter:    d,
		Intensity: intensity,
		Params:    *params,
	}, nil
}

// Rasterize renders an output into a bitmap sized to the output
// extent, with its origin at (0,0).
func Rasterize(out *filters.Output) (m *image.NRGBA, err error) {
	if out == nil {
		return nil, errors.New("no output")
	}
	if out.Bounds.Empty() {
		return nil, fmt.Errorf("empty extent %v", out.Bounds)
	}

	err = protect(func() error {
		r := out.Render()
		if r == nil {
			return errors.New("nothing rendered")
		}
		if r.Bounds().Empty() {
			return fmt.Errorf("empty render %v", r.Bounds())
		}
		m = imaging.Clone(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
