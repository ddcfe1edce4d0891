package filters

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/math/f64"
	"github.com/anthonynsimon/bild/parallel"
)

const (
	defaultVignetteRadius = 1.0
	minCrystalRadius      = 1.0
)

var defaultCrystalCenter = image.Pt(150, 150)

// vignette darkens the image towards its corners. The radius is the
// distance, relative to the half diagonal, at which the darkening
// reaches its full strength.
type vignette struct {
	base
	radius float64
}

func newVignette() (Filter, error) {
	return &vignette{radius: defaultVignetteRadius}, nil
}

func (f *vignette) Output(src image.Image) (*Output, error) {
	intensity := f.params.Intensity
	if intensity < 0 || intensity > 1 || math.IsNaN(intensity) {
		return nil, fmt.Errorf("invalid vignette intensity %v", intensity)
	}
	if f.radius <= 0 {
		return nil, fmt.Errorf("invalid vignette radius %v", f.radius)
	}

	radius := f.radius
	return NewOutput(src.Bounds(), func() image.Image {
		dst := clone.AsRGBA(src)
		if intensity == 0 {
			return dst
		}

		b := dst.Bounds()
		cx := float64(b.Min.X) + float64(b.Dx())/2
		cy := float64(b.Min.Y) + float64(b.Dy())/2
		half := math.Hypot(float64(b.Dx())/2, float64(b.Dy())/2)

		parallel.Line(b.Dy(), func(start, end int) {
			for y := b.Min.Y + start; y < b.Min.Y+end; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) / half
					k := 1 - intensity*smoothstep(0, radius, d)

					i := dst.PixOffset(x, y)
					dst.Pix[i+0] = uint8(f64.Clamp(float64(dst.Pix[i+0])*k+0.5, 0, 255))
					dst.Pix[i+1] = uint8(f64.Clamp(float64(dst.Pix[i+1])*k+0.5, 0, 255))
					dst.Pix[i+2] = uint8(f64.Clamp(float64(dst.Pix[i+2])*k+0.5, 0, 255))
				}
			}
		})

		return dst
	}), nil
}

func smoothstep(e0, e1, x float64) float64 {
	t := f64.Clamp((x-e0)/(e1-e0), 0, 1)
	return t * t * (3 - 2*t)
}

// crystallize splits the image in polygonal cells of about radius
// pixels. Every cell takes the color found under its seed. Seeds sit on
// a jittered grid anchored at the center point, so the result does not
// depend on anything but the image and the params.
type crystallize struct {
	base
	center image.Point
}

func newCrystallize() (Filter, error) {
	return &crystallize{center: defaultCrystalCenter}, nil
}

func (f *crystallize) Output(src image.Image) (*Output, error) {
	radius := f.params.Radius
	if radius < 0 || math.IsNaN(radius) {
		return nil, fmt.Errorf("invalid crystal radius %v", radius)
	}

	center := f.center
	return NewOutput(src.Bounds(), func() image.Image {
		in := clone.AsRGBA(src)
		if radius < minCrystalRadius {
			return in
		}

		b := in.Bounds()
		dst := image.NewRGBA(b)
		cx, cy := float64(center.X), float64(center.Y)

		parallel.Line(b.Dy(), func(start, end int) {
			for y := b.Min.Y + start; y < b.Min.Y+end; y++ {
				py := float64(y) + 0.5
				gy := int(math.Floor((py - cy) / radius))
				for x := b.Min.X; x < b.Max.X; x++ {
					px := float64(x) + 0.5
					gx := int(math.Floor((px - cx) / radius))

					best := math.Inf(1)
					var sx, sy float64
					for j := gy - 1; j <= gy+1; j++ {
						for i := gx - 1; i <= gx+1; i++ {
							jx, jy := cellJitter(i, j)
							ox := cx + (float64(i)+jx)*radius
							oy := cy + (float64(j)+jy)*radius
							if d := (ox-px)*(ox-px) + (oy-py)*(oy-py); d < best {
								best, sx, sy = d, ox, oy
							}
						}
					}

					dst.SetRGBA(x, y, sampleClamped(in, sx, sy))
				}
			}
		})

		return dst
	}), nil
}

// cellJitter returns a stable pseudo random position in [0,1)² for a
// grid cell.
func cellJitter(i, j int) (float64, float64) {
	h := uint64(uint32(i))*0x9e3779b97f4a7c15 ^ uint64(uint32(j))*0xc2b2ae3d27d4eb4f
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33

	return float64(h&0xffffffff) / (1 << 32), float64(h>>32) / (1 << 32)
}

func sampleClamped(m *image.RGBA, x, y float64) color.RGBA {
	b := m.Bounds()
	ix := int(f64.Clamp(math.Floor(x), float64(b.Min.X), float64(b.Max.X-1)))
	iy := int(f64.Clamp(math.Floor(y), float64(b.Min.Y), float64(b.Max.Y-1)))
	return m.RGBAAt(ix, iy)
}
