package filters

import (
	"fmt"
	"math"

	"github.com/anthonynsimon/bild/math/f64"
)

// ParameterKind is the native parameter a filter lets the user
// intensity drive.
type ParameterKind int

const (
	// KindNone means the filter ignores the intensity.
	KindNone ParameterKind = iota
	// KindIntensity binds the intensity as is.
	KindIntensity
	// KindRadius binds the intensity times 200.
	KindRadius
	// KindScale binds the intensity times 10.
	KindScale
)

var kindNames = map[ParameterKind]string{
	KindNone:      "none",
	KindIntensity: "intensity",
	KindRadius:    "radius",
	KindScale:     "scale",
}

func (k ParameterKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ParameterKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k ParameterKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Clamp returns v bounded to [0,1]. NaN yields 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return f64.Clamp(v, 0, 1)
}

// Native maps an intensity onto the kind's native range. The intensity
// is always clamped first. The second return value is false for
// KindNone, meaning nothing must be set.
func (k ParameterKind) Native(intensity float64) (float64, bool) {
	i := Clamp(intensity)
	switch k {
	case KindIntensity:
		return i, true
	case KindRadius:
		return i * 200, true
	case KindScale:
		return i * 10, true
	}
	return 0, false
}

// Params holds the native knobs of a filter instance.
type Params struct {
	Intensity float64 `json:"intensity"`
	Radius    float64 `json:"radius"`
	Scale     float64 `json:"scale"`
}

// Set sets the knob matching the given kind. KindNone is a no-op.
func (p *Params) Set(k ParameterKind, v float64) {
	switch k {
	case KindIntensity:
		p.Intensity = v
	case KindRadius:
		p.Radius = v
	case KindScale:
		p.Scale = v
	}
}

// Get returns the knob matching the given kind.
func (p Params) Get(k ParameterKind) (float64, bool) {
	switch k {
	case KindIntensity:
		return p.Intensity, true
	case KindRadius:
		return p.Radius, true
	case KindScale:
		return p.Scale, true
	}
	return 0, false
}
