package filters

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// ErrUnknownFilter is returned when a filter key is not in a registry.
var ErrUnknownFilter = errors.New("unknown filter")

// Descriptor describes a filter of the catalog and the native
// parameter the intensity drives.
type Descriptor struct {
	Key       string        `json:"key"`
	Label     string        `json:"label"`
	Parameter ParameterKind `json:"parameter"`

	// New returns a fresh filter instance with default params.
	New func() (Filter, error) `json:"-"`
}

// Registry is an ordered, immutable set of descriptors.
type Registry struct {
	descriptors []Descriptor
	index       map[string]int
}

// NewRegistry returns a registry holding the given descriptors, in
// the same order. It panics on a duplicated or empty key.
func NewRegistry(descriptors ...Descriptor) *Registry {
	r := &Registry{
		descriptors: make([]Descriptor, len(descriptors)),
		index:       make(map[string]int, len(descriptors)),
	}

	for i, d := range descriptors {
		if d.Key == "" {
			panic("filter descriptor without key")
		}
		if _, ok := r.index[d.Key]; ok {
			panic(fmt.Sprintf("filter %s is already registered", d.Key))
		}
		if d.Parameter == KindNone {
			log.WithField("filter", d.Key).Warn("filter intensity is not bound to any parameter")
		}
		r.descriptors[i] = d
		r.index[d.Key] = i
	}

	return r
}

// List returns the descriptors in their registration order.
func (r *Registry) List() []Descriptor {
	res := make([]Descriptor, len(r.descriptors))
	copy(res, r.descriptors)
	return res
}

// Describe returns the descriptor for a given key.
func (r *Registry) Describe(key string) (Descriptor, error) {
	i, ok := r.index[key]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownFilter, key)
	}
	return r.descriptors[i], nil
}

// Keys returns the registered keys in order.
func (r *Registry) Keys() []string {
	res := make([]string, len(r.descriptors))
	for i, d := range r.descriptors {
		res[i] = d.Key
	}
	return res
}

// Default is the built-in filter catalog.
var Default = NewRegistry(
	Descriptor{Key: "crystallize", Label: "Crystallize", Parameter: KindRadius, New: newCrystallize},
	Descriptor{Key: "gaussianBlur", Label: "Gaussian Blur", Parameter: KindRadius, New: newGaussianBlur},
	Descriptor{Key: "pixellate", Label: "Pixellate", Parameter: KindScale, New: newPixellate},
	Descriptor{Key: "sepiaTone", Label: "Sepia Tone", Parameter: KindIntensity, New: newSepiaTone},
	Descriptor{Key: "unsharpMask", Label: "Unsharp Mask", Parameter: KindScale, New: newUnsharpMask},
	Descriptor{Key: "vignette", Label: "Vignette", Parameter: KindIntensity, New: newVignette},
)

// List returns the built-in descriptors.
func List() []Descriptor {
	return Default.List()
}

// Describe returns a built-in descriptor.
func Describe(key string) (Descriptor, error) {
	return Default.Describe(key)
}
