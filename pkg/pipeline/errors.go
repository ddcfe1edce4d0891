package pipeline

import (
	"errors"
	"fmt"

	"github.com/readeck/instafilter/pkg/filters"
)

// Stage is a step of the pipeline.
type Stage int

// Pipeline stages, in execution order.
const (
	StageSource Stage = iota + 1
	StageLookup
	StageConstruct
	StageTransform
	StageRasterize
)

var (
	// ErrSourceUnreadable is returned for a missing, empty or corrupted source image.
	ErrSourceUnreadable = errors.New("source image is unreadable")
	// ErrUnknownFilter is returned when the filter key is not registered.
	ErrUnknownFilter = filters.ErrUnknownFilter
	// ErrFilterConstruction is returned when a filter instance can't be created.
	ErrFilterConstruction = errors.New("filter construction failed")
	// ErrTransformExecution is returned when the filter can't produce its output.
	ErrTransformExecution = errors.New("transform execution failed")
	// ErrRasterization is returned when the output can't be turned into a bitmap.
	ErrRasterization = errors.New("rasterization failed")
)

var stages = map[Stage]struct {
	name string
	err  error
}{
	StageSource:    {"source", ErrSourceUnreadable},
	StageLookup:    {"lookup", ErrUnknownFilter},
	StageConstruct: {"construct", ErrFilterConstruction},
	StageTransform: {"transform", ErrTransformExecution},
	StageRasterize: {"rasterize", ErrRasterization},
}

func (s Stage) String() string {
	if x, ok := stages[s]; ok {
		return x.name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Error is the failure of a single Apply call.
type Error struct {
	Stage  Stage
	Filter string
	Err    error
}

func newError(stage Stage, filter string, err error) *Error {
	return &Error{Stage: stage, Filter: filter, Err: err}
}

func (e *Error) Error() string {
	msg := e.Err.Error()
	if x, ok := stages[e.Stage]; ok && !errors.Is(e.Err, x.err) {
		msg = fmt.Sprintf("%s: %s", x.err, msg)
	}
	if e.Filter == "" {
		return msg
	}
	return fmt.Sprintf("%s (%s)", msg, e.Filter)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the failed stage.
func (e *Error) Is(target error) bool {
	x, ok := stages[e.Stage]
	return ok && target == x.err
}

// protect runs fn and turns a panic into an error.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
