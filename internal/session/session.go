// Package session holds the editing state of a single user: the
// loaded photo, the selected filter and its intensity, and the last
// rendered bitmap.
package session

import (
	"errors"
	"image"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	log "github.com/sirupsen/logrus"

	"github.com/readeck/instafilter/pkg/filters"
	"github.com/readeck/instafilter/pkg/pipeline"
)

// ErrClosed is returned when using a closed session.
var ErrClosed = errors.New("session is closed")

// State is the display state of a session.
type State int

const (
	// Idle means no image is loaded.
	Idle State = iota
	// Loaded means an image is loaded but nothing was rendered yet.
	Loaded
	// Filtered means a rendered bitmap is available.
	Filtered
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Filtered:
		return "filtered"
	}
	return "idle"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session is the pipeline state of one user.
//
// Every change of image, filter or intensity schedules a full render
// from the source image. Renders run one at a time, in order, off the
// caller goroutine. A render whose request was superseded by a newer
// one is skipped or dropped, so only the latest request can reach the
// display.
type Session struct {
	ID string

	mu        sync.Mutex
	pipeline  *pipeline.Pipeline
	pool      *workerpool.WorkerPool
	poolMu    sync.RWMutex // held for writing while the pool stops
	closed    bool
	source    image.Image
	filter    filters.Descriptor
	intensity float64
	state     State
	gen       uint64
	current   *pipeline.Result
	lastErr   error
	updated   time.Time
	onDisplay func(*pipeline.Result)
}

// New returns an idle session using the given filter and intensity.
func New(id string, p *pipeline.Pipeline, filterKey string, intensity float64) (*Session, error) {
	if p == nil {
		p = pipeline.Default
	}

	d, err := p.Describe(filterKey)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:        id,
		pipeline:  p,
		pool:      workerpool.New(1),
		filter:    d,
		intensity: filters.Clamp(intensity),
		updated:   time.Now(),
	}, nil
}

// OnDisplay sets the function receiving every displayed result. It
// runs on the render goroutine.
func (s *Session) OnDisplay(fn func(*pipeline.Result)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisplay = fn
}

// Load replaces the source image and renders it with the current
// filter and intensity. The current result stays displayed until the
// new render succeeds.
func (s *Session) Load(m image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.source = m
	s.state = Loaded
	s.lastErr = nil
	return s.schedule()
}

// SetFilter selects a filter. An unknown key is an error and leaves
// the selection unchanged.
func (s *Session) SetFilter(key string) error {
	d, err := s.pipeline.Describe(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.filter = d
	return s.schedule()
}

// SetIntensity sets the intensity, clamped to [0,1].
func (s *Session) SetIntensity(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.intensity = filters.Clamp(v)
	return s.schedule()
}

// Select sets both the filter and the intensity with a single render.
func (s *Session) Select(key string, v float64) error {
	d, err := s.pipeline.Describe(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.filter = d
	s.intensity = filters.Clamp(v)
	return s.schedule()
}

// schedule queues a render of the current selection. It must be
// called with the lock held.
func (s *Session) schedule() error {
	s.updated = time.Now()
	s.gen++
	if s.state == Idle {
		return nil
	}

	gen, src, key, v := s.gen, s.source, s.filter.Key, s.intensity
	s.pool.Submit(func() {
		s.render(gen, src, key, v)
	})
	return nil
}

func (s *Session) isLatest(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

func (s *Session) render(gen uint64, src image.Image, key string, v float64) {
	l := log.WithFields(log.Fields{"session": s.ID, "filter": key, "intensity": v})

	if !s.isLatest(gen) {
		l.Debug("render superseded, skipped")
		return
	}

	res, err := s.pipeline.Apply(src, key, v)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		l.Debug("render superseded, dropped")
		return
	}
	if err != nil {
		// The previous image, if any, stays displayed.
		s.lastErr = err
		s.mu.Unlock()
		l.WithError(err).Warn("render failed")
		return
	}

	s.current = res
	s.state = Filtered
	s.lastErr = nil
	fn := s.onDisplay
	s.mu.Unlock()

	if fn != nil {
		fn(res)
	}
}

// Wait blocks until every render scheduled before the call is done.
// The pool has a single worker running tasks in order, so an empty
// task returns after all of them.
func (s *Session) Wait() {
	s.poolMu.RLock()
	defer s.poolMu.RUnlock()
	if s.pool.Stopped() {
		return
	}
	s.pool.SubmitWait(func() {})
}

// Close stops the render worker, after the pending renders.
// The session can't be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.poolMu.Lock()
	defer s.poolMu.Unlock()
	s.pool.StopWait()
}

// Current returns the displayed result, or nil.
func (s *Session) Current() *pipeline.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// State returns the display state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error of the latest completed render, if it failed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Info is a snapshot of a session.
type Info struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	Filter    string    `json:"filter"`
	Intensity float64   `json:"intensity"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	Error     string    `json:"error,omitempty"`
	Updated   time.Time `json:"updated"`
}

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := Info{
		ID:        s.ID,
		State:     s.state,
		Filter:    s.filter.Key,
		Intensity: s.intensity,
		Updated:   s.updated,
	}
	if s.source != nil {
		res.Width = s.source.Bounds().Dx()
		res.Height = s.source.Bounds().Dy()
	}
	if s.lastErr != nil {
		res.Error = s.lastErr.Error()
	}
	return res
}
