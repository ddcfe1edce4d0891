package session

import (
	"image"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v3"
	log "github.com/sirupsen/logrus"

	"github.com/readeck/instafilter/pkg/pipeline"
	"github.com/readeck/instafilter/pkg/timers"
)

type entry struct {
	s     *Session
	timer int
}

// Store keeps the live sessions. A session that is not accessed for
// the store TTL is closed and removed.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	timers   *timers.TimerStore

	pipeline  *pipeline.Pipeline
	ttl       time.Duration
	filter    string
	intensity float64
}

// NewStore returns a session store. New sessions use the given
// default filter and intensity.
func NewStore(p *pipeline.Pipeline, ttl time.Duration, filterKey string, intensity float64) *Store {
	return &Store{
		sessions:  make(map[string]*entry),
		timers:    timers.NewTimerStore(),
		pipeline:  p,
		ttl:       ttl,
		filter:    filterKey,
		intensity: intensity,
	}
}

// Create starts a new session. When m is not nil, it is loaded
// right away.
func (st *Store) Create(m image.Image) (*Session, error) {
	s, err := New(shortuuid.New(), st.pipeline, st.filter, st.intensity)
	if err != nil {
		return nil, err
	}
	if m != nil {
		if err = s.Load(m); err != nil {
			return nil, err
		}
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = &entry{s: s, timer: st.startTimer(s.ID, 0)}

	log.WithField("session", s.ID).Debug("session created")
	return s, nil
}

// Get returns a session and restarts its expiration timer.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	e.timer = st.startTimer(id, e.timer)
	return e.s, true
}

// Delete closes and removes a session.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	e, ok := st.sessions[id]
	if ok {
		st.timers.Stop(e.timer)
		delete(st.sessions, id)
	}
	st.mu.Unlock()

	if ok {
		e.s.Close()
		log.WithField("session", id).Debug("session closed")
	}
	return ok
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Close closes every session.
func (st *Store) Close() {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*entry)
	st.mu.Unlock()

	st.timers.StopAll()
	for _, e := range sessions {
		e.s.Close()
	}
}

// startTimer starts the expiration timer of a session, replacing the
// timer "prev" when not zero. It must be called with the lock held.
func (st *Store) startTimer(id string, prev int) int {
	if st.ttl <= 0 {
		return 0
	}

	var timerID int
	fn := func() {
		st.mu.Lock()
		st.expire(id, timerID)
	}
	if prev == 0 {
		timerID = st.timers.Start(st.ttl, fn)
	} else {
		timerID = st.timers.Restart(prev, st.ttl, fn)
	}
	return timerID
}

// expire is called with the lock held and releases it.
func (st *Store) expire(id string, timerID int) {
	e, ok := st.sessions[id]
	// A newer access restarted the timer.
	if !ok || e.timer != timerID {
		st.mu.Unlock()
		return
	}
	delete(st.sessions, id)
	st.mu.Unlock()

	e.s.Close()
	log.WithField("session", id).Info("session expired")
}
