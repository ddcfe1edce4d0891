package timers

import (
	"sync"
	"time"
)

// TimerStore describes a timer store.
//
// A timer store keeps track of timers in a map. A finished timer
// is always removed from the map after its execution.
type TimerStore struct {
	sync.Mutex

	timers map[int]*time.Timer
	lastID int
}

// NewTimerStore creates a new TimerStore.
func NewTimerStore() *TimerStore {
	return &TimerStore{
		timers: make(map[int]*time.Timer),
	}
}

// Start starts a new timer that will execute the given function
// "f" after "duration". It stores the time.Timer in the store and
// removes it when the function finishes.
//
// It returns the timer ID so it can be used to stop it later.
func (ts *TimerStore) Start(duration time.Duration, f func()) int {
	ts.Lock()
	defer ts.Unlock()

	ts.lastID++
	id := ts.lastID
	ts.timers[id] = time.AfterFunc(duration, func() {
		f()
		ts.Lock()
		delete(ts.timers, id)
		ts.Unlock()
	})

	return id
}

// Stop cancels a timer and removes it from the store.
func (ts *TimerStore) Stop(id int) (res bool) {
	ts.Lock()
	defer ts.Unlock()

	if t := ts.timers[id]; t != nil {
		res = t.Stop()
		delete(ts.timers, id)
	}

	return
}

// Restart stops the timer "id" and starts a new one with the same
// function. It returns the new timer ID.
func (ts *TimerStore) Restart(id int, duration time.Duration, f func()) int {
	ts.Stop(id)
	return ts.Start(duration, f)
}

// StopAll cancels every pending timer.
func (ts *TimerStore) StopAll() {
	ts.Lock()
	defer ts.Unlock()

	for id, t := range ts.timers {
		t.Stop()
		delete(ts.timers, id)
	}
}
