package timers

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func exists(ts *TimerStore, id int) bool {
	ts.Lock()
	defer ts.Unlock()
	_, ok := ts.timers[id]
	return ok
}

func count(ts *TimerStore) int {
	ts.Lock()
	defer ts.Unlock()
	return len(ts.timers)
}

func TestTimerStore(t *testing.T) {
	t.Run("fires", func(t *testing.T) {
		ts := NewTimerStore()
		var n int32
		id := ts.Start(5*time.Millisecond, func() { atomic.AddInt32(&n, 1) })
		assert.True(t, exists(ts, id))

		assert.Eventually(t, func() bool {
			return atomic.LoadInt32(&n) == 1 && !exists(ts, id)
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("stop", func(t *testing.T) {
		ts := NewTimerStore()
		id := ts.Start(time.Hour, func() {})
		assert.Equal(t, 1, count(ts))
		assert.True(t, ts.Stop(id))
		assert.False(t, ts.Stop(id))
		assert.False(t, exists(ts, id))
	})

	t.Run("unique ids", func(t *testing.T) {
		ts := NewTimerStore()
		a := ts.Start(time.Hour, func() {})
		ts.Stop(a)
		b := ts.Start(time.Hour, func() {})
		c := ts.Restart(b, time.Hour, func() {})
		assert.NotEqual(t, a, b)
		assert.NotEqual(t, b, c)
		assert.False(t, exists(ts, b))
		assert.True(t, exists(ts, c))

		ts.StopAll()
		assert.Equal(t, 0, count(ts))
	})
}
