package rtsp

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryInsertRejectsCollision(t *testing.T) {
	r := NewRegistry[string, int]()
	assert.True(t, r.Insert("a", 1))
	assert.False(t, r.Insert("a", 2))

	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v, "a colliding insert must not overwrite the existing value")
}

func TestRegistryRemoveAbsentIsNoop(t *testing.T) {
	r := NewRegistry[string, int]()
	assert.NotPanics(t, func() { r.Remove("missing") })
	assert.Equal(t, 0, r.Len())
}

func TestRegistrySnapshotIsIndependentOfLiveMap(t *testing.T) {
	r := NewRegistry[string, int]()
	r.Insert("a", 1)
	snap := r.Snapshot()
	r.Insert("b", 2)

	assert.Len(t, snap, 1)
	assert.Equal(t, 2, r.Len())
}

type fakeStoppable struct {
	delay time.Duration
	mu    sync.Mutex
	stopped bool
}

func (f *fakeStoppable) Stop() {
	time.Sleep(f.delay)
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func TestStopAllWaitsForAllWithinTimeout(t *testing.T) {
	r := NewRegistry[string, *fakeStoppable]()
	a := &fakeStoppable{delay: 10 * time.Millisecond}
	b := &fakeStoppable{delay: 20 * time.Millisecond}
	r.Insert("a", a)
	r.Insert("b", b)

	stopped, abandoned := StopAll(r)
	assert.Equal(t, 2, stopped)
	assert.Equal(t, 0, abandoned)
	assert.True(t, a.stopped)
	assert.True(t, b.stopped)
}
