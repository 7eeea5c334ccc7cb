package tracker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduler_FiresAfterQuietPeriod(t *testing.T) {
	flushed := make(chan struct{}, 1)
	s := NewScheduler(50*time.Millisecond, func() { flushed <- struct{}{} })
	defer s.Stop()

	s.Notify()

	select {
	case <-flushed:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for flush")
	}
}

func TestScheduler_BurstCollapsesToOneFlush(t *testing.T) {
	var flushes atomic.Int32
	s := NewScheduler(60*time.Millisecond, func() { flushes.Add(1) })
	defer s.Stop()

	// Notifications arriving within the window keep resetting the timer
	for i := 0; i < 5; i++ {
		s.Notify()
		time.Sleep(15 * time.Millisecond)
	}

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), flushes.Load())
}

func TestScheduler_NotifyResetsCountdown(t *testing.T) {
	var flushes atomic.Int32
	s := NewScheduler(80*time.Millisecond, func() { flushes.Add(1) })
	defer s.Stop()

	s.Notify()
	time.Sleep(50 * time.Millisecond)
	// Still inside the window; no flush yet
	assert.Equal(t, int32(0), flushes.Load())

	s.Notify()
	time.Sleep(50 * time.Millisecond)
	// The second notify pushed the deadline out
	assert.Equal(t, int32(0), flushes.Load())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), flushes.Load())
}

func TestScheduler_FlushNowFiresImmediately(t *testing.T) {
	var flushes atomic.Int32
	s := NewScheduler(time.Hour, func() { flushes.Add(1) })
	defer s.Stop()

	s.Notify()
	s.FlushNow()

	assert.Equal(t, int32(1), flushes.Load())

	// The pending countdown was cancelled; nothing fires later
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), flushes.Load())
}

func TestScheduler_StopCancelsPendingFlush(t *testing.T) {
	var flushes atomic.Int32
	s := NewScheduler(30*time.Millisecond, func() { flushes.Add(1) })

	s.Notify()
	s.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), flushes.Load())

	// Notify after Stop is a no-op
	s.Notify()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), flushes.Load())
}
