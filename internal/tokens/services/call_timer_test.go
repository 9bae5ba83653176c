package services

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallTimerFires(t *testing.T) {
	fired := make(chan int64, 1)
	timer := NewCallTimer(20*time.Millisecond, func(id int64) { fired <- id })

	timer.Schedule(7)
	assert.Equal(t, 1, timer.Pending())

	select {
	case id := <-fired:
		assert.Equal(t, int64(7), id)
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
	assert.Equal(t, 0, timer.Pending())
}

func TestCallTimerCancel(t *testing.T) {
	var calls atomic.Int32
	timer := NewCallTimer(30*time.Millisecond, func(int64) { calls.Add(1) })

	timer.Schedule(1)
	require.True(t, timer.Cancel(1))
	assert.False(t, timer.Cancel(1))

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestCallTimerRescheduleReplaces(t *testing.T) {
	var calls atomic.Int32
	timer := NewCallTimer(30*time.Millisecond, func(int64) { calls.Add(1) })

	timer.Schedule(1)
	timer.Schedule(1)
	assert.Equal(t, 1, timer.Pending())

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCallTimerDisabledAndStopped(t *testing.T) {
	disabled := NewCallTimer(0, func(int64) { t.Error("must not fire") })
	disabled.Schedule(1)
	assert.Equal(t, 0, disabled.Pending())

	var calls atomic.Int32
	timer := NewCallTimer(20*time.Millisecond, func(int64) { calls.Add(1) })
	timer.Schedule(1)
	timer.Schedule(2)
	timer.Stop()
	timer.Schedule(3)
	assert.Equal(t, 0, timer.Pending())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}
