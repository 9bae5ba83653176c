package services

import (
	"sync"
	"time"
)

// CallTimer menjadwalkan auto-complete untuk token yang sedang Calling.
// Setiap token punya paling banyak satu timer; Complete manual membatalkannya.
type CallTimer struct {
	mu       sync.Mutex
	timeout  time.Duration
	timers   map[int64]*time.Timer
	onExpire func(tokenID int64)
	stopped  bool
}

// NewCallTimer dengan timeout <= 0 menghasilkan timer yang tidak pernah menjadwalkan apa pun.
func NewCallTimer(timeout time.Duration, onExpire func(tokenID int64)) *CallTimer {
	return &CallTimer{
		timeout:  timeout,
		timers:   make(map[int64]*time.Timer),
		onExpire: onExpire,
	}
}

func (t *CallTimer) Schedule(tokenID int64) {
	if t.timeout <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if old, ok := t.timers[tokenID]; ok {
		old.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(t.timeout, func() {
		t.mu.Lock()
		if t.timers[tokenID] != timer {
			t.mu.Unlock()
			return
		}
		delete(t.timers, tokenID)
		t.mu.Unlock()
		t.onExpire(tokenID)
	})
	t.timers[tokenID] = timer
}

// Cancel mengembalikan true bila ada timer yang dibatalkan.
func (t *CallTimer) Cancel(tokenID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	timer, ok := t.timers[tokenID]
	if !ok {
		return false
	}
	timer.Stop()
	delete(t.timers, tokenID)
	return true
}

// Stop membatalkan semua timer; Schedule berikutnya diabaikan.
func (t *CallTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}

func (t *CallTimer) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}
