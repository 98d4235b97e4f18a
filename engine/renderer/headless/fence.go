package headless

import (
	"sync"
	"time"
)

type fence struct {
	device *Device

	mu        sync.Mutex
	completed uint64
	// closed and replaced every time completed moves
	changed chan struct{}
}

func newFence(d *Device, initial uint64) *fence {
	return &fence{
		device:    d,
		completed: initial,
		changed:   make(chan struct{}),
	}
}

func (f *fence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

func (f *fence) signal(value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if value <= f.completed {
		return
	}
	f.completed = value
	close(f.changed)
	f.changed = make(chan struct{})
}

func (f *fence) WaitFor(value uint64, timeout time.Duration) (bool, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	for {
		f.mu.Lock()
		reached := f.completed >= value
		changed := f.changed
		f.mu.Unlock()
		if reached {
			return true, nil
		}

		select {
		case <-changed:
		case <-f.device.lost:
			return false, f.device.Err()
		case <-deadline:
			return false, nil
		}
	}
}
