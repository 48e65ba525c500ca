// Package httputil provides shared utilities for the gateway's HTTP
// surface.
package httputil

import "sync/atomic"

// Semaphore bounds concurrent request evaluations so a traffic burst
// sheds load instead of stacking goroutines. Non-blocking by design:
// the HTTP layer answers 503 on a failed acquire rather than queueing.
type Semaphore struct {
	slots   chan struct{}
	dropped atomic.Int64
}

// NewSemaphore creates a semaphore with the given capacity.
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 100
	}
	return &Semaphore{slots: make(chan struct{}, capacity)}
}

// TryAcquire takes a slot without blocking. Returns false when at
// capacity; the drop is counted for monitoring.
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Release returns a slot. Must follow a successful TryAcquire.
func (s *Semaphore) Release() {
	select {
	case <-s.slots:
	default:
	}
}

// Stats reports capacity usage and cumulative drops.
func (s *Semaphore) Stats() SemaphoreStats {
	return SemaphoreStats{
		Capacity: cap(s.slots),
		InUse:    len(s.slots),
		Dropped:  s.dropped.Load(),
	}
}

// SemaphoreStats is a point-in-time view for monitoring backpressure.
type SemaphoreStats struct {
	Capacity int   `json:"capacity"`
	InUse    int   `json:"in_use"`
	Dropped  int64 `json:"dropped"`
}
