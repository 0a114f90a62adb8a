package main

import "time"

// fpsLimiter provides high-precision frame rate limiting
type fpsLimiter struct {
	limit int
	next  time.Time
}

func newFPSLimiter(limit int) *fpsLimiter {
	return &fpsLimiter{limit: limit}
}

// target is the frame budget, or zero when unlimited.
func (f *fpsLimiter) target() time.Duration {
	if f.limit <= 0 {
		return 0
	}
	return time.Second / time.Duration(f.limit)
}

// Wait blocks until the next frame should be rendered.
// Sleeps until shortly before the deadline, then spins for the remainder.
func (f *fpsLimiter) Wait() {
	target := f.target()
	if target == 0 {
		f.next = time.Time{}
		return
	}

	if f.next.IsZero() {
		f.next = time.Now().Add(target)
	} else {
		f.next = f.next.Add(target)
	}

	for {
		remaining := time.Until(f.next)
		if remaining <= 0 {
			break
		}
		if remaining > 200*time.Microsecond {
			time.Sleep(remaining - 200*time.Microsecond)
		}
	}

	// resync after a hitch instead of rushing to catch up
	if late := -time.Until(f.next); late > target {
		f.next = time.Now().Add(target)
	}
}
