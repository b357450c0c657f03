package vm

import "time"

// Clock is the platform's monotonic microsecond timer and the single
// 64-bit mtimecmp comparator the CLINT exposes (spec §3, "Clock").
// The host's nondeterminism is confined to nowMicros; everything else
// about the clock is deterministic given a sequence of reads.
type Clock struct {
	MTimeCmp uint64

	epoch     time.Time
	nowMicros func() int64 // overridable for tests
}

// NewClock returns a Clock anchored to the current host time, with the
// comparator parked far in the future so no spurious timer interrupt
// fires before the guest programs mtimecmp.
func NewClock() Clock {
	return Clock{
		MTimeCmp: ^uint64(0),
		epoch:    time.Now(),
	}
}

// MTime returns the current value of mtime: elapsed microseconds since
// the clock was created.
func (c *Clock) MTime() uint64 {
	if c.nowMicros != nil {
		return uint64(c.nowMicros())
	}
	return uint64(time.Since(c.epoch).Microseconds())
}

// Expired reports whether mtime has reached or passed mtimecmp, per
// spec §4.7 step 2.
func (c *Clock) Expired() bool {
	return c.MTime() >= c.MTimeCmp
}
