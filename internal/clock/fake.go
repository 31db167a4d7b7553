package clock

import "time"

// FakeClock reports a fixed instant until moved with Advance. Tests use it to
// pin billing period math and send-due checks to a known time.
type FakeClock struct {
	current time.Time
}

// NewFakeClock starts the clock at the given instant, normalized to UTC the
// same way the real clock reports time.
func NewFakeClock(at time.Time) *FakeClock {
	return &FakeClock{current: at.UTC()}
}

func (f *FakeClock) Now() time.Time { return f.current }

// Advance moves the clock by d, which may be negative.
func (f *FakeClock) Advance(d time.Duration) {
	f.current = f.current.Add(d)
}
