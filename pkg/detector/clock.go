package detector

import "time"

// clock supplies the current time for the implicit-timestamp
// operations, so that wall-clock behaviour can be scripted in tests.
type clock func() time.Time

func defaultClock() time.Time {
	return time.Now()
}

type fakeClock struct {
	index int
	times []time.Time
}

func (c *fakeClock) apply() time.Time {
	r := c.times[c.index]
	c.index++
	return r
}

// newFakeClock builds a clock that replays timestamps separated by the
// given intervals (in milliseconds), one per call.
func newFakeClock(intervalsMillis []int) clock {
	var t time.Time
	r := make([]time.Time, len(intervalsMillis))

	for i, v := range intervalsMillis {
		t = t.Add(time.Duration(v) * time.Millisecond)
		r[i] = t
	}

	c := &fakeClock{index: 0, times: r}

	return c.apply
}
