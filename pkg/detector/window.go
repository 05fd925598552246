package detector

import (
	"fmt"
	"math"
)

// heartbeatHistory is a bounded window over the most recent heartbeat
// inter-arrival intervals. It keeps a running sum and sum of squares so
// that mean and variance are O(1) queries, and evicts the oldest sample
// once the window is full. Intervals are accumulated in integer
// milliseconds, which keeps the subtract-on-evict bookkeeping exact.
type heartbeatHistory struct {
	data   []int64
	head   int
	length int

	intervalSum        int64
	squaredIntervalSum int64
}

// newHeartbeatHistory creates an empty history retaining at most
// maxSampleSize intervals. The public constructor validates the sample
// size; a bad value reaching this point is a programming error.
func newHeartbeatHistory(maxSampleSize int) heartbeatHistory {
	if maxSampleSize < 1 {
		panic(fmt.Sprintf("maxSampleSize must be >= 1, got %d", maxSampleSize))
	}
	return heartbeatHistory{
		data: make([]int64, maxSampleSize),
	}
}

func (h *heartbeatHistory) size() int {
	return h.length
}

// add records an interval, evicting the oldest retained interval once
// the window is at capacity.
func (h *heartbeatHistory) add(intervalMillis int64) {
	old := h.data[h.head]
	if h.length < len(h.data) {
		h.length++
	}

	h.data[h.head] = intervalMillis
	h.head++
	if h.head >= len(h.data) {
		h.head = 0
	}

	h.intervalSum += intervalMillis - old
	h.squaredIntervalSum += intervalMillis*intervalMillis - old*old
}

func (h *heartbeatHistory) mean() float64 {
	return float64(h.intervalSum) / float64(h.length)
}

func (h *heartbeatHistory) variance() float64 {
	mean := h.mean()
	return float64(h.squaredIntervalSum)/float64(h.length) - mean*mean
}

// stdDeviation clamps the variance at zero before the square root;
// floating-point cancellation can leave it a hair below zero when the
// true variance is tiny.
func (h *heartbeatHistory) stdDeviation() float64 {
	return math.Sqrt(math.Max(h.variance(), 0))
}

// snapshot returns the retained intervals, oldest first.
func (h *heartbeatHistory) snapshot() []int64 {
	out := make([]int64, 0, h.length)
	if h.length < len(h.data) {
		return append(out, h.data[:h.length]...)
	}
	out = append(out, h.data[h.head:]...)
	return append(out, h.data[:h.head]...)
}
