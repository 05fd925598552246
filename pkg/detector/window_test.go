package detector

import (
	"math"
	"math/rand"
	"testing"

	"github.com/montanaflynn/stats"
)

func TestHeartbeatHistoryEviction(t *testing.T) {
	h := newHeartbeatHistory(3)
	for _, v := range []int64{100, 200, 300, 400, 500} {
		h.add(v)
	}

	if h.size() != 3 {
		t.Fatalf("size() => %d, want 3", h.size())
	}

	got := h.snapshot()
	want := []int64{300, 400, 500}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot() => %v, want %v", got, want)
		}
	}

	if h.intervalSum != 1200 {
		t.Errorf("intervalSum => %d, want 1200", h.intervalSum)
	}
	if h.squaredIntervalSum != 500000 {
		t.Errorf("squaredIntervalSum => %d, want 500000", h.squaredIntervalSum)
	}
}

// The running aggregates must match a naive recomputation from the
// retained samples across many eviction cycles.
func TestHeartbeatHistoryAggregatesNoDrift(t *testing.T) {
	h := newHeartbeatHistory(16)
	rnd := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		h.add(int64(rnd.Intn(5000)))

		var sum, squaredSum int64
		data := make([]float64, 0, h.size())
		for _, v := range h.snapshot() {
			sum += v
			squaredSum += v * v
			data = append(data, float64(v))
		}

		if sum != h.intervalSum || squaredSum != h.squaredIntervalSum {
			t.Fatalf("aggregates drifted after %d samples: sum %d/%d, squaredSum %d/%d",
				i+1, h.intervalSum, sum, h.squaredIntervalSum, squaredSum)
		}

		mean, err := stats.Mean(data)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(mean-h.mean()) > 1e-9 {
			t.Fatalf("mean() => %f, naive recomputation => %f", h.mean(), mean)
		}

		variance, err := stats.PopulationVariance(data)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(variance-h.variance()) > 1e-6*math.Max(variance, 1) {
			t.Fatalf("variance() => %f, naive recomputation => %f", h.variance(), variance)
		}
	}
}

// Large means with tiny spread can leave variance() a hair below zero;
// stdDeviation must clamp instead of producing NaN.
func TestStdDeviationNeverNaN(t *testing.T) {
	h := newHeartbeatHistory(2)
	h.add(1000000000)
	h.add(1000000001)

	if v := h.stdDeviation(); math.IsNaN(v) || v < 0 {
		t.Errorf("stdDeviation() => %f, want a non-negative number", v)
	}
}

func TestHeartbeatHistoryCapacityOne(t *testing.T) {
	h := newHeartbeatHistory(1)
	h.add(375)
	h.add(625)

	if h.size() != 1 {
		t.Fatalf("size() => %d, want 1", h.size())
	}
	if h.intervalSum != 625 || h.squaredIntervalSum != 625*625 {
		t.Errorf("aggregates => %d/%d, want 625/%d", h.intervalSum, h.squaredIntervalSum, 625*625)
	}
}
