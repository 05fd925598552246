package detector

import (
	"math"
	"sync"
	"time"

	"github.com/nm-morais/go-accrual/configs"
	"github.com/nm-morais/go-accrual/pkg/errors"
	"github.com/nm-morais/go-accrual/pkg/logs"
	"github.com/sirupsen/logrus"
)

const detectorCaller = "PhiDetector"

// PhiAccrualDetector is an implementation of 'The Phi Accrual Failure
// Detector' by Hayashibara et al.
// [https://www.jaist.ac.jp/~defago/files/pdf/IS_RR_2004_010.pdf]
//
// Instead of a binary alive/dead verdict from a fixed timeout, the
// detector outputs a continuous suspicion level called φ (phi), on a
// scale that is dynamically adjusted to the observed heartbeat
// inter-arrival jitter. The value of φ is calculated as:
//
//	φ = -log10(1 - F(timeSinceLastHeartbeat))
//
// where F is the cumulative distribution function of a normal
// distribution with mean and standard deviation estimated from
// historical inter-arrival times.
//
// A detector instance monitors a single heartbeat stream. It is safe
// for concurrent use: heartbeats are serialized under a mutex and phi
// queries take a read lock.
//
// threshold                - φ value above which the peer is reported
//                            unavailable. A low threshold generates many
//                            wrong suspicions but detects real crashes
//                            quickly; a high one makes fewer mistakes but
//                            needs more time.
// maxSampleSize            - number of inter-arrival samples retained for
//                            the mean/standard deviation estimate.
// minStdDeviation          - floor on the estimated standard deviation,
//                            guarding against over-sensitivity when the
//                            observed jitter is naturally low.
// acceptableHeartbeatPause - duration of expected, non-anomalous pauses
//                            (scheduling hiccups, GC) tolerated on top of
//                            the estimated mean.
// firstHeartbeatEstimate   - bootstraps the statistics with a plausible
//                            interval (and a rather high standard
//                            deviation, since the environment is unknown
//                            at the start).
type PhiAccrualDetector struct {
	threshold                      float64
	minStdDeviationMillis          float64
	acceptableHeartbeatPauseMillis int64
	eventStream                    chan<- time.Duration
	clock                          clock
	logger                         *logrus.Logger

	mu                 sync.RWMutex
	history            heartbeatHistory
	lastTimestamp      time.Time
	acceptedIntervals  uint64
	discardedIntervals uint64
}

// Stats is a point-in-time snapshot of a detector's bookkeeping.
type Stats struct {
	AcceptedIntervals  uint64
	DiscardedIntervals uint64
	SampleWindowSize   int
	MeanMillis         float64
	StdDeviationMillis float64
}

// New creates a failure detector. The eventStream channel is optional;
// when set, accepted intervals reaching half the acceptable heartbeat
// pause are offered to it (without blocking) as an early warning that
// the interval is growing.
func New(
	threshold float64,
	maxSampleSize int,
	minStdDeviation time.Duration,
	acceptableHeartbeatPause time.Duration,
	firstHeartbeatEstimate time.Duration,
	eventStream chan<- time.Duration) (*PhiAccrualDetector, errors.Error) {

	if threshold <= 0 {
		return nil, errors.InvalidArgument("threshold must be > 0", detectorCaller)
	}

	if maxSampleSize < 1 {
		return nil, errors.InvalidArgument("maxSampleSize must be >= 1", detectorCaller)
	}

	if minStdDeviation <= 0 {
		return nil, errors.InvalidArgument("minStdDeviation must be > 0", detectorCaller)
	}

	if acceptableHeartbeatPause < 0 {
		return nil, errors.InvalidArgument("acceptableHeartbeatPause must be >= 0", detectorCaller)
	}

	if firstHeartbeatEstimate <= 0 {
		return nil, errors.InvalidArgument("firstHeartbeatEstimate must be > 0", detectorCaller)
	}

	d := &PhiAccrualDetector{
		threshold:                      threshold,
		minStdDeviationMillis:          float64(minStdDeviation.Milliseconds()),
		acceptableHeartbeatPauseMillis: acceptableHeartbeatPause.Milliseconds(),
		eventStream:                    eventStream,
		clock:                          defaultClock,
		logger:                         logs.NewLogger(detectorCaller),
		history:                        bootstrapHistory(maxSampleSize, firstHeartbeatEstimate.Milliseconds()),
	}
	d.logger.Infof("New detector: threshold=%.1f maxSampleSize=%d minStdDeviation=%s acceptableHeartbeatPause=%s firstHeartbeatEstimate=%s",
		threshold, maxSampleSize, minStdDeviation, acceptableHeartbeatPause, firstHeartbeatEstimate)
	return d, nil
}

// NewFromConfig creates a failure detector from a DetectorConfig.
func NewFromConfig(cfg configs.DetectorConfig, eventStream chan<- time.Duration) (*PhiAccrualDetector, errors.Error) {
	return New(
		cfg.Threshold,
		cfg.MaxSampleSize,
		cfg.MinStdDeviation,
		cfg.AcceptableHeartbeatPause,
		cfg.FirstHeartbeatEstimate,
		eventStream)
}

// NewDefault creates a failure detector with the stock configuration.
func NewDefault() *PhiAccrualDetector {
	d, err := NewFromConfig(configs.DefaultDetectorConfig(), nil)
	if err != nil {
		panic(err)
	}
	return d
}

// bootstrapHistory seeds the window with two synthetic samples spread
// around the first heartbeat estimate, giving the estimator a plausible
// mean and variance before any real heartbeat arrives.
func bootstrapHistory(maxSampleSize int, firstHeartbeatEstimateMillis int64) heartbeatHistory {
	stdDeviationMillis := firstHeartbeatEstimateMillis / 4
	h := newHeartbeatHistory(maxSampleSize)
	h.add(firstHeartbeatEstimateMillis - stdDeviationMillis)
	h.add(firstHeartbeatEstimateMillis + stdDeviationMillis)
	return h
}

// Phi returns the suspicion level as of the given timestamp. Before any
// heartbeat has been recorded it is 0: a stream that was never heard
// from is treated as healthy.
func (d *PhiAccrualDetector) Phi(timestamp time.Time) float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.phi(timestamp)
}

// PhiNow returns the suspicion level as of the current clock time.
func (d *PhiAccrualDetector) PhiNow() float64 {
	return d.Phi(d.clock())
}

// IsAvailable reports whether the monitored peer is considered up as of
// the given timestamp.
func (d *PhiAccrualDetector) IsAvailable(timestamp time.Time) bool {
	return d.Phi(timestamp) < d.threshold
}

// IsAvailableNow reports availability as of the current clock time.
func (d *PhiAccrualDetector) IsAvailableNow() bool {
	return d.IsAvailable(d.clock())
}

// IsMonitoring reports whether at least one heartbeat has been
// recorded.
func (d *PhiAccrualDetector) IsMonitoring() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return !d.lastTimestamp.IsZero()
}

// Heartbeat records a heartbeat observed at the given timestamp. The
// elapsed interval since the previous heartbeat is folded into the
// sample window only if the stream still looks available; an anomalous
// gap advances the timestamp without polluting the statistics, so after
// a long pause the next interval is measured from the pause's end.
func (d *PhiAccrualDetector) Heartbeat(timestamp time.Time) {
	d.mu.Lock()

	last := d.lastTimestamp
	d.lastTimestamp = timestamp
	if last.IsZero() {
		d.mu.Unlock()
		return
	}

	intervalMillis := timestamp.Sub(last).Milliseconds()
	if d.phi(timestamp) < d.threshold {
		d.history.add(intervalMillis)
		d.acceptedIntervals++
		if d.eventStream != nil && d.acceptableHeartbeatPauseMillis > 0 &&
			intervalMillis >= d.acceptableHeartbeatPauseMillis/2 {
			select {
			case d.eventStream <- time.Duration(intervalMillis) * time.Millisecond:
			default:
			}
		}
		d.mu.Unlock()
		return
	}

	d.discardedIntervals++
	d.mu.Unlock()
	d.logger.Warnf("Discarded anomalous heartbeat interval of %dms", intervalMillis)
}

// HeartbeatNow records a heartbeat at the current clock time.
func (d *PhiAccrualDetector) HeartbeatNow() {
	d.Heartbeat(d.clock())
}

// Stats returns a snapshot of the detector's counters and current
// window estimate.
func (d *PhiAccrualDetector) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Stats{
		AcceptedIntervals:  d.acceptedIntervals,
		DiscardedIntervals: d.discardedIntervals,
		SampleWindowSize:   d.history.size(),
		MeanMillis:         d.history.mean(),
		StdDeviationMillis: d.history.stdDeviation(),
	}
}

// Logger of this detector.
func (d *PhiAccrualDetector) Logger() *logrus.Logger {
	return d.logger
}

// phi computes the suspicion level. Callers must hold at least a read
// lock.
func (d *PhiAccrualDetector) phi(timestamp time.Time) float64 {
	if d.lastTimestamp.IsZero() {
		return 0.0
	}

	timeDiffMillis := float64(timestamp.Sub(d.lastTimestamp).Milliseconds())
	meanMillis := d.history.mean() + float64(d.acceptableHeartbeatPauseMillis)
	stdDeviationMillis := math.Max(d.history.stdDeviation(), d.minStdDeviationMillis)

	return phi(timeDiffMillis, meanMillis, stdDeviationMillis)
}

// phi evaluates -log10 of the normal distribution's upper tail at
// timeDiff, using the closed-form logistic approximation from the
// Hayashibara paper instead of an error-function implementation. The
// two branches are near-symmetric reformulations: the first keeps
// precision when e is tiny, the second when e is huge.
func phi(timeDiff, mean, stdDeviation float64) float64 {
	y := (timeDiff - mean) / stdDeviation
	e := math.Exp(-y * (1.5976 + 0.070566*y*y))

	if timeDiff > mean {
		return -math.Log10(e / (1.0 + e))
	}

	return -math.Log10(1.0 - 1.0/(1.0+e))
}
