package authengine

import (
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authengine/internal/flows"
)

// MetricID identifies an engine counter.
type MetricID uint16

const (
	MetricAuthenticateSuccess MetricID = iota
	MetricAuthenticateFailure
	MetricPasswordMismatch
	MetricMFARequired
	MetricTOTPSuccess
	MetricTOTPFailure
	MetricRecaptchaRequired
	MetricRecaptchaFailure
	MetricChallengeIssued
	MetricChallengeFailure
	MetricLockout
	MetricAccountDisabled
	MetricAccountEnabled
	MetricNewDevice
	MetricConcurrentAttempt
	MetricLogout
	MetricLogoutAll
	MetricRegistrationSuccess
	MetricRegistrationRollback
	MetricAccountActivated
	MetricPasswordChanged
	MetricForgotPasswordRequest
	MetricForgotPasswordCompleted
	MetricScheduledTaskRun
	MetricScheduledTaskFailure
	// MetricAuthenticateLatency is the only histogram.
	MetricAuthenticateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free in-process counters. A nil or disabled Metrics
// ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the latency histogram of id.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricAuthenticateLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricAuthenticateLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthenticateLatency].buckets[i])
		}
		s.Histograms[MetricAuthenticateLatency] = buckets
	}
	return s
}

// observer maps step machine events onto counters.
func (m *Metrics) observer() flows.Observer {
	return func(e flows.Event) {
		if id, ok := eventMetrics[e]; ok {
			m.Inc(id)
		}
	}
}

var eventMetrics = map[flows.Event]MetricID{
	flows.EventPasswordMismatch:  MetricPasswordMismatch,
	flows.EventMFARequired:       MetricMFARequired,
	flows.EventTOTPSuccess:       MetricTOTPSuccess,
	flows.EventTOTPFailure:       MetricTOTPFailure,
	flows.EventRecaptchaRequired: MetricRecaptchaRequired,
	flows.EventRecaptchaFailure:  MetricRecaptchaFailure,
	flows.EventChallengeIssued:   MetricChallengeIssued,
	flows.EventChallengeFailure:  MetricChallengeFailure,
	flows.EventLockout:           MetricLockout,
	flows.EventAccountDisabled:   MetricAccountDisabled,
	flows.EventAccountEnabled:    MetricAccountEnabled,
	flows.EventNewDevice:         MetricNewDevice,
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
