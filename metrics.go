package aio

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds,
// log-spaced from 1us to 10s — unchanged from the teacher's histogram
// shape, since nothing about the domain change affects what a sensible
// latency spread for an async I/O op looks like.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks IoContext-wide performance and operational statistics.
type Metrics struct {
	ReadOps    atomic.Uint64
	WriteOps   atomic.Uint64
	AcceptOps  atomic.Uint64
	ConnectOps atomic.Uint64

	ReadBytes  atomic.Uint64
	WriteBytes atomic.Uint64

	ReadErrors    atomic.Uint64
	WriteErrors   atomic.Uint64
	AcceptErrors  atomic.Uint64
	ConnectErrors atomic.Uint64
	Cancellations atomic.Uint64

	PendingOpsTotal atomic.Uint64 // cumulative pending-queue-depth samples
	PendingOpsCount atomic.Uint64
	MaxPendingOps   atomic.Uint32

	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordRead records a completed (or failed) read.
func (m *Metrics) RecordRead(bytes uint64, latencyNs uint64, success bool) {
	m.ReadOps.Add(1)
	if success {
		m.ReadBytes.Add(bytes)
	} else {
		m.ReadErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordWrite records a completed (or failed) write.
func (m *Metrics) RecordWrite(bytes uint64, latencyNs uint64, success bool) {
	m.WriteOps.Add(1)
	if success {
		m.WriteBytes.Add(bytes)
	} else {
		m.WriteErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordAccept records a completed (or failed) accept.
func (m *Metrics) RecordAccept(latencyNs uint64, success bool) {
	m.AcceptOps.Add(1)
	if !success {
		m.AcceptErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordConnect records a completed (or failed) outbound connect.
func (m *Metrics) RecordConnect(latencyNs uint64, success bool) {
	m.ConnectOps.Add(1)
	if !success {
		m.ConnectErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordCancellation records an operation that completed canceled rather
// than succeeded or failed.
func (m *Metrics) RecordCancellation() {
	m.Cancellations.Add(1)
}

// RecordPendingOps records the current size of IoContext's pending-op
// queue, the same way go-ublk's RecordQueueDepth tracked in-flight ublk
// queue depth.
func (m *Metrics) RecordPendingOps(depth uint32) {
	m.PendingOpsTotal.Add(uint64(depth))
	m.PendingOpsCount.Add(1)
	for {
		current := m.MaxPendingOps.Load()
		if depth <= current {
			break
		}
		if m.MaxPendingOps.CompareAndSwap(current, depth) {
			break
		}
	}
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the context as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time snapshot of Metrics plus derived
// statistics.
type MetricsSnapshot struct {
	ReadOps    uint64
	WriteOps   uint64
	AcceptOps  uint64
	ConnectOps uint64

	ReadBytes  uint64
	WriteBytes uint64

	ReadErrors    uint64
	WriteErrors   uint64
	AcceptErrors  uint64
	ConnectErrors uint64
	Cancellations uint64

	AvgPendingOps float64
	MaxPendingOps uint32

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	ReadIOPS       float64
	WriteIOPS      float64
	ReadBandwidth  float64
	WriteBandwidth float64
	TotalOps       uint64
	TotalBytes     uint64
	ErrorRate      float64
}

// Snapshot produces a MetricsSnapshot, computing derived rates and
// percentiles from the raw counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		ReadOps:       m.ReadOps.Load(),
		WriteOps:      m.WriteOps.Load(),
		AcceptOps:     m.AcceptOps.Load(),
		ConnectOps:    m.ConnectOps.Load(),
		ReadBytes:     m.ReadBytes.Load(),
		WriteBytes:    m.WriteBytes.Load(),
		ReadErrors:    m.ReadErrors.Load(),
		WriteErrors:   m.WriteErrors.Load(),
		AcceptErrors:  m.AcceptErrors.Load(),
		ConnectErrors: m.ConnectErrors.Load(),
		Cancellations: m.Cancellations.Load(),
		MaxPendingOps: m.MaxPendingOps.Load(),
	}

	snap.TotalOps = snap.ReadOps + snap.WriteOps + snap.AcceptOps + snap.ConnectOps
	snap.TotalBytes = snap.ReadBytes + snap.WriteBytes

	pendingTotal := m.PendingOpsTotal.Load()
	pendingCount := m.PendingOpsCount.Load()
	if pendingCount > 0 {
		snap.AvgPendingOps = float64(pendingTotal) / float64(pendingCount)
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.ReadIOPS = float64(snap.ReadOps) / uptimeSeconds
		snap.WriteIOPS = float64(snap.WriteOps) / uptimeSeconds
		snap.ReadBandwidth = float64(snap.ReadBytes) / uptimeSeconds
		snap.WriteBandwidth = float64(snap.WriteBytes) / uptimeSeconds
	}

	totalErrors := snap.ReadErrors + snap.WriteErrors + snap.AcceptErrors + snap.ConnectErrors
	if snap.TotalOps > 0 {
		snap.ErrorRate = float64(totalErrors) / float64(snap.TotalOps) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile
// (0.0-1.0) via linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset zeroes every counter (used by tests that need a fresh Metrics
// without reallocating one).
func (m *Metrics) Reset() {
	m.ReadOps.Store(0)
	m.WriteOps.Store(0)
	m.AcceptOps.Store(0)
	m.ConnectOps.Store(0)
	m.ReadBytes.Store(0)
	m.WriteBytes.Store(0)
	m.ReadErrors.Store(0)
	m.WriteErrors.Store(0)
	m.AcceptErrors.Store(0)
	m.ConnectErrors.Store(0)
	m.Cancellations.Store(0)
	m.PendingOpsTotal.Store(0)
	m.PendingOpsCount.Store(0)
	m.MaxPendingOps.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection, the same shape as
// go-ublk's Observer interface generalized from block-device ops to
// socket/file ops.
type Observer interface {
	ObserveRead(bytes uint64, latencyNs uint64, success bool)
	ObserveWrite(bytes uint64, latencyNs uint64, success bool)
	ObserveAccept(latencyNs uint64, success bool)
	ObserveConnect(latencyNs uint64, success bool)
	ObserveCancellation()
	ObservePendingOps(depth uint32)
}

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) ObserveRead(uint64, uint64, bool)  {}
func (NoOpObserver) ObserveWrite(uint64, uint64, bool) {}
func (NoOpObserver) ObserveAccept(uint64, bool)        {}
func (NoOpObserver) ObserveConnect(uint64, bool)       {}
func (NoOpObserver) ObserveCancellation()              {}
func (NoOpObserver) ObservePendingOps(uint32)          {}

// MetricsObserver implements Observer on top of a *Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver returns an observer that records into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveRead(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordRead(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveWrite(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordWrite(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveAccept(latencyNs uint64, success bool) {
	o.metrics.RecordAccept(latencyNs, success)
}

func (o *MetricsObserver) ObserveConnect(latencyNs uint64, success bool) {
	o.metrics.RecordConnect(latencyNs, success)
}

func (o *MetricsObserver) ObserveCancellation() {
	o.metrics.RecordCancellation()
}

func (o *MetricsObserver) ObservePendingOps(depth uint32) {
	o.metrics.RecordPendingOps(depth)
}

var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
