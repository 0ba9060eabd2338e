package mmwave

import (
	"sync/atomic"
	"time"
)

// Metrics tracks operational statistics for the driver.
type Metrics struct {
	// Byte counters
	RxBytes atomic.Uint64 // Total bytes received from the module
	TxBytes atomic.Uint64 // Total bytes written to the module

	// Frame counters
	FramesParsed atomic.Uint64 // Complete frames delivered by the parser
	TxFrames     atomic.Uint64 // Frames transmitted

	// Drop counters by reason
	ChecksumDrops atomic.Uint64 // Frames dropped on checksum or footer
	LengthDrops   atomic.Uint64 // Frames dropped on length mismatch
	MemoryDrops   atomic.Uint64 // Frames dropped on refused allocation
	QueueDrops    atomic.Uint64 // Frames or events dropped on a full queue

	// Memory accounting
	AllocRefusals atomic.Uint64 // Accountant refusals

	// Delivered events
	Reports   atomic.Uint64 // Reports queued for the application
	Responses atomic.Uint64 // Responses queued for the application

	// Driver lifecycle
	StartTime atomic.Int64 // Start timestamp (UnixNano)
	StopTime  atomic.Int64 // Stop timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// Stop marks the driver as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of the counters with a few
// derived statistics.
type MetricsSnapshot struct {
	RxBytes       uint64
	TxBytes       uint64
	FramesParsed  uint64
	TxFrames      uint64
	ChecksumDrops uint64
	LengthDrops   uint64
	MemoryDrops   uint64
	QueueDrops    uint64
	AllocRefusals uint64
	Reports       uint64
	Responses     uint64

	UptimeNs      uint64
	FramesPerSec  float64
	DropRate      float64 // Dropped frames as a percentage of frames seen
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		RxBytes:       m.RxBytes.Load(),
		TxBytes:       m.TxBytes.Load(),
		FramesParsed:  m.FramesParsed.Load(),
		TxFrames:      m.TxFrames.Load(),
		ChecksumDrops: m.ChecksumDrops.Load(),
		LengthDrops:   m.LengthDrops.Load(),
		MemoryDrops:   m.MemoryDrops.Load(),
		QueueDrops:    m.QueueDrops.Load(),
		AllocRefusals: m.AllocRefusals.Load(),
		Reports:       m.Reports.Load(),
		Responses:     m.Responses.Load(),
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		snap.FramesPerSec = float64(snap.FramesParsed) / (float64(snap.UptimeNs) / 1e9)
	}

	dropped := snap.ChecksumDrops + snap.LengthDrops + snap.MemoryDrops + snap.QueueDrops
	if seen := snap.FramesParsed + dropped; seen > 0 {
		snap.DropRate = float64(dropped) / float64(seen) * 100.0
	}

	return snap
}

// Reset resets all counters (useful for testing).
func (m *Metrics) Reset() {
	m.RxBytes.Store(0)
	m.TxBytes.Store(0)
	m.FramesParsed.Store(0)
	m.TxFrames.Store(0)
	m.ChecksumDrops.Store(0)
	m.LengthDrops.Store(0)
	m.MemoryDrops.Store(0)
	m.QueueDrops.Store(0)
	m.AllocRefusals.Store(0)
	m.Reports.Store(0)
	m.Responses.Store(0)
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection. Implementations must be
// thread-safe: methods are called from the RX, TX and decoder loops.
type Observer interface {
	ObserveRxBytes(n int)
	ObserveTxFrame(n int)
	ObserveFrameParsed(n int)
	ObserveFrameDropped(reason string)
	ObserveQueueDrop()
	ObserveAllocRefused()
	ObserveReport()
	ObserveResponse()
}

// Drop reasons passed to ObserveFrameDropped.
const (
	DropReasonChecksum = "checksum"
	DropReasonFooter   = "footer"
	DropReasonLength   = "length"
	DropReasonMemory   = "memory"
	DropReasonQueue    = "queue"
)

// NoOpObserver is a no-op implementation of Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveRxBytes(int)          {}
func (NoOpObserver) ObserveTxFrame(int)          {}
func (NoOpObserver) ObserveFrameParsed(int)      {}
func (NoOpObserver) ObserveFrameDropped(string)  {}
func (NoOpObserver) ObserveQueueDrop()           {}
func (NoOpObserver) ObserveAllocRefused()        {}
func (NoOpObserver) ObserveReport()              {}
func (NoOpObserver) ObserveResponse()            {}

// MetricsObserver implements Observer using the built-in Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveRxBytes(n int) {
	o.metrics.RxBytes.Add(uint64(n))
}

func (o *MetricsObserver) ObserveTxFrame(n int) {
	o.metrics.TxFrames.Add(1)
	o.metrics.TxBytes.Add(uint64(n))
}

func (o *MetricsObserver) ObserveFrameParsed(n int) {
	o.metrics.FramesParsed.Add(1)
}

func (o *MetricsObserver) ObserveFrameDropped(reason string) {
	switch reason {
	case DropReasonChecksum, DropReasonFooter:
		o.metrics.ChecksumDrops.Add(1)
	case DropReasonLength:
		o.metrics.LengthDrops.Add(1)
	case DropReasonMemory:
		o.metrics.MemoryDrops.Add(1)
	case DropReasonQueue:
		o.metrics.QueueDrops.Add(1)
	}
}

func (o *MetricsObserver) ObserveQueueDrop() {
	o.metrics.QueueDrops.Add(1)
}

func (o *MetricsObserver) ObserveAllocRefused() {
	o.metrics.AllocRefusals.Add(1)
}

func (o *MetricsObserver) ObserveReport() {
	o.metrics.Reports.Add(1)
}

func (o *MetricsObserver) ObserveResponse() {
	o.metrics.Responses.Add(1)
}

// Compile-time interface checks
var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
