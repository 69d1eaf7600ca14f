// ABOUTME: OpenTelemetry instruments for the sender and receiver
// ABOUTME: Counters, latency histogram, jitter gauge and queue depth observer
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all airwave metrics
const meterName = "github.com/Resonate-Protocol/airwave-go"

// Metrics holds every instrument. The OTel types are safe for concurrent use.
type Metrics struct {
	// Receiver

	PacketsReceived metric.Int64Counter
	// PacketsMalformed carries attribute "reason"
	PacketsMalformed metric.Int64Counter
	PacketsReordered metric.Int64Counter
	QueueDropped     metric.Int64Counter
	FramesPlayed     metric.Int64Counter
	Underruns        metric.Int64Counter
	Latency          metric.Float64Histogram
	Jitter           metric.Float64Gauge

	// Sender

	FramesSent    metric.Int64Counter
	BytesSent     metric.Int64Counter
	SendErrors    metric.Int64Counter
	InputOverflow metric.Int64Counter

	meter metric.Meter
}

// latencyBuckets are in seconds, tuned for LAN one-way delay plus clock offset
var latencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates every instrument from mp
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{meter: m}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&met.PacketsReceived, "airwave.packets.received", "Datagrams decoded and queued.", "{packet}"},
		{&met.PacketsMalformed, "airwave.packets.malformed", "Datagrams dropped as malformed, by reason.", "{packet}"},
		{&met.PacketsReordered, "airwave.packets.reordered", "Datagrams older than their predecessor.", "{packet}"},
		{&met.QueueDropped, "airwave.queue.dropped", "Frames dropped by the bounded playout queue.", "{frame}"},
		{&met.FramesPlayed, "airwave.frames.played", "Frames written to the output device.", "{frame}"},
		{&met.Underruns, "airwave.underruns", "Playback stalls on an empty queue.", "{underrun}"},
		{&met.FramesSent, "airwave.frames.sent", "Frames broadcast by the sender.", "{frame}"},
		{&met.BytesSent, "airwave.bytes.sent", "Datagram bytes broadcast by the sender.", "By"},
		{&met.SendErrors, "airwave.send.errors", "Failed datagram sends.", "{error}"},
		{&met.InputOverflow, "airwave.input.overflow", "Captured bytes dropped because the capture buffer was full.", "By"},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name,
			metric.WithDescription(c.desc),
			metric.WithUnit(c.unit),
		); err != nil {
			return nil, err
		}
	}

	if met.Latency, err = m.Float64Histogram("airwave.latency",
		metric.WithDescription("One-way latency from origination timestamp, including clock offset."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Jitter, err = m.Float64Gauge("airwave.jitter",
		metric.WithDescription("Interarrival jitter estimate."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// ObserveQueueDepth registers a callback reporting the playout queue length
func (m *Metrics) ObserveQueueDepth(depth func() int) (metric.Registration, error) {
	gauge, err := m.meter.Int64ObservableGauge("airwave.queue.depth",
		metric.WithDescription("Frames waiting in the playout queue."),
		metric.WithUnit("{frame}"),
	)
	if err != nil {
		return nil, err
	}
	return m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(gauge, int64(depth()))
		return nil
	}, gauge)
}

// RecordMalformed counts a dropped datagram under reason
func (m *Metrics) RecordMalformed(ctx context.Context, reason string) {
	m.PacketsMalformed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// DefaultMetrics returns metrics bound to the global MeterProvider. Call it
// after InitProvider so instruments reach the exporter.
func DefaultMetrics() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
		defaultMetrics = m
	})
	return defaultMetrics
}
