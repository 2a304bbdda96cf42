// Package metricsutil registers the handful of process counters the
// Core exposes to an operator: records read, RIBs throttled, messages
// corrupted. Built on github.com/VictoriaMetrics/metrics, the same
// label-in-name registration idiom the metrics package itself
// documents (no separate label API, unlike client_golang).
package metricsutil

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

// Stream holds one stream instance's counters, namespaced by a caller-
// supplied stream name so multiple Stream objects in one process don't
// collide in the global metrics.Set.
type Stream struct {
	recordsRead      *metrics.Counter
	recordsFiltered  *metrics.Counter
	ribsThrottled    *metrics.Counter
	corruptedRecords *metrics.Counter
	readersOpen      atomic.Int64
}

// NewStream registers (or looks up, if already registered under name)
// the counter set for one named stream.
func NewStream(name string) *Stream {
	label := fmt.Sprintf(`stream=%q`, name)
	s := &Stream{
		recordsRead:      metrics.GetOrCreateCounter(fmt.Sprintf(`bgpstream_records_read_total{%s}`, label)),
		recordsFiltered:  metrics.GetOrCreateCounter(fmt.Sprintf(`bgpstream_records_filtered_total{%s}`, label)),
		ribsThrottled:    metrics.GetOrCreateCounter(fmt.Sprintf(`bgpstream_ribs_throttled_total{%s}`, label)),
		corruptedRecords: metrics.GetOrCreateCounter(fmt.Sprintf(`bgpstream_corrupted_records_total{%s}`, label)),
	}
	metrics.GetOrCreateGauge(fmt.Sprintf(`bgpstream_readers_open{%s}`, label), func() float64 {
		return float64(s.readersOpen.Load())
	})
	return s
}

// RecordRead increments the records-read counter.
func (s *Stream) RecordRead() { s.recordsRead.Inc() }

// RecordFiltered increments the records-filtered-out counter.
func (s *Stream) RecordFiltered() { s.recordsFiltered.Inc() }

// RIBThrottled increments the RIB-skipped-by-throttle counter.
func (s *Stream) RIBThrottled() { s.ribsThrottled.Inc() }

// CorruptedRecord increments the corrupted-message counter.
func (s *Stream) CorruptedRecord() { s.corruptedRecords.Inc() }

// SetReadersOpen sets the current open-reader gauge.
func (s *Stream) SetReadersOpen(n int) { s.readersOpen.Store(int64(n)) }

// ServeHTTP exposes the process's full metrics set in VictoriaMetrics/
// Prometheus text exposition format, for cmd/bgpstream's optional
// --metrics_addr flag.
func ServeHTTP(w http.ResponseWriter, r *http.Request) {
	metrics.WritePrometheus(w, true)
}
