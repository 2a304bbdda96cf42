// Package ratelimit provides two small rate-limiting helpers used
// across the Core: a per-key minimum-spacing gate (the RIB throttle)
// and a thin wrapper around golang.org/x/time/rate for transports that
// need real token-bucket backpressure (the Kafka poll-loop governor).
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Spacing enforces "at most one admission per key every period", used
// by filter.Manager for the per-(project, collector) RIB throttle
// (spec.md §4.7, Testable Property #8). It is a last-seen-time map, not
// a token bucket, because the rule is about backdating tolerance
// relative to resource initial_time, not wall-clock arrival time.
type Spacing struct {
	mu       sync.Mutex
	period   uint32
	lastSeen map[string]uint32
}

// NewSpacing returns a Spacing gate with the given minimum period (in
// the same units as the times passed to Admit, typically seconds).
// period == 0 disables throttling (every call admits).
func NewSpacing(period uint32) *Spacing {
	return &Spacing{period: period, lastSeen: make(map[string]uint32)}
}

// Admit reports whether a resource with the given key and time should
// be admitted: true for the first time seen for key, or whenever
// time >= lastAdmitted + period.
func (s *Spacing) Admit(key string, t uint32) bool {
	if s.period == 0 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.lastSeen[key]
	if !ok || t >= last+s.period {
		s.lastSeen[key] = t
		return true
	}
	return false
}

// PollGovernor wraps rate.Limiter for a transport's poll loop, so a
// live Kafka (or any push-style) source can be throttled without
// busy-spinning when the broker is producing faster than the consumer
// wants to process.
type PollGovernor struct {
	limiter *rate.Limiter
}

// NewPollGovernor returns a governor allowing r events/sec with burst b.
func NewPollGovernor(r float64, b int) *PollGovernor {
	return &PollGovernor{limiter: rate.NewLimiter(rate.Limit(r), b)}
}

// Allow reports whether a poll may proceed now without blocking.
func (g *PollGovernor) Allow() bool {
	return g.limiter.Allow()
}
