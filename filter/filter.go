// Package filter holds the user-supplied predicates (time windows,
// project/collector/peer/prefix/community sets, per-collector RIB rate
// limits) applied both at resource admission and at record/elem
// emission (spec.md §4.8, C8).
package filter

import (
	"fmt"

	"github.com/routeviews/bgpstream/bgpaddr"
	"github.com/routeviews/bgpstream/bgprecord"
	"github.com/routeviews/bgpstream/internal/ratelimit"
	"github.com/routeviews/bgpstream/resource"
)

// Dimension names one filterable axis of the consumer API (spec.md §6).
type Dimension string

const (
	DimProject      Dimension = "project"
	DimCollector    Dimension = "collector"
	DimRouter       Dimension = "router"
	DimPeerASN      Dimension = "peer_asn"
	DimPeerIP       Dimension = "peer_ip"
	DimPrefixExact  Dimension = "prefix_exact"
	DimPrefixAny    Dimension = "prefix_any"
	DimPrefixLess   Dimension = "prefix_less"
	DimCommunity    Dimension = "community"
	DimTimeInterval Dimension = "time_interval"
	DimRIBPeriod    Dimension = "rib_period"
)

// TimeInterval is a closed-open [Start, End) window in epoch seconds.
// End == 0 means "no upper bound".
type TimeInterval struct {
	Start uint32
	End   uint32
}

func (w TimeInterval) contains(t uint32) bool {
	if t < w.Start {
		return false
	}
	return w.End == 0 || t < w.End
}

// CommunityMode selects all-match vs any-match semantics for the
// community predicate.
type CommunityMode uint8

const (
	CommunityModeAny CommunityMode = iota
	CommunityModeAll
)

// Manager holds every filter dimension and applies them at the two
// points spec.md §4.8 names: resource admission (RIB throttling) and
// record/elem emission (the early-out hierarchy).
type Manager struct {
	projects   set[string]
	collectors set[string]
	routers    set[string]
	peerASNs   set[uint32]
	peerIPs    set[string]

	prefixesExact []bgpaddr.Prefix
	prefixesAny   []bgpaddr.Prefix
	prefixesLess  []bgpaddr.Prefix

	communities     []bgpaddr.Community
	communityMode   CommunityMode
	timeIntervals   []TimeInterval

	ribPeriod uint32
	ribGate   *ratelimit.Spacing
}

type set[T comparable] map[T]struct{}

func (s set[T]) add(v T)          { s[v] = struct{}{} }
func (s set[T]) has(v T) bool     { _, ok := s[v]; return ok }
func (s set[T]) empty() bool      { return len(s) == 0 }

// NewManager returns an empty filter manager (no dimension filters,
// i.e. everything passes).
func NewManager() *Manager {
	return &Manager{
		projects:   make(set[string]),
		collectors: make(set[string]),
		routers:    make(set[string]),
		peerASNs:   make(set[uint32]),
		peerIPs:    make(set[string]),
		ribGate:    ratelimit.NewSpacing(0),
	}
}

// Add installs one value for the given dimension. The accepted dynamic
// type of value depends on dim: string for project/collector/router/
// peer_ip, uint32 for peer_asn/rib_period, bgpaddr.Prefix for the three
// prefix dimensions, bgpaddr.Community for community, TimeInterval for
// time_interval.
func (m *Manager) Add(dim Dimension, value any) error {
	switch dim {
	case DimProject:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("filter: %s expects string", dim)
		}
		m.projects.add(s)
	case DimCollector:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("filter: %s expects string", dim)
		}
		m.collectors.add(s)
	case DimRouter:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("filter: %s expects string", dim)
		}
		m.routers.add(s)
	case DimPeerASN:
		v, ok := value.(uint32)
		if !ok {
			return fmt.Errorf("filter: %s expects uint32", dim)
		}
		m.peerASNs.add(v)
	case DimPeerIP:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("filter: %s expects string", dim)
		}
		m.peerIPs.add(s)
	case DimPrefixExact:
		p, ok := value.(bgpaddr.Prefix)
		if !ok {
			return fmt.Errorf("filter: %s expects bgpaddr.Prefix", dim)
		}
		m.prefixesExact = append(m.prefixesExact, p)
	case DimPrefixAny:
		p, ok := value.(bgpaddr.Prefix)
		if !ok {
			return fmt.Errorf("filter: %s expects bgpaddr.Prefix", dim)
		}
		m.prefixesAny = append(m.prefixesAny, p)
	case DimPrefixLess:
		p, ok := value.(bgpaddr.Prefix)
		if !ok {
			return fmt.Errorf("filter: %s expects bgpaddr.Prefix", dim)
		}
		m.prefixesLess = append(m.prefixesLess, p)
	case DimCommunity:
		c, ok := value.(bgpaddr.Community)
		if !ok {
			return fmt.Errorf("filter: %s expects bgpaddr.Community", dim)
		}
		m.communities = append(m.communities, c)
	case DimTimeInterval:
		iv, ok := value.(TimeInterval)
		if !ok {
			return fmt.Errorf("filter: %s expects TimeInterval", dim)
		}
		m.timeIntervals = append(m.timeIntervals, iv)
	case DimRIBPeriod:
		v, ok := value.(uint32)
		if !ok {
			return fmt.Errorf("filter: %s expects uint32", dim)
		}
		m.ribPeriod = v
		m.ribGate = ratelimit.NewSpacing(v)
	default:
		return fmt.Errorf("filter: unknown dimension %q", dim)
	}
	return nil
}

// SetCommunityMode selects all-match vs any-match semantics.
func (m *Manager) SetCommunityMode(mode CommunityMode) { m.communityMode = mode }

// AdmitResource applies the single resource-admission-time rule: the
// per-(project, collector) RIB throttle (spec.md §4.7, Testable
// Property #8).
func (m *Manager) AdmitResource(r resource.Resource) bool {
	if m.ribPeriod == 0 || r.RecordType != bgprecord.RecordRIB {
		return true
	}
	key := r.Project + "." + r.Collector
	return m.ribGate.Admit(key, r.InitialTime)
}

// FilterRecord applies the record-level early-out hierarchy from
// spec.md §4.8 (project, collector, router, time interval -- peer/
// prefix/community dimensions are elem-scoped and checked in
// FilterElem). Returns true if rec passes.
func (m *Manager) FilterRecord(rec *bgprecord.Record) bool {
	if !m.projects.empty() && !m.projects.has(rec.ProjectName) {
		return false
	}
	if !m.collectors.empty() && !m.collectors.has(rec.CollectorName) {
		return false
	}
	if !m.routers.empty() && !m.routers.has(rec.RouterName) {
		return false
	}
	if len(m.timeIntervals) > 0 && !m.anyIntervalContains(rec.TimeSec) {
		return false
	}
	return true
}

// FilterElem applies the full early-out chain from spec.md §4.8:
// project, collector, router, peer-ASN, peer-IP, time interval,
// communities, prefix. Returns true if e passes.
func (m *Manager) FilterElem(rec *bgprecord.Record, e *bgprecord.Elem) bool {
	if !m.FilterRecord(rec) {
		return false
	}
	if !m.peerASNs.empty() && !m.peerASNs.has(e.PeerASN) {
		return false
	}
	if !m.peerIPs.empty() && !m.peerIPs.has(e.PeerIP.String()) {
		return false
	}
	if !m.communityMatch(e) {
		return false
	}
	if !m.prefixMatch(e) {
		return false
	}
	return true
}

func (m *Manager) anyIntervalContains(t uint32) bool {
	for _, iv := range m.timeIntervals {
		if iv.contains(t) {
			return true
		}
	}
	return false
}

func (m *Manager) communityMatch(e *bgprecord.Elem) bool {
	if len(m.communities) == 0 {
		return true
	}
	switch m.communityMode {
	case CommunityModeAll:
		for _, c := range m.communities {
			if !e.Communities.Contains(c) {
				return false
			}
		}
		return true
	default: // any
		for _, c := range m.communities {
			if e.Communities.Contains(c) {
				return true
			}
		}
		return false
	}
}

func (m *Manager) prefixMatch(e *bgprecord.Elem) bool {
	if len(m.prefixesExact) == 0 && len(m.prefixesAny) == 0 && len(m.prefixesLess) == 0 {
		return true
	}
	if e.Type == bgprecord.ElemPeerState {
		return true // no prefix on a peer-state elem; dimension does not apply
	}
	for _, p := range m.prefixesExact {
		if p.Covers(e.Prefix, bgpaddr.CoverExact) {
			return true
		}
	}
	for _, p := range m.prefixesAny {
		if p.Covers(e.Prefix, bgpaddr.CoverAny) {
			return true
		}
	}
	for _, p := range m.prefixesLess {
		if p.Covers(e.Prefix, bgpaddr.CoverLessSpecific) {
			return true
		}
	}
	return false
}
