package filter

import (
	"testing"

	"github.com/routeviews/bgpstream/bgpaddr"
	"github.com/routeviews/bgpstream/bgprecord"
	"github.com/routeviews/bgpstream/resource"
	"github.com/routeviews/bgpstream/transport"
)

func mustPrefix(t *testing.T, s string) bgpaddr.Prefix {
	t.Helper()
	p, err := bgpaddr.ParsePrefix(s)
	if err != nil {
		t.Fatalf("ParsePrefix(%q): %v", s, err)
	}
	return p
}

func mustAddr(t *testing.T, s string) bgpaddr.Address {
	t.Helper()
	a, err := bgpaddr.ParseAddress(s)
	if err != nil {
		t.Fatalf("ParseAddress(%q): %v", s, err)
	}
	return a
}

func TestFilterRecordProjectCollector(t *testing.T) {
	m := NewManager()
	if err := m.Add(DimProject, "routeviews"); err != nil {
		t.Fatal(err)
	}

	rec := &bgprecord.Record{ProjectName: "routeviews", CollectorName: "route-views2"}
	if !m.FilterRecord(rec) {
		t.Error("expected record to pass matching project")
	}

	rec.ProjectName = "ris"
	if m.FilterRecord(rec) {
		t.Error("expected record to be rejected for non-matching project")
	}
}

func TestFilterElemPeerASN(t *testing.T) {
	m := NewManager()
	if err := m.Add(DimPeerASN, uint32(65000)); err != nil {
		t.Fatal(err)
	}

	rec := &bgprecord.Record{}
	e := &bgprecord.Elem{Type: bgprecord.ElemAnnouncement, PeerASN: 65000}
	if !m.FilterElem(rec, e) {
		t.Error("expected matching peer ASN to pass")
	}

	e.PeerASN = 65001
	if m.FilterElem(rec, e) {
		t.Error("expected non-matching peer ASN to be rejected")
	}
}

func TestFilterElemPrefixExact(t *testing.T) {
	m := NewManager()
	if err := m.Add(DimPrefixExact, mustPrefix(t, "10.0.0.0/24")); err != nil {
		t.Fatal(err)
	}

	rec := &bgprecord.Record{}
	e := &bgprecord.Elem{Type: bgprecord.ElemAnnouncement, Prefix: mustPrefix(t, "10.0.0.0/24")}
	if !m.FilterElem(rec, e) {
		t.Error("expected exact prefix match to pass")
	}

	e.Prefix = mustPrefix(t, "10.0.0.0/25")
	if m.FilterElem(rec, e) {
		t.Error("expected more-specific prefix to fail exact match")
	}
}

func TestFilterElemPrefixAnyAndLessSpecific(t *testing.T) {
	mAny := NewManager()
	mAny.Add(DimPrefixAny, mustPrefix(t, "10.0.0.0/16"))
	rec := &bgprecord.Record{}
	moreSpecific := &bgprecord.Elem{Type: bgprecord.ElemAnnouncement, Prefix: mustPrefix(t, "10.0.1.0/24")}
	if !mAny.FilterElem(rec, moreSpecific) {
		t.Error("expected more-specific prefix to match CoverAny filter")
	}

	mLess := NewManager()
	mLess.Add(DimPrefixLess, mustPrefix(t, "10.0.1.0/24"))
	lessSpecific := &bgprecord.Elem{Type: bgprecord.ElemAnnouncement, Prefix: mustPrefix(t, "10.0.0.0/16")}
	if !mLess.FilterElem(rec, lessSpecific) {
		t.Error("expected less-specific prefix to match CoverLessSpecific filter")
	}
}

func TestFilterElemPrefixSkippedForPeerState(t *testing.T) {
	m := NewManager()
	m.Add(DimPrefixExact, mustPrefix(t, "10.0.0.0/24"))

	rec := &bgprecord.Record{}
	e := &bgprecord.Elem{Type: bgprecord.ElemPeerState}
	if !m.FilterElem(rec, e) {
		t.Error("peer-state elems should bypass prefix filtering")
	}
}

func TestFilterElemCommunityAnyAndAll(t *testing.T) {
	c1 := bgpaddr.Community{High: 65000, Low: 100}
	c2 := bgpaddr.Community{High: 65000, Low: 200}

	m := NewManager()
	m.Add(DimCommunity, c1)
	m.Add(DimCommunity, c2)
	m.SetCommunityMode(CommunityModeAll)

	rec := &bgprecord.Record{}
	e := &bgprecord.Elem{Type: bgprecord.ElemAnnouncement}
	e.Communities.Add(c1)
	if m.FilterElem(rec, e) {
		t.Error("expected all-mode to reject elem missing one required community")
	}
	e.Communities.Add(c2)
	if !m.FilterElem(rec, e) {
		t.Error("expected all-mode to accept elem with both required communities")
	}

	m.SetCommunityMode(CommunityModeAny)
	e2 := &bgprecord.Elem{Type: bgprecord.ElemAnnouncement}
	e2.Communities.Add(c1)
	if !m.FilterElem(rec, e2) {
		t.Error("expected any-mode to accept elem with one of the required communities")
	}
}

func TestFilterElemTimeInterval(t *testing.T) {
	m := NewManager()
	m.Add(DimTimeInterval, TimeInterval{Start: 1000, End: 2000})

	rec := &bgprecord.Record{TimeSec: 1500}
	e := &bgprecord.Elem{Type: bgprecord.ElemAnnouncement}
	if !m.FilterElem(rec, e) {
		t.Error("expected time inside interval to pass")
	}

	rec.TimeSec = 2000
	if m.FilterElem(rec, e) {
		t.Error("expected time at interval end (exclusive) to be rejected")
	}
}

// Testable Property #8 / Scenario S2: RIB throttling admits only one RIB
// per period per (project, collector), passes UPDATE resources through
// unconditionally.
func TestAdmitResourceRIBThrottle(t *testing.T) {
	m := NewManager()
	m.Add(DimRIBPeriod, uint32(3600))

	rib := func(t0 uint32) resource.Resource {
		return resource.Resource{
			TransportKind: transport.KindFile,
			FormatKind:    "mrt",
			URI:           "x",
			InitialTime:   t0,
			Duration:      3600,
			Project:       "routeviews",
			Collector:     "route-views2",
			RecordType:    bgprecord.RecordRIB,
		}
	}

	if !m.AdmitResource(rib(0)) {
		t.Error("expected first RIB to be admitted")
	}
	if m.AdmitResource(rib(1800)) {
		t.Error("expected second RIB within the period to be rejected")
	}
	if !m.AdmitResource(rib(3600)) {
		t.Error("expected RIB at exactly one period later to be admitted")
	}

	upd := rib(1800)
	upd.RecordType = bgprecord.RecordUpdate
	if !m.AdmitResource(upd) {
		t.Error("expected UPDATE resources to bypass the RIB throttle")
	}
}

func TestAddRejectsWrongType(t *testing.T) {
	m := NewManager()
	if err := m.Add(DimProject, 123); err == nil {
		t.Error("expected type error for non-string project value")
	}
	if err := m.Add(Dimension("bogus"), "x"); err == nil {
		t.Error("expected error for unknown dimension")
	}
}
