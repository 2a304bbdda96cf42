package resource

import (
	"testing"

	"github.com/routeviews/bgpstream/bgprecord"
	"github.com/routeviews/bgpstream/transport"
)

func mkres(t uint32, dur uint32, rtype bgprecord.RecordType) Resource {
	return Resource{
		TransportKind: transport.KindFile,
		FormatKind:    "mrt",
		URI:           "test",
		InitialTime:   t,
		Duration:      dur,
		Project:       "P",
		Collector:     "C",
		RecordType:    rtype,
	}
}

// Testable Property #5: group monotonicity after any sequence of pushes.
func TestManagerGroupMonotonicity(t *testing.T) {
	m := NewManager()
	times := []uint32{500, 100, 900, 300, 100, 700}
	for _, tm := range times {
		if err := m.Push(mkres(tm, 60, bgprecord.RecordUpdate)); err != nil {
			t.Fatal(err)
		}
	}

	got := m.Groups()
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("groups not strictly increasing: %v", got)
		}
	}
	// 100 appears twice -> merged into one group; unique times: 100,300,500,700,900
	if len(got) != 5 {
		t.Errorf("expected 5 distinct groups, got %d: %v", len(got), got)
	}
}

// Testable Property #6: batch overlap correctness.
func TestManagerGetBatchOverlap(t *testing.T) {
	m := NewManager()
	// three overlapping update resources (duration 1000 each), 500 apart
	m.Push(mkres(1000, 1000, bgprecord.RecordUpdate))
	m.Push(mkres(1500, 1000, bgprecord.RecordUpdate))
	m.Push(mkres(2000, 1000, bgprecord.RecordUpdate))
	// a clearly disjoint one far in the future
	m.Push(mkres(10000, 100, bgprecord.RecordUpdate))

	batch := m.GetBatch()
	if len(batch) != 3 {
		t.Fatalf("expected 3 resources in first batch, got %d", len(batch))
	}
	for _, r := range batch {
		if r.InitialTime >= 10000 {
			t.Errorf("disjoint resource leaked into batch: %+v", r)
		}
	}

	// next batch should contain only the disjoint resource
	next := m.GetBatch()
	if len(next) != 1 || next[0].InitialTime != 10000 {
		t.Errorf("unexpected second batch: %+v", next)
	}
}

// Scenario S1: RIB + UPDATE at same start time; RIB ordered first.
func TestManagerRIBsBeforeUpdatesInBatch(t *testing.T) {
	m := NewManager()
	m.Push(mkres(1_000_000, 900, bgprecord.RecordUpdate))
	m.Push(mkres(1_000_000, 3600, bgprecord.RecordRIB))

	batch := m.GetBatch()
	if len(batch) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(batch))
	}
	if batch[0].RecordType != bgprecord.RecordRIB {
		t.Errorf("expected RIB first, got %v", batch[0].RecordType)
	}
	if batch[1].RecordType != bgprecord.RecordUpdate {
		t.Errorf("expected UPDATE second, got %v", batch[1].RecordType)
	}
}

func TestManagerEmpty(t *testing.T) {
	m := NewManager()
	if !m.Empty() {
		t.Error("new manager should be empty")
	}
	m.Push(mkres(1, 1, bgprecord.RecordUpdate))
	if m.Empty() {
		t.Error("manager with a pushed resource should not be empty")
	}
	m.GetBatch()
	if !m.Empty() {
		t.Error("manager should be empty after draining the only batch")
	}
}

func TestResourceValidateRejectsEmptyURI(t *testing.T) {
	r := mkres(1, 1, bgprecord.RecordUpdate)
	r.URI = ""
	if err := r.Validate(); err == nil {
		t.Error("expected validation error for empty URI")
	}
}
