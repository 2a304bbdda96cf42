package reader

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/routeviews/bgpstream/bgprecord"
	"github.com/routeviews/bgpstream/format"
)

func TestSortedInsertRIBBeforeUpdateAtSameTime(t *testing.T) {
	m := NewManager(zerolog.Nop())

	upd := newFakeReader(fakeStep{rec: bgprecord.Record{TimeSec: 100, Type: bgprecord.RecordUpdate}, st: format.StatusOK})
	rib := newFakeReader(fakeStep{rec: bgprecord.Record{TimeSec: 100, Type: bgprecord.RecordRIB}, st: format.StatusOK})

	m.sortedInsert(upd)
	m.sortedInsert(rib) // inserted RIB must land before the existing UPDATE

	if len(m.queue) != 2 {
		t.Fatalf("expected 2 readers, got %d", len(m.queue))
	}
	if m.queue[0].next.Type != bgprecord.RecordRIB {
		t.Errorf("expected RIB first, got %v", m.queue[0].next.Type)
	}
	if m.queue[1].next.Type != bgprecord.RecordUpdate {
		t.Errorf("expected UPDATE second, got %v", m.queue[1].next.Type)
	}
}

func TestSortedInsertAscendingByTime(t *testing.T) {
	m := NewManager(zerolog.Nop())

	r3 := newFakeReader(fakeStep{rec: bgprecord.Record{TimeSec: 300}, st: format.StatusOK})
	r1 := newFakeReader(fakeStep{rec: bgprecord.Record{TimeSec: 100}, st: format.StatusOK})
	r2 := newFakeReader(fakeStep{rec: bgprecord.Record{TimeSec: 200}, st: format.StatusOK})

	m.sortedInsert(r3)
	m.sortedInsert(r1)
	m.sortedInsert(r2)

	want := []uint32{100, 200, 300}
	for i, w := range want {
		if m.queue[i].next.TimeSec != w {
			t.Errorf("position %d: expected time %d, got %d", i, w, m.queue[i].next.TimeSec)
		}
	}
}

func TestGetNextRecordDrainsAcrossReaders(t *testing.T) {
	m := NewManager(zerolog.Nop())

	a := newFakeReader(
		fakeStep{rec: bgprecord.Record{TimeSec: 100}, st: format.StatusOK},
		fakeStep{st: format.StatusEndOfDump},
	)
	b := newFakeReader(
		fakeStep{rec: bgprecord.Record{TimeSec: 50}, st: format.StatusOK},
		fakeStep{st: format.StatusEndOfDump},
	)
	m.sortedInsert(a)
	m.sortedInsert(b)

	var rec bgprecord.Record
	ok, err := m.GetNextRecord(&rec)
	if err != nil || !ok {
		t.Fatalf("expected a record, ok=%v err=%v", ok, err)
	}
	if rec.TimeSec != 50 {
		t.Fatalf("expected time 50 first, got %d", rec.TimeSec)
	}
	if rec.DumpPos != bgprecord.DumpEnd {
		t.Errorf("expected DumpEnd once reader b is exhausted, got %v", rec.DumpPos)
	}

	ok, err = m.GetNextRecord(&rec)
	if err != nil || !ok {
		t.Fatalf("expected a record, ok=%v err=%v", ok, err)
	}
	if rec.TimeSec != 100 {
		t.Fatalf("expected time 100 second, got %d", rec.TimeSec)
	}

	ok, err = m.GetNextRecord(&rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected no more records once both readers are exhausted")
	}
	if !m.Empty() {
		t.Error("expected manager to be empty")
	}
}

func TestGetNextRecordSameTimeStaysAtHead(t *testing.T) {
	m := NewManager(zerolog.Nop())

	r := newFakeReader(
		fakeStep{rec: bgprecord.Record{TimeSec: 100}, st: format.StatusOK},
		fakeStep{rec: bgprecord.Record{TimeSec: 100}, st: format.StatusOK},
		fakeStep{st: format.StatusEndOfDump},
	)
	m.sortedInsert(r)

	var rec bgprecord.Record
	for i := 0; i < 2; i++ {
		ok, err := m.GetNextRecord(&rec)
		if err != nil || !ok {
			t.Fatalf("iteration %d: expected a record, ok=%v err=%v", i, ok, err)
		}
		if rec.TimeSec != 100 {
			t.Errorf("iteration %d: expected time 100, got %d", i, rec.TimeSec)
		}
	}

	ok, _ := m.GetNextRecord(&rec)
	if ok {
		t.Fatal("expected exhaustion on third call")
	}
}
