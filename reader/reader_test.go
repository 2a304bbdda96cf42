package reader

import (
	"testing"

	"github.com/routeviews/bgpstream/bgprecord"
	"github.com/routeviews/bgpstream/format"
)

// fakeFormat replays a scripted sequence of (Record, Status) pairs,
// standing in for a real mrt/bmp/rislive format.Format in these tests.
type fakeFormat struct {
	steps []fakeStep
	i     int
}

type fakeStep struct {
	rec bgprecord.Record
	st  format.Status
}

func (f *fakeFormat) PopulateRecord(rec *bgprecord.Record) format.Status {
	if f.i >= len(f.steps) {
		return format.StatusEndOfDump
	}
	s := f.steps[f.i]
	f.i++
	*rec = s.rec
	return s.st
}

func (f *fakeFormat) NextElem(rec *bgprecord.Record) (bgprecord.Elem, bool, error) {
	return bgprecord.Elem{}, false, nil
}

func (f *fakeFormat) Close() error { return nil }

func newFakeReader(steps ...fakeStep) *Reader {
	r := &Reader{fmt: &fakeFormat{steps: steps}}
	r.readNext()
	return r
}

func TestReaderReadNextAdvancesStatus(t *testing.T) {
	r := newFakeReader(
		fakeStep{rec: bgprecord.Record{TimeSec: 100}, st: format.StatusOK},
		fakeStep{st: format.StatusEndOfDump},
	)
	if r.status != format.StatusOK {
		t.Fatalf("expected StatusOK after first pre-fetch, got %v", r.status)
	}
	if !r.hasUsableRecord() {
		t.Fatal("expected a usable record")
	}

	r.readNext()
	if r.status != format.StatusEndOfDump {
		t.Fatalf("expected StatusEndOfDump, got %v", r.status)
	}
	if r.hasUsableRecord() {
		t.Fatal("expected no usable record after exhaustion")
	}
}
