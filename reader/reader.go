// Package reader implements the per-resource cursor (C7): a Reader
// wraps one resource's transport+format stack and keeps exactly one
// pre-fetched record ready, and a Manager keeps readers in a queue
// sorted by their pre-fetched record's time so GetNextRecord can always
// serve the globally-earliest record across every open resource.
//
// Grounded on bgpstream_reader_mgr.c's reader_queue/sorted_insert/
// get_next_record (_examples/original_source/lib/bgpstream_reader_mgr.c).
package reader

import (
	"github.com/routeviews/bgpstream/bgprecord"
	"github.com/routeviews/bgpstream/format"
	"github.com/routeviews/bgpstream/resource"
	"github.com/routeviews/bgpstream/transport"
)

// Reader owns one resource's transport+format stack and one
// pre-fetched record.
type Reader struct {
	res Resource

	t   transport.Transport
	fmt format.Format

	next   bgprecord.Record
	status format.Status
}

// Resource is a local alias so this package doesn't need to import
// resource.Resource's full name at every call site.
type Resource = resource.Resource

// New opens res's transport and format stack and pre-fetches its first
// record (spec.md §4.7's "create includes the first read").
func New(res Resource, filter format.TimeFilter) (*Reader, error) {
	t, err := transport.Open(res.TransportKind, res.URI, res.Attrs)
	if err != nil {
		return nil, err
	}
	f, err := format.Open(t, res, filter)
	if err != nil {
		t.Close()
		return nil, err
	}
	r := &Reader{res: res, t: t, fmt: f}
	r.readNext()
	return r, nil
}

// readNext pulls the next record from the format into r.next, tagging
// it with this resource's project and collector before the format
// has a chance to fill them in.
func (r *Reader) readNext() {
	r.next = bgprecord.Record{
		ProjectName:   r.res.Project,
		CollectorName: r.res.Collector,
	}
	r.status = r.fmt.PopulateRecord(&r.next)
}

// Peek returns the currently pre-fetched record and its status without
// advancing.
func (r *Reader) Peek() (bgprecord.Record, format.Status) {
	return r.next, r.status
}

// Close releases the underlying transport.
func (r *Reader) Close() error {
	var err error
	if r.fmt != nil {
		err = r.fmt.Close()
	}
	return err
}

// hasUsableRecord reports whether r.next holds a record the caller
// should see (spec.md §4.4's OK and UNSUPPORTED both produce a record;
// every other status means this resource is exhausted or errored).
func (r *Reader) hasUsableRecord() bool {
	return r.status == format.StatusOK || r.status == format.StatusUnsupported
}
