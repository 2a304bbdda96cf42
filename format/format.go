// Package format defines the C3 format layer's interface and variant
// registry; format/mrt, format/bmp, and format/rislive each register an
// Opener under their resource.FormatKind string.
package format

import (
	"fmt"

	"github.com/routeviews/bgpstream/bgprecord"
	"github.com/routeviews/bgpstream/resource"
	"github.com/routeviews/bgpstream/transport"
)

// Status is the outcome of one PopulateRecord call, matching the
// taxonomy spec.md §4.4 assigns to populate_record.
type Status int

const (
	StatusOK Status = iota
	StatusEmptyDump
	StatusFilteredDump
	StatusEndOfDump
	StatusCorruptedDump
	StatusOutsideTimeInterval
	StatusReadError
	StatusUnsupported
	StatusUnknownError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusEmptyDump:
		return "EMPTY_DUMP"
	case StatusFilteredDump:
		return "FILTERED_DUMP"
	case StatusEndOfDump:
		return "END_OF_DUMP"
	case StatusCorruptedDump:
		return "CORRUPTED_DUMP"
	case StatusOutsideTimeInterval:
		return "OUTSIDE_TIME_INTERVAL"
	case StatusReadError:
		return "READ_ERROR"
	case StatusUnsupported:
		return "UNSUPPORTED"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Format decodes one resource's byte stream into a sequence of
// records, each carrying its own elem generator.
type Format interface {
	// PopulateRecord decodes the next record from the underlying
	// transport into rec, attaching an elem generator via rec.SetGenerator
	// when the status is StatusOK.
	PopulateRecord(rec *bgprecord.Record) Status
	// NextElem drives rec's attached generator.
	NextElem(rec *bgprecord.Record) (bgprecord.Elem, bool, error)
	Close() error
}

// TimeFilter decides whether a record at the given time should be
// materialised (spec.md §4.4's per-format filter_cb). A nil TimeFilter
// accepts every time.
type TimeFilter func(recordTimeSec uint32) bool

// Opener constructs a Format bound to an already-open transport for
// the given resource.
type Opener func(t transport.Transport, res resource.Resource, filter TimeFilter) (Format, error)

var repo = make(map[string]Opener)

// Register installs an Opener under a resource.FormatKind string
// ("mrt", "bmp", "ris-live"). Called from each variant package's init.
func Register(kind string, open Opener) {
	repo[kind] = open
}

// Open constructs a Format for res using its FormatKind, bound to the
// already-open transport t.
func Open(t transport.Transport, res resource.Resource, filter TimeFilter) (Format, error) {
	open, ok := repo[res.FormatKind]
	if !ok {
		return nil, fmt.Errorf("format: unknown format kind %q", res.FormatKind)
	}
	return open(t, res, filter)
}
