// Package resource holds the typed description of a data source
// (C6): transport kind, format kind, URI, project, collector, record
// type, time window, optional attributes, and the priority-ordered
// manager that groups resources by start time for overlap-aware batch
// extraction (spec.md §4.6).
package resource

import (
	"fmt"

	"github.com/routeviews/bgpstream/bgprecord"
	"github.com/routeviews/bgpstream/transport"
)

// Forever marks a resource as a live stream with no fixed duration.
const Forever uint32 = 0xFFFFFFFF

// Resource is a description of one obtainable data source.
type Resource struct {
	TransportKind transport.Kind
	FormatKind    string
	URI           string
	InitialTime   uint32
	Duration      uint32 // Forever for live streams
	Project       string
	Collector     string
	RecordType    bgprecord.RecordType
	Attrs         transport.Attrs
}

// OverlapStart is the time.Start adjusted for RIBs, which are allowed
// to backdate (spec.md §3): start - duration for RIB resources, start
// otherwise.
func (r Resource) OverlapStart() uint32 {
	if r.RecordType == bgprecord.RecordRIB && r.Duration != Forever {
		return r.InitialTime - r.Duration
	}
	return r.InitialTime
}

// OverlapEnd is start + duration (Forever resources overlap everything
// after their start).
func (r Resource) OverlapEnd() uint32 {
	if r.Duration == Forever {
		return Forever
	}
	return r.InitialTime + r.Duration
}

// Validate checks the minimal invariants a resource must satisfy
// before it can be admitted into a Manager.
func (r Resource) Validate() error {
	if r.URI == "" {
		return fmt.Errorf("resource: empty URI")
	}
	if r.RecordType == bgprecord.RecordUnknown {
		return fmt.Errorf("resource: unknown record type")
	}
	return nil
}

// Source abstracts an external discovery/broker client per spec.md
// §1's out-of-scope boundary: the Core consumes a resource stream
// abstractly. cmd/bgpstream supplies a static file-list Source.
type Source interface {
	// Next returns the next resource, or ok=false when the source is
	// exhausted.
	Next() (res Resource, ok bool, err error)
}
