// Package bgprecord holds the in-memory representation of a record
// (one input message as it crossed the collection boundary) and an
// elem (one peer-scoped routing observation derived from a record).
package bgprecord

// RecordType distinguishes a full-table dump entry from an incremental update.
type RecordType uint8

const (
	RecordUnknown RecordType = iota
	RecordRIB
	RecordUpdate
)

func (t RecordType) String() string {
	switch t {
	case RecordRIB:
		return "RIB"
	case RecordUpdate:
		return "UPDATE"
	default:
		return "UNKNOWN"
	}
}

// Status is the record-level outcome taxonomy from spec.md §7.
type Status uint8

const (
	StatusValid Status = iota
	StatusFilteredSource
	StatusEmptySource
	StatusCorruptedSource
	StatusCorruptedRecord
	StatusUnsupported
	StatusOutsideTimeInterval
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "VALID"
	case StatusFilteredSource:
		return "FILTERED_SOURCE"
	case StatusEmptySource:
		return "EMPTY_SOURCE"
	case StatusCorruptedSource:
		return "CORRUPTED_SOURCE"
	case StatusCorruptedRecord:
		return "CORRUPTED_RECORD"
	case StatusUnsupported:
		return "UNSUPPORTED"
	case StatusOutsideTimeInterval:
		return "OUTSIDE_TIME_INTERVAL"
	default:
		return "UNKNOWN"
	}
}

// DumpPosition marks a record's place within its source dump.
type DumpPosition uint8

const (
	DumpStart DumpPosition = iota
	DumpMiddle
	DumpEnd
)

// PayloadGenerator is the elem-generation hook a format attaches to a
// Record; C9/C5 call it through Record.NextElem. It is set by
// format.Format.PopulateRecord and cleared by Record.Reset.
type PayloadGenerator interface {
	// NextElem returns the next elem for this record, or ok=false when
	// the record's elems are exhausted.
	NextElem() (elem Elem, ok bool, err error)
}

// Record is one input message as it crossed the collection boundary.
// Records are short-lived: mutated (cleared) at the start of each
// iteration step by the owning stream.
type Record struct {
	TimeSec      uint32
	TimeUsec     uint32
	ProjectName  string
	CollectorName string
	RouterName   string // optional, empty if absent
	Type         RecordType
	Status       Status
	DumpPos      DumpPosition

	// Payload is the opaque format-specific decoded message; only the
	// owning format package interprets it.
	Payload any

	gen PayloadGenerator
}

// Reset clears the record to its zero state, ready for reuse.
func (r *Record) Reset() {
	*r = Record{}
}

// SetGenerator attaches the elem generator for this record; called by
// the owning format's PopulateRecord.
func (r *Record) SetGenerator(g PayloadGenerator) {
	r.gen = g
}

// HasGenerator reports whether an elem generator is attached (used by
// C9 to detect "pending elems" misuse at the start of GetNextRecord).
func (r *Record) HasGenerator() bool {
	return r.gen != nil
}

// NextElem drives the attached generator, if any.
func (r *Record) NextElem() (Elem, bool, error) {
	if r.gen == nil {
		return Elem{}, false, nil
	}
	return r.gen.NextElem()
}
