package reader

import (
	"github.com/rs/zerolog"

	"github.com/routeviews/bgpstream/bgprecord"
	"github.com/routeviews/bgpstream/format"
)

// Manager is the sorted queue of open readers, always serving the
// globally-earliest pre-fetched record first. Kept as a plain slice
// rather than a heap: resource counts in practice are small (one
// reader per concurrently open resource, typically single digits), and
// a slice with linear sorted-insert is simpler to reason about and to
// debug than a heap at this scale — the same "keep the simple
// structure until it hurts" judgment the teacher applies to
// core/bgpipe.go's plain []*StageBase. Revisit if resource counts ever
// grow large enough for insert cost to matter.
type Manager struct {
	log   zerolog.Logger
	queue []*Reader
}

// NewManager returns an empty reader manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{log: log}
}

// Empty reports whether the manager holds no open readers.
func (m *Manager) Empty() bool { return len(m.queue) == 0 }

// Len reports how many readers are currently open.
func (m *Manager) Len() int { return len(m.queue) }

// Add opens a reader for each resource in batch and inserts it into the
// sorted queue. Resources that fail to open are logged and skipped
// (not fatal), so one bad resource doesn't block the rest of a batch.
func (m *Manager) Add(batch []Resource, filter format.TimeFilter) {
	for _, res := range batch {
		r, err := New(res, filter)
		if err != nil {
			m.log.Warn().Err(err).Str("uri", res.URI).Msg("reader: could not open resource")
			continue
		}
		if !r.hasUsableRecord() {
			r.Close()
			continue
		}
		m.sortedInsert(r)
	}
}

// sortedInsert inserts r ascending by its pre-fetched record's time,
// with RIBs always sorting before UPDATEs at equal times (spec.md
// §4.7), translated from bgpstream_reader_mgr_sorted_insert's
// iterator/previous_iterator walk into an index search.
func (m *Manager) sortedInsert(r *Reader) {
	t := r.next.TimeSec
	typ := r.next.Type

	i := 0
	for ; i < len(m.queue); i++ {
		q := m.queue[i]
		if q.next.TimeSec > t {
			break
		}
		if q.next.TimeSec == t && q.next.Type == bgprecord.RecordUpdate && typ == bgprecord.RecordRIB {
			// existing UPDATE, inserted RIB: RIB goes first
			break
		}
		// equal time + same type, or existing RIB + inserted UPDATE:
		// keep scanning past (FIFO within equals; existing RIB stays
		// ahead of a newly-inserted UPDATE)
	}

	m.queue = append(m.queue, nil)
	copy(m.queue[i+1:], m.queue[i:])
	m.queue[i] = r
}

// GetNextRecord implements spec.md §4.7's algorithm: serve the head
// reader's pre-fetched record, advance that reader, and re-sort or
// retire it depending on the new status.
func (m *Manager) GetNextRecord(out *bgprecord.Record) (bool, error) {
	if len(m.queue) == 0 {
		return false, nil
	}

	head := m.queue[0]
	*out = head.next
	prevTime := out.TimeSec

	head.readNext()

	switch {
	case head.hasUsableRecord():
		if head.next.TimeSec != prevTime {
			m.queue = m.queue[1:]
			m.sortedInsert(head)
		}
		// same time: leave at head, drains in arrival order without re-sorting
	case head.status == format.StatusOutsideTimeInterval:
		out.DumpPos = bgprecord.DumpMiddle
		m.queue = m.queue[1:]
		head.Close()
	default:
		out.DumpPos = bgprecord.DumpEnd
		m.queue = m.queue[1:]
		head.Close()
	}

	return true, nil
}
