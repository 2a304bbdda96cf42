package resource

import (
	"container/list"

	"github.com/routeviews/bgpstream/bgprecord"
)

// group holds every resource that shares a common start time,
// separated into a RIB list and an UPDATE list (RIBs are always
// extracted before UPDATEs within a group, per spec.md §4.6).
type group struct {
	time         uint32
	overlapStart uint32
	overlapEnd   uint32
	ribs         []Resource
	updates      []Resource
}

func newGroup(r Resource) *group {
	g := &group{
		time:         r.InitialTime,
		overlapStart: r.OverlapStart(),
		overlapEnd:   r.OverlapEnd(),
	}
	g.add(r)
	return g
}

func (g *group) add(r Resource) {
	if r.RecordType == bgprecord.RecordRIB {
		if len(g.ribs) == 0 {
			// first RIB in the group: fudge overlap_start for backdating
			g.overlapStart = r.OverlapStart()
		}
		g.ribs = append(g.ribs, r)
	} else {
		g.updates = append(g.updates, r)
	}
	if end := r.OverlapEnd(); end == Forever || (g.overlapEnd != Forever && end > g.overlapEnd) {
		g.overlapEnd = end
	}
}

func (g *group) count() int { return len(g.ribs) + len(g.updates) }

// Manager is the priority-ordered queue of resource groups, ordered
// oldest-start-time-first, grounded on
// lib/bgpstream_resource_mgr.c's doubly-linked res_group list (re-architected
// per Design Notes §9 onto container/list.List instead of hand-rolled
// borrowed-next-pointer links).
type Manager struct {
	groups *list.List // of *group, ascending by .time
}

// NewManager returns an empty resource manager.
func NewManager() *Manager {
	return &Manager{groups: list.New()}
}

// Empty reports whether the manager holds no resources.
func (m *Manager) Empty() bool {
	return m.groups.Len() == 0
}

// Push inserts res into the manager, choosing the closer end of the
// list to walk inward from, per spec.md §4.6.
func (m *Manager) Push(res Resource) error {
	if err := res.Validate(); err != nil {
		return err
	}

	if m.groups.Len() == 0 {
		m.groups.PushBack(newGroup(res))
		return nil
	}

	head := m.groups.Front()
	tail := m.groups.Back()
	headG := head.Value.(*group)
	tailG := tail.Value.(*group)

	distHead := absDiff(res.InitialTime, headG.time)
	distTail := absDiff(res.InitialTime, tailG.time)

	if distHead <= distTail {
		m.insertFromHead(res)
	} else {
		m.insertFromTail(res)
	}
	return nil
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

func (m *Manager) insertFromHead(res Resource) {
	for e := m.groups.Front(); e != nil; e = e.Next() {
		g := e.Value.(*group)
		switch {
		case g.time == res.InitialTime:
			g.add(res)
			return
		case g.time > res.InitialTime:
			m.groups.InsertBefore(newGroup(res), e)
			return
		}
	}
	m.groups.PushBack(newGroup(res))
}

func (m *Manager) insertFromTail(res Resource) {
	for e := m.groups.Back(); e != nil; e = e.Prev() {
		g := e.Value.(*group)
		switch {
		case g.time == res.InitialTime:
			g.add(res)
			return
		case g.time < res.InitialTime:
			m.groups.InsertAfter(newGroup(res), e)
			return
		}
	}
	m.groups.PushFront(newGroup(res))
}

// GetBatch extracts the head group and every subsequent group that
// overlaps the running last_overlap_end, per spec.md §4.6. Within each
// group, RIBs precede UPDATEs; the extracted groups are removed from
// the manager.
func (m *Manager) GetBatch() []Resource {
	var batch []Resource

	first := true
	var lastOverlapEnd uint32
	for {
		e := m.groups.Front()
		if e == nil {
			break
		}
		g := e.Value.(*group)
		if !first && !(lastOverlapEnd > g.overlapStart) {
			break
		}

		batch = append(batch, g.ribs...)
		batch = append(batch, g.updates...)

		first = false
		lastOverlapEnd = g.overlapEnd
		m.groups.Remove(e)
	}

	return batch
}

// Groups returns the group start times in ascending order, for testing
// monotonicity (Testable Property #5).
func (m *Manager) Groups() []uint32 {
	times := make([]uint32, 0, m.groups.Len())
	for e := m.groups.Front(); e != nil; e = e.Next() {
		times = append(times, e.Value.(*group).time)
	}
	return times
}
