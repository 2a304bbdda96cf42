// Package elemgen implements the lazy, resumable expansion of one
// decoded BGP UPDATE (or a single RIB/PEERSTATE observation) into its
// constituent elems (spec.md §4.5, C5). A Generator can be reset for a
// new record through ResetUpdate/ResetSingle, the discipline of the
// original bgpstream_elem_generator_t (lib/bgpstream_elem_generator.c);
// the mrt, bmp and ris-live formats allocate a new one per record.
package elemgen

import (
	"github.com/routeviews/bgpstream/bgpaddr"
	"github.com/routeviews/bgpstream/bgprecord"
)

// Update is the decoded, family-separated view of a BGP UPDATE message
// that a format variant hands to the generator. AFI/SAFI families
// other than IPv4/IPv6 unicast are expected to already have been
// dropped by the decoder (spec.md §4.5 step 2).
type Update struct {
	WithdrawnV4 []bgpaddr.Prefix
	WithdrawnV6 []bgpaddr.Prefix
	NLRIV4      []bgpaddr.Prefix
	NLRIV6      []bgpaddr.Prefix

	Origin bgprecord.Origin
	// ASPath is the AS_PATH attribute as-parsed; AS4Path is the AS4_PATH
	// attribute (absent in a modern 4-byte-ASN-only session). NextElem
	// reconciles them into the final advertised path once per update.
	ASPath  bgpaddr.ASPath
	AS4Path bgpaddr.ASPath

	NextHopV4 bgpaddr.Address
	NextHopV6 bgpaddr.Address

	MED            uint32
	MEDValid       bool
	LocalPref      uint32
	LocalPrefValid bool

	AtomicAggregate bool
	Aggregator      bgprecord.Aggregator
	AggregatorValid bool
	AS4Aggregator   bgprecord.Aggregator
	AS4AggregatorValid bool

	Communities bgpaddr.CommunitySet
}

// Generator drives one record's worth of elem emission. The zero value
// is ready to use after a call to ResetUpdate or ResetSingle.
type Generator struct {
	peerIP  bgpaddr.Address
	peerASN uint32

	update *Update

	ready          bool
	pathAttrDone   bool
	nextHopV4Done  bool
	nextHopV6Done  bool

	wV4Idx, wV6Idx int
	aV4Idx, aV6Idx int

	nextHopV4 bgpaddr.Address
	nextHopV6 bgpaddr.Address

	shared bgprecord.Elem // path-attr template, materialised once per update

	single     *bgprecord.Elem
	singleDone bool
}

// ResetUpdate prepares the generator to expand a full UPDATE (or a
// TABLE_DUMP_V2 RIB entry rendered as an announce-only update) from the
// given peer.
func (g *Generator) ResetUpdate(u *Update, peerIP bgpaddr.Address, peerASN uint32) {
	*g = Generator{update: u, peerIP: peerIP, peerASN: peerASN}
}

// ResetSingle prepares the generator to yield exactly one pre-built
// elem (a RIB entry already fully populated, or a PEERSTATE
// transition, or a RIS-Live peer-state line), then none.
func (g *Generator) ResetSingle(e bgprecord.Elem) {
	*g = Generator{single: &e}
}

// NextElem implements the state machine from spec.md §4.5.
func (g *Generator) NextElem() (bgprecord.Elem, bool, error) {
	if g.single != nil {
		if g.singleDone {
			return bgprecord.Elem{}, false, nil
		}
		g.singleDone = true
		return *g.single, true, nil
	}
	if g.update == nil {
		return bgprecord.Elem{}, false, nil
	}

	u := g.update
	if !g.ready {
		g.ready = true
	}

	// 1. withdrawals, v4 then v6
	if g.wV4Idx < len(u.WithdrawnV4) {
		e := bgprecord.Elem{
			Type:    bgprecord.ElemWithdrawal,
			PeerIP:  g.peerIP,
			PeerASN: g.peerASN,
			Prefix:  u.WithdrawnV4[g.wV4Idx],
		}
		g.wV4Idx++
		return e, true, nil
	}
	if g.wV6Idx < len(u.WithdrawnV6) {
		e := bgprecord.Elem{
			Type:    bgprecord.ElemWithdrawal,
			PeerIP:  g.peerIP,
			PeerASN: g.peerASN,
			Prefix:  u.WithdrawnV6[g.wV6Idx],
		}
		g.wV6Idx++
		return e, true, nil
	}

	// 2. before the first announcement, materialise shared path attrs
	if (g.aV4Idx < len(u.NLRIV4) || g.aV6Idx < len(u.NLRIV6)) && !g.pathAttrDone {
		g.materializePathAttrs()
		g.pathAttrDone = true
	}

	if g.aV4Idx < len(u.NLRIV4) {
		if !g.nextHopV4Done {
			g.nextHopV4 = u.NextHopV4
			g.nextHopV4Done = true
		}
		e := g.shared
		e.Type = bgprecord.ElemAnnouncement
		e.Prefix = u.NLRIV4[g.aV4Idx]
		e.NextHop = g.nextHopV4
		g.aV4Idx++
		return e, true, nil
	}
	if g.aV6Idx < len(u.NLRIV6) {
		if !g.nextHopV6Done {
			g.nextHopV6 = u.NextHopV6
			g.nextHopV6Done = true
		}
		e := g.shared
		e.Type = bgprecord.ElemAnnouncement
		e.Prefix = u.NLRIV6[g.aV6Idx]
		e.NextHop = g.nextHopV6
		g.aV6Idx++
		return e, true, nil
	}

	return bgprecord.Elem{}, false, nil
}

// materializePathAttrs fills g.shared with everything every elem
// emitted from this update will carry in common: ORIGIN, the
// AS4-reconciled AS path, MED, LOCAL_PREF, ATOMIC_AGGREGATE, the
// preferred AGGREGATOR, and COMMUNITIES.
func (g *Generator) materializePathAttrs() {
	u := g.update
	e := bgprecord.Elem{
		PeerIP:          g.peerIP,
		PeerASN:         g.peerASN,
		Origin:          u.Origin,
		ASPath:          u.ASPath.Reconcile(u.AS4Path),
		MED:             u.MED,
		MEDValid:        u.MEDValid,
		LocalPref:       u.LocalPref,
		LocalPrefValid:  u.LocalPrefValid,
		AtomicAggregate: u.AtomicAggregate,
		Communities:     u.Communities,
	}
	if u.AS4AggregatorValid {
		e.Aggregator = u.AS4Aggregator
		e.AggregatorValid = true
	} else if u.AggregatorValid {
		e.Aggregator = u.Aggregator
		e.AggregatorValid = true
	}
	g.shared = e
}
