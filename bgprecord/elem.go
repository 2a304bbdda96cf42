package bgprecord

import "github.com/routeviews/bgpstream/bgpaddr"

// ElemType discriminates the kind of routing observation an Elem carries.
type ElemType uint8

const (
	ElemUnknown ElemType = iota
	ElemRIB
	ElemAnnouncement
	ElemWithdrawal
	ElemPeerState
)

func (t ElemType) String() string {
	switch t {
	case ElemRIB:
		return "RIB"
	case ElemAnnouncement:
		return "A"
	case ElemWithdrawal:
		return "W"
	case ElemPeerState:
		return "S"
	default:
		return "?"
	}
}

// Origin is the BGP ORIGIN path attribute value.
type Origin uint8

const (
	OriginUnset Origin = iota
	OriginIGP
	OriginEGP
	OriginIncomplete
)

func (o Origin) String() string {
	switch o {
	case OriginIGP:
		return "IGP"
	case OriginEGP:
		return "EGP"
	case OriginIncomplete:
		return "INCOMPLETE"
	default:
		return ""
	}
}

// PeerState enumerates the BGP FSM states used by PEERSTATE elems.
type PeerState uint8

const (
	StateUnknown PeerState = iota
	StateIdle
	StateConnect
	StateActive
	StateOpenSent
	StateOpenConfirm
	StateEstablished
)

func (s PeerState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnect:
		return "CONNECT"
	case StateActive:
		return "ACTIVE"
	case StateOpenSent:
		return "OPENSENT"
	case StateOpenConfirm:
		return "OPENCONFIRM"
	case StateEstablished:
		return "ESTABLISHED"
	default:
		return "UNKNOWN"
	}
}

// Aggregator is the optional AGGREGATOR path attribute.
type Aggregator struct {
	ASN     uint32
	Address bgpaddr.Address
}

// Elem is one peer-scoped routing observation derived from a Record.
type Elem struct {
	Type ElemType

	PeerIP  bgpaddr.Address
	PeerASN uint32

	Prefix  bgpaddr.Prefix // defined for RIB/ANN/WDR
	NextHop bgpaddr.Address // defined for RIB/ANN

	ASPath      bgpaddr.ASPath
	Communities bgpaddr.CommunitySet
	Origin      Origin

	MED             uint32
	MEDValid        bool
	LocalPref       uint32
	LocalPrefValid  bool
	AtomicAggregate bool
	Aggregator      Aggregator
	AggregatorValid bool

	OldState PeerState
	NewState PeerState
}

// Reset clears e to its zero value, keeping any backing slices' caller
// under no expectation that they remain valid.
func (e *Elem) Reset() {
	e.Communities.Clear()
	e.ASPath.Clear()
	*e = Elem{ASPath: e.ASPath, Communities: e.Communities}
}
