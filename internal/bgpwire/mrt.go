package bgpwire

import (
	"encoding/binary"
	"fmt"

	"github.com/routeviews/bgpstream/bgpaddr"
)

// MRT type/subtype codes (RFC 6396, RFC 6397 TABLE_DUMP_V2).
const (
	MRTTypeBGP4MP   = 16
	MRTTypeBGP4MPET = 17

	BGP4MPStateChange     = 0
	BGP4MPMessage         = 1
	BGP4MPMessageAS4      = 4
	BGP4MPStateChangeAS4  = 5
	BGP4MPMessageLocal    = 6
	BGP4MPMessageAS4Local = 7

	MRTTypeTableDumpV2 = 13

	TableDumpV2PeerIndexTable  = 1
	TableDumpV2RIBIPv4Unicast  = 2
	TableDumpV2RIBIPv6Unicast  = 4
)

// MRTHeader is a decoded RFC 6396 common header.
type MRTHeader struct {
	TimestampSec uint32
	Type         uint16
	Subtype      uint16
	Body         []byte // exactly Length bytes (minus the ET microsecond field, if present)
}

// ParseMRTHeader decodes one MRT record's common header and slices out
// its body from data. Returns the total number of bytes consumed
// (header + body) or ErrShort if data does not yet hold a full record.
func ParseMRTHeader(data []byte) (MRTHeader, int, error) {
	if len(data) < 12 {
		return MRTHeader{}, 0, ErrShort
	}
	h := MRTHeader{
		TimestampSec: binary.BigEndian.Uint32(data[0:4]),
		Type:         binary.BigEndian.Uint16(data[4:6]),
		Subtype:      binary.BigEndian.Uint16(data[6:8]),
	}
	length := int(binary.BigEndian.Uint32(data[8:12]))
	consumed := 12 + length
	if len(data) < consumed {
		return MRTHeader{}, 0, ErrShort
	}
	body := data[12:consumed]
	if h.Type == MRTTypeBGP4MPET {
		// extended-timestamp variant: first 4 bytes of the body are a
		// microsecond field we do not need at second resolution.
		if len(body) < 4 {
			return MRTHeader{}, 0, fmt.Errorf("bgpwire: BGP4MP_ET record too short for microsecond field")
		}
		body = body[4:]
	}
	h.Body = body
	return h, consumed, nil
}

// PeerEntry is one row of an MRT TABLE_DUMP_V2 PEER_INDEX_TABLE.
type PeerEntry struct {
	IP  bgpaddr.Address
	ASN uint32
}

// ParsePeerIndexTable decodes a PEER_INDEX_TABLE body (RFC 6396 §4.3.1).
func ParsePeerIndexTable(body []byte) ([]PeerEntry, error) {
	if len(body) < 4 {
		return nil, ErrShort
	}
	body = body[4:] // collector BGP ID
	if len(body) < 2 {
		return nil, ErrShort
	}
	viewLen := int(binary.BigEndian.Uint16(body))
	body = body[2:]
	if len(body) < viewLen+2 {
		return nil, ErrShort
	}
	body = body[viewLen:]
	count := int(binary.BigEndian.Uint16(body))
	body = body[2:]

	peers := make([]PeerEntry, 0, count)
	for i := 0; i < count; i++ {
		if len(body) < 1 {
			return nil, ErrShort
		}
		peerType := body[0]
		body = body[1:]
		as4 := peerType&0x02 != 0
		isV6 := peerType&0x01 != 0

		if len(body) < 4 {
			return nil, ErrShort
		}
		body = body[4:] // peer BGP ID

		addrWidth := 4
		if isV6 {
			addrWidth = 16
		}
		if len(body) < addrWidth {
			return nil, ErrShort
		}
		addr, err := bgpaddr.FromBytes(body[:addrWidth])
		if err != nil {
			return nil, err
		}
		body = body[addrWidth:]

		asnWidth := 2
		if as4 {
			asnWidth = 4
		}
		if len(body) < asnWidth {
			return nil, ErrShort
		}
		var asn uint32
		if as4 {
			asn = binary.BigEndian.Uint32(body)
		} else {
			asn = uint32(binary.BigEndian.Uint16(body))
		}
		body = body[asnWidth:]

		peers = append(peers, PeerEntry{IP: addr, ASN: asn})
	}
	return peers, nil
}

// RIBEntry is one peer's route for the prefix carried by the enclosing
// TABLE_DUMP_V2 RIB subtype message.
type RIBEntry struct {
	PeerIndex uint16
	Attrs     []byte // raw path-attribute TLV sequence
}

// RIBMessage is a decoded TABLE_DUMP_V2 RIB_IPV4_UNICAST/RIB_IPV6_UNICAST body.
type RIBMessage struct {
	Prefix  bgpaddr.Prefix
	Entries []RIBEntry
}

// ParseRIBMessage decodes a RIB_IPV4_UNICAST/RIB_IPV6_UNICAST body
// (RFC 6396 §4.3.2). v selects the address family for the prefix field.
func ParseRIBMessage(body []byte, v bgpaddr.Version) (RIBMessage, error) {
	if len(body) < 4 {
		return RIBMessage{}, ErrShort
	}
	body = body[4:] // sequence number

	if len(body) < 1 {
		return RIBMessage{}, ErrShort
	}
	bits := int(body[0])
	body = body[1:]
	width := 4
	if v == bgpaddr.VersionIPv6 {
		width = 16
	}
	nbytes := (bits + 7) / 8
	if nbytes > width || len(body) < nbytes {
		return RIBMessage{}, ErrShort
	}
	raw := make([]byte, width)
	copy(raw, body[:nbytes])
	body = body[nbytes:]

	addr, err := bgpaddr.FromBytes(raw)
	if err != nil {
		return RIBMessage{}, err
	}
	prefix, err := bgpaddr.NewPrefix(addr, uint8(bits))
	if err != nil {
		return RIBMessage{}, err
	}

	if len(body) < 2 {
		return RIBMessage{}, ErrShort
	}
	count := int(binary.BigEndian.Uint16(body))
	body = body[2:]

	entries := make([]RIBEntry, 0, count)
	off := 0
	for i := 0; i < count; i++ {
		if len(body[off:]) < 8 {
			return RIBMessage{}, ErrShort
		}
		peerIdx := binary.BigEndian.Uint16(body[off:])
		off += 2
		off += 4 // originated time
		attrLen := int(binary.BigEndian.Uint16(body[off:]))
		off += 2
		if len(body[off:]) < attrLen {
			return RIBMessage{}, ErrShort
		}
		attrs := body[off : off+attrLen]
		off += attrLen
		entries = append(entries, RIBEntry{PeerIndex: peerIdx, Attrs: attrs})
	}

	return RIBMessage{Prefix: prefix, Entries: entries}, nil
}

// BGP4MPPeer is the peer/local addressing header shared by every
// BGP4MP subtype (RFC 6396 §4.4).
type BGP4MPPeer struct {
	PeerASN  uint32
	LocalASN uint32
	PeerIP   bgpaddr.Address
	LocalIP  bgpaddr.Address
}

func bgp4mpWidth(subtype uint16) ASNWidth {
	switch subtype {
	case BGP4MPMessageAS4, BGP4MPMessageAS4Local, BGP4MPStateChangeAS4:
		return ASN4Byte
	default:
		return ASN2Byte
	}
}

func parseBGP4MPPeerHeader(body []byte, width ASNWidth) (BGP4MPPeer, []byte, error) {
	var p BGP4MPPeer
	if len(body) < 2*int(width)+2+2 {
		return p, nil, ErrShort
	}
	p.PeerASN = readASN(body, width)
	body = body[width:]
	p.LocalASN = readASN(body, width)
	body = body[width:]
	body = body[2:] // interface index

	afi := binary.BigEndian.Uint16(body)
	body = body[2:]
	addrWidth := 4
	if afi == afiIPv6 {
		addrWidth = 16
	}
	if len(body) < 2*addrWidth {
		return p, nil, ErrShort
	}
	peerIP, err := bgpaddr.FromBytes(body[:addrWidth])
	if err != nil {
		return p, nil, err
	}
	body = body[addrWidth:]
	localIP, err := bgpaddr.FromBytes(body[:addrWidth])
	if err != nil {
		return p, nil, err
	}
	body = body[addrWidth:]
	p.PeerIP = peerIP
	p.LocalIP = localIP
	return p, body, nil
}

// ParseBGP4MPMessage decodes a BGP4MP_MESSAGE/_AS4/_LOCAL body into its
// peer header and the embedded raw BGP message bytes (header + body).
func ParseBGP4MPMessage(body []byte, subtype uint16) (BGP4MPPeer, []byte, error) {
	return parseBGP4MPPeerHeader(body, bgp4mpWidth(subtype))
}

// BGP4MPState is a decoded BGP4MP_STATE_CHANGE(_AS4) body.
type BGP4MPState struct {
	Peer     BGP4MPPeer
	OldState uint16
	NewState uint16
}

// ParseBGP4MPStateChange decodes a BGP4MP_STATE_CHANGE(_AS4) body.
func ParseBGP4MPStateChange(body []byte, subtype uint16) (BGP4MPState, error) {
	peer, rest, err := parseBGP4MPPeerHeader(body, bgp4mpWidth(subtype))
	if err != nil {
		return BGP4MPState{}, err
	}
	if len(rest) < 4 {
		return BGP4MPState{}, ErrShort
	}
	return BGP4MPState{
		Peer:     peer,
		OldState: binary.BigEndian.Uint16(rest[0:2]),
		NewState: binary.BigEndian.Uint16(rest[2:4]),
	}, nil
}

// BGP message header type codes.
const (
	BGPMsgOpen         = 1
	BGPMsgUpdate       = 2
	BGPMsgNotification = 3
	BGPMsgKeepalive    = 4
)

// ParseBGPMessageHeader decodes the 19-byte BGP common header (16-byte
// marker, 2-byte length, 1-byte type) and returns the message type and
// its body (length - 19 bytes).
func ParseBGPMessageHeader(data []byte) (msgType byte, body []byte, err error) {
	if len(data) < 19 {
		return 0, nil, ErrShort
	}
	length := int(binary.BigEndian.Uint16(data[16:18]))
	if length < 19 || len(data) < length {
		return 0, nil, fmt.Errorf("bgpwire: invalid BGP message length %d", length)
	}
	return data[18], data[19:length], nil
}

// ParseBGPMessageHeaderNoMarker decodes a BGP common header whose
// 16-byte marker was stripped before transmission (RIS-Live's "raw"
// field): 2-byte length (as if the marker were still present), 1-byte
// type, then the body.
func ParseBGPMessageHeaderNoMarker(data []byte) (msgType byte, body []byte, err error) {
	if len(data) < 3 {
		return 0, nil, ErrShort
	}
	length := int(binary.BigEndian.Uint16(data[0:2])) - 16
	if length < 3 || len(data) < length {
		return 0, nil, fmt.Errorf("bgpwire: invalid BGP message length %d", length)
	}
	return data[2], data[3:length], nil
}
