package bgpwire

import (
	"encoding/binary"
	"fmt"

	bgpfixbmp "github.com/bgpfix/bgpfix/bmp"

	"github.com/routeviews/bgpstream/bgpaddr"
)

// BMP message type codes (RFC 7854 §4.1).
const (
	BMPMsgRouteMonitoring        = 0
	BMPMsgStatisticsReport       = 1
	BMPMsgPeerDownNotification   = 2
	BMPMsgPeerUpNotification     = 3
	BMPMsgInitiation             = 4
	BMPMsgTermination            = 5
	BMPMsgRouteMirroring         = 6
)

// peerHeaderFlagsOffset is the per-peer header's flags byte offset
// within a full BMP message (6-byte common header, then the flags
// byte at offset 1 of the 42-byte per-peer header; RFC 7854 §4.2).
const peerHeaderFlagsOffset = 7

// legacyASFlag marks a peer that negotiated 2-byte rather than 4-byte
// ASNs (RFC 7854 §4.2's "A" flag bit).
const legacyASFlag = 0x20

// BMPMessage is one decoded BMP message: its type, and -- for the
// peer-bearing types -- the originating peer and (for Route
// Monitoring) the embedded raw BGP message bytes.
type BMPMessage struct {
	MsgType      byte
	PeerIP       bgpaddr.Address
	PeerASN      uint32
	TimestampSec uint32
	ASNWidth     ASNWidth
	BgpData      []byte // full raw BGP message (header included), Route Monitoring only
}

// peekBMPLength reads just the 5-byte version+length prefix of the RFC
// 7854 §4.1 common header, the minimum needed to know whether data
// holds one complete message yet -- unavoidable stream framing for any
// pull-based source, done here instead of inside bgpfix's one-shot
// FromBytes so a short read reports ErrShort instead of an opaque
// decode error.
func peekBMPLength(data []byte) (int, error) {
	if len(data) < 6 {
		return 0, ErrShort
	}
	if version := data[0]; version != 3 {
		return 0, fmt.Errorf("bgpwire: unsupported BMP version %d", version)
	}
	length := int(binary.BigEndian.Uint32(data[1:5]))
	if length < 6 {
		return 0, fmt.Errorf("bgpwire: invalid BMP message length %d", length)
	}
	return length, nil
}

// ParseBMPMessage decodes one complete BMP message out of data's
// prefix, using bgpfix/bgpfix/bmp for the RFC 7854 common header and
// per-peer header (grounded on stages/rv-live/openbmp.go's
// bmp.NewBmp()/bm.FromBytes(om.Data) and its bm.Peer.Address/.AS/.Time/
// bm.BgpData usage). The per-peer header's legacy-ASN flag is not
// exposed through that grounded surface, so it's read directly off the
// one flags byte RFC 7854 §4.2 fixes at offset 7.
func ParseBMPMessage(data []byte) (BMPMessage, int, error) {
	length, err := peekBMPLength(data)
	if err != nil {
		return BMPMessage{}, 0, err
	}
	if len(data) < length {
		return BMPMessage{}, 0, ErrShort
	}
	data = data[:length]

	bm := bgpfixbmp.NewBmp()
	n, err := bm.FromBytes(data)
	if err != nil {
		return BMPMessage{}, 0, fmt.Errorf("bgpwire: %w", err)
	}

	out := BMPMessage{MsgType: byte(bm.MsgType)}

	switch out.MsgType {
	case BMPMsgRouteMonitoring, BMPMsgPeerUpNotification, BMPMsgPeerDownNotification,
		BMPMsgStatisticsReport, BMPMsgRouteMirroring:
		addr, err := bgpaddr.FromNetip(bm.Peer.Address)
		if err != nil {
			return BMPMessage{}, 0, fmt.Errorf("bgpwire: bad BMP peer address: %w", err)
		}
		out.PeerIP = addr
		out.PeerASN = bm.Peer.AS
		out.TimestampSec = uint32(bm.Peer.Time.Unix())
		out.ASNWidth = ASN4Byte
		if len(data) > peerHeaderFlagsOffset && data[peerHeaderFlagsOffset]&legacyASFlag != 0 {
			out.ASNWidth = ASN2Byte
		}
	}

	if out.MsgType == BMPMsgRouteMonitoring {
		out.BgpData = bm.BgpData
	}

	return out, n, nil
}

// BMPPeerDownReason codes (RFC 7854 §4.9), kept for documentation; the
// decoder does not need to distinguish them beyond "peer went down".
const (
	PeerDownLocalNotification    = 1
	PeerDownLocalNoNotification  = 2
	PeerDownRemoteNotification   = 3
	PeerDownRemoteNoNotification = 4
	PeerDownPeerDeConfigured     = 5
)
