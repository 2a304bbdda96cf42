// Package bgpwire decodes the wire body of a BGP UPDATE message (RFC
// 4271, RFC 4760 multiprotocol extensions, RFC 6793 4-byte ASNs) into
// an elemgen.Update, shared between format/mrt and format/bmp since
// both carry raw BGP UPDATE payloads inside their own framing.
//
// The bulk of attribute decoding (AS_PATH, NEXT_HOP, COMMUNITIES,
// MP_REACH/MP_UNREACH NLRI) is delegated to bgpfix/bgpfix's msg/attrs
// packages (grounded on stages/attr.go, stages/update.go, stages/
// grep.go, stages/limit.go): ParseUpdate/ParseAttrsOnly synthesize the
// minimal BGP header bgpfix's byte-oriented msg.Msg.FromBytes expects,
// since the callers here only ever hold the body (header already
// stripped by ParseBGPMessageHeader, or never present for a TABLE_DUMP_V2
// RIB entry's bare attribute section). A handful of scalar path
// attributes that the retrieval pack never exercises a typed bgpfix
// accessor for (ORIGIN, MED, LOCAL_PREF, ATOMIC_AGGREGATE, AGGREGATOR,
// AS4_PATH, AS4_AGGREGATOR) are still walked directly off the raw TLV
// bytes; see DESIGN.md for why.
package bgpwire

import (
	"encoding/binary"
	"fmt"

	"github.com/bgpfix/bgpfix/attrs"
	"github.com/bgpfix/bgpfix/caps"
	"github.com/bgpfix/bgpfix/msg"

	"github.com/routeviews/bgpstream/bgpaddr"
	"github.com/routeviews/bgpstream/bgprecord"
	"github.com/routeviews/bgpstream/format/elemgen"
)

// Path attribute type codes the residual scalar-attribute walker
// recognises; everything else is left to bgpfix's own attribute parse.
const (
	attrOrigin          = 1
	attrMED             = 4
	attrLocalPref       = 5
	attrAtomicAggregate = 6
	attrAggregator      = 7
	attrAS4Path         = 17
	attrAS4Aggregator   = 18
)

const (
	asPathSegSet            = 1
	asPathSegSequence       = 2
	asPathSegConfedSequence = 3
	asPathSegConfedSet      = 4
)

// bgpHeaderLen is the RFC 4271 §4.1 common header length (16-byte
// marker + 2-byte length + 1-byte type).
const bgpHeaderLen = 19

// ErrShort indicates the input ended before a complete structure could
// be decoded; callers map this to a per-format TRUNCATED/CORRUPTED status.
var ErrShort = fmt.Errorf("bgpwire: message too short")

// ASNWidth selects 2-byte vs 4-byte AS numbers in AS_PATH/AGGREGATOR,
// which MRT/BMP framing tells the caller out of band (BGP4MP_MESSAGE vs
// BGP4MP_MESSAGE_AS4, or the BMP peer flags' A-bit).
type ASNWidth int

const (
	ASN2Byte ASNWidth = 2
	ASN4Byte ASNWidth = 4
)

// capsFor maps this package's ASNWidth onto the caps.Caps bgpfix's
// msg.Msg.Parse needs to pick a 2-byte vs. 4-byte AS_PATH codec (see
// core/attach.go's p.Caps.Use(caps.CAP_AS4) / caps.CAP_AS_GUESS).
func capsFor(width ASNWidth) caps.Caps {
	var c caps.Caps
	if width == ASN4Byte {
		c.Use(caps.CAP_AS4)
	} else {
		c.Use(caps.CAP_AS_GUESS)
	}
	return c
}

// wrapMessage prepends a synthesized 19-byte BGP common header (RFC
// 4271 §4.1) around body so it can be handed to msg.Msg.FromBytes,
// which (per stages/ris-live.go's msg.FromBytes(s.raw) and stages/rv-
// live/openbmp.go's m.FromBytes(bm.BgpData)) always expects a complete
// framed message, marker included.
func wrapMessage(msgType byte, body []byte) []byte {
	total := bgpHeaderLen + len(body)
	out := make([]byte, total)
	for i := 0; i < 16; i++ {
		out[i] = 0xFF
	}
	binary.BigEndian.PutUint16(out[16:18], uint16(total))
	out[18] = msgType
	copy(out[19:], body)
	return out
}

// wrapAttrsAsUpdate builds a minimal UPDATE body (zero withdrawn
// routes, zero trailing NLRI) around a bare path-attribute TLV
// sequence, for the TABLE_DUMP_V2 RIB-entry case where no withdrawn/
// NLRI framing exists at all (ParseRIBMessage's RIB entries).
func wrapAttrsAsUpdate(attrData []byte) []byte {
	body := make([]byte, 4+len(attrData))
	binary.BigEndian.PutUint16(body[2:4], uint16(len(attrData)))
	copy(body[4:], attrData)
	return body
}

// extractAttrBytes slices out the path-attribute TLV section of a full
// UPDATE body (everything after withdrawn routes length up to but not
// including the trailing NLRI), the same RFC 4271 envelope arithmetic
// ParseUpdate itself needs to locate the attribute section before
// handing the whole message to bgpfix.
func extractAttrBytes(body []byte) ([]byte, error) {
	if len(body) < 2 {
		return nil, ErrShort
	}
	wlen := int(binary.BigEndian.Uint16(body))
	body = body[2:]
	if len(body) < wlen {
		return nil, ErrShort
	}
	body = body[wlen:]

	if len(body) < 2 {
		return nil, ErrShort
	}
	alen := int(binary.BigEndian.Uint16(body))
	body = body[2:]
	if len(body) < alen {
		return nil, ErrShort
	}
	return body[:alen], nil
}

// ParseAttrsOnly decodes a bare BGP path-attribute TLV sequence (no
// surrounding withdrawn/NLRI length fields) into an elemgen.Update,
// used by MRT TABLE_DUMP_V2 RIB entries, whose attribute section is
// exactly this TLV sequence with no other framing.
func ParseAttrsOnly(data []byte, width ASNWidth) (*elemgen.Update, error) {
	wrapped := wrapMessage(BGPMsgUpdate, wrapAttrsAsUpdate(data))
	u, err := decodeViaBgpfix(wrapped, width)
	if err != nil {
		return nil, err
	}
	if err := scanScalarAttrs(data, width, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ParseUpdate decodes the body of a BGP UPDATE message (everything
// after the 19-byte common header, i.e. starting at withdrawn routes
// length) into an elemgen.Update.
func ParseUpdate(body []byte, width ASNWidth) (*elemgen.Update, error) {
	attrData, err := extractAttrBytes(body)
	if err != nil {
		return nil, err
	}

	wrapped := wrapMessage(BGPMsgUpdate, body)
	u, err := decodeViaBgpfix(wrapped, width)
	if err != nil {
		return nil, err
	}
	if err := scanScalarAttrs(attrData, width, u); err != nil {
		return nil, err
	}
	return u, nil
}

// decodeViaBgpfix runs a synthesized full BGP message through bgpfix's
// msg.Msg parser and converts the resulting *msg.Update into our
// family-separated elemgen.Update.
func decodeViaBgpfix(wrapped []byte, width ASNWidth) (*elemgen.Update, error) {
	m := new(msg.Msg)
	if _, err := m.FromBytes(wrapped); err != nil {
		return nil, fmt.Errorf("bgpwire: %w", err)
	}
	if err := m.Parse(capsFor(width)); err != nil {
		return nil, fmt.Errorf("bgpwire: %w", err)
	}
	if m.Type != msg.UPDATE {
		return nil, fmt.Errorf("bgpwire: not an UPDATE message")
	}
	return fromBgpfixUpdate(&m.Update), nil
}

// fromBgpfixUpdate converts a parsed *msg.Update into our
// family-separated elemgen.Update. Reach/Unreach (confirmed via
// stages/limit.go's direct iteration) cover IPv4 unicast; ReachMP/
// UnreachMP (stages/attr.go, stages/limit.go) cover every other
// AFI/SAFI, of which only IPv6 unicast is kept (spec.md §4.5 step 2
// drops the rest).
func fromBgpfixUpdate(u *msg.Update) *elemgen.Update {
	out := &elemgen.Update{}

	for _, n := range u.Reach {
		out.NLRIV4 = append(out.NLRIV4, bgpaddr.FromNLRI(n))
	}
	for _, n := range u.Unreach {
		out.WithdrawnV4 = append(out.WithdrawnV4, bgpaddr.FromNLRI(n))
	}

	if mp := u.ReachMP().Prefixes(); mp != nil && mp.IsIPv6() {
		if a, err := bgpaddr.FromNetip(mp.NextHop); err == nil {
			out.NextHopV6 = a
		}
		for _, n := range mp.Prefixes {
			out.NLRIV6 = append(out.NLRIV6, bgpaddr.FromNLRI(n))
		}
	}
	if mp := u.UnreachMP().Prefixes(); mp != nil && mp.IsIPv6() {
		for _, n := range mp.Prefixes {
			out.WithdrawnV6 = append(out.WithdrawnV6, bgpaddr.FromNLRI(n))
		}
	}

	if nh := u.NextHop(); nh.IsValid() && nh.Is4() {
		if a, err := bgpaddr.FromNetip(nh); err == nil {
			out.NextHopV4 = a
		}
	}

	if asp := u.AsPath(); asp != nil {
		out.ASPath = bgpaddr.FromAttrs(asp)
	}

	// Use() creates a zero-value *attrs.Community if the attribute is
	// absent, but a zero-value (no ASN/Value entries) and a genuinely
	// absent attribute both yield an empty CommunitySet, so the
	// create-on-read semantics are harmless here.
	if com, ok := u.Attrs.Use(attrs.ATTR_COMMUNITY).(*attrs.Community); ok {
		out.Communities = bgpaddr.FromAttrs(com)
	}

	return out
}

// scanScalarAttrs walks the raw path-attribute TLV sequence looking
// only for the scalar attributes bgpfix has no confirmed presence-safe
// accessor for (ORIGIN, MED, LOCAL_PREF, ATOMIC_AGGREGATE, AGGREGATOR,
// AS4_PATH, AS4_AGGREGATOR): unlike COMMUNITIES/AS_PATH/NEXT_HOP, these
// carry an explicit "was this attribute present at all" bit
// (MEDValid, LocalPrefValid, AggregatorValid, ...) that a create-on-
// read accessor cannot distinguish from "present but zero".
func scanScalarAttrs(data []byte, width ASNWidth, u *elemgen.Update) error {
	for len(data) > 0 {
		if len(data) < 3 {
			return ErrShort
		}
		flags := data[0]
		typ := data[1]
		extLen := flags&0x10 != 0
		var length int
		var hdrLen int
		if extLen {
			if len(data) < 4 {
				return ErrShort
			}
			length = int(binary.BigEndian.Uint16(data[2:4]))
			hdrLen = 4
		} else {
			length = int(data[2])
			hdrLen = 3
		}
		if len(data) < hdrLen+length {
			return ErrShort
		}
		val := data[hdrLen : hdrLen+length]
		data = data[hdrLen+length:]

		switch typ {
		case attrOrigin:
			if len(val) >= 1 {
				u.Origin = decodeOrigin(val[0])
			}
		case attrAS4Path:
			path, err := decodeASPath(val, ASN4Byte)
			if err != nil {
				return err
			}
			u.AS4Path = path
		case attrMED:
			if len(val) == 4 {
				u.MED = binary.BigEndian.Uint32(val)
				u.MEDValid = true
			}
		case attrLocalPref:
			if len(val) == 4 {
				u.LocalPref = binary.BigEndian.Uint32(val)
				u.LocalPrefValid = true
			}
		case attrAtomicAggregate:
			u.AtomicAggregate = true
		case attrAggregator:
			asn, addr, err := decodeAggregator(val, width)
			if err != nil {
				return err
			}
			u.Aggregator = bgprecord.Aggregator{ASN: asn, Address: addr}
			u.AggregatorValid = true
		case attrAS4Aggregator:
			asn, addr, err := decodeAggregator(val, ASN4Byte)
			if err != nil {
				return err
			}
			u.AS4Aggregator = bgprecord.Aggregator{ASN: asn, Address: addr}
			u.AS4AggregatorValid = true
		default:
			// everything else is bgpfix's to decode
		}
	}
	return nil
}

func decodeOrigin(b byte) bgprecord.Origin {
	switch b {
	case 0:
		return bgprecord.OriginIGP
	case 1:
		return bgprecord.OriginEGP
	case 2:
		return bgprecord.OriginIncomplete
	default:
		return bgprecord.OriginUnset
	}
}

func decodeASPath(val []byte, width ASNWidth) (bgpaddr.ASPath, error) {
	var path bgpaddr.ASPath
	for len(val) > 0 {
		if len(val) < 2 {
			return path, ErrShort
		}
		segType := val[0]
		count := int(val[1])
		val = val[2:]
		need := count * int(width)
		if len(val) < need {
			return path, ErrShort
		}
		asns := make([]uint32, count)
		for i := 0; i < count; i++ {
			asns[i] = readASN(val[i*int(width):], width)
		}
		val = val[need:]
		path.Append(segmentKind(segType), asns, 0)
	}
	return path, nil
}

func segmentKind(t byte) bgpaddr.SegmentKind {
	switch t {
	case asPathSegSet, asPathSegConfedSet:
		return bgpaddr.SegSet
	default:
		return bgpaddr.SegSequence
	}
}

func readASN(b []byte, width ASNWidth) uint32 {
	if width == ASN2Byte {
		return uint32(binary.BigEndian.Uint16(b))
	}
	return binary.BigEndian.Uint32(b)
}

func decodeAggregator(val []byte, width ASNWidth) (uint32, bgpaddr.Address, error) {
	need := int(width) + 4
	if len(val) < need {
		return 0, bgpaddr.Address{}, ErrShort
	}
	asn := readASN(val, width)
	addr, err := bgpaddr.FromBytes(val[width : int(width)+4])
	if err != nil {
		return 0, bgpaddr.Address{}, err
	}
	return asn, addr, nil
}
