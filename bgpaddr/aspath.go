package bgpaddr

import (
	"strings"

	"github.com/bgpfix/bgpfix/attrs"
)

// SegmentKind distinguishes the two AS_PATH segment types bgpfix's
// attrs.Segment represents (IsSet bool): RFC 4271 §4.3's AS_SEQUENCE
// and AS_SET. Confederation segments (RFC 5065) are not distinguished
// by attrs.Segment and so are not distinguished here either; a
// confederation segment decodes as SegSequence or SegSet depending on
// its IsSet bit.
type SegmentKind uint8

const (
	SegSequence SegmentKind = iota
	SegSet
)

// Segment is one ordered-or-unordered run of ASNs within an AS path,
// backed by bgpfix/bgpfix/attrs.Segment.
type Segment struct {
	attrs.Segment
}

// Kind reports whether this segment is a SET or a SEQUENCE.
func (s Segment) Kind() SegmentKind {
	if s.IsSet {
		return SegSet
	}
	return SegSequence
}

// HopCount returns this segment's contribution to the RFC 4271 path-length
// rule: a SEQUENCE segment counts its ASNs, a SET segment counts 1.
func (s Segment) HopCount() int {
	if s.IsSet {
		return 1
	}
	return len(s.List)
}

// Equal compares two segments: order-sensitive for SEQUENCE segments,
// order-insensitive for SET segments.
func (s Segment) Equal(o Segment) bool {
	if s.IsSet != o.IsSet || len(s.List) != len(o.List) {
		return false
	}
	if !s.IsSet {
		for i := range s.List {
			if s.List[i] != o.List[i] {
				return false
			}
		}
		return true
	}
	seen := make(map[uint32]int, len(s.List))
	for _, a := range s.List {
		seen[a]++
	}
	for _, a := range o.List {
		if seen[a] == 0 {
			return false
		}
		seen[a]--
	}
	return true
}

func (s Segment) brackets() (open, close string) {
	if s.IsSet {
		return "{", "}"
	}
	return "", ""
}

// ASPath is an ordered sequence of AS path segments, backed by
// bgpfix/bgpfix/attrs.ASPath (the type msg.Update.AsPath() returns).
type ASPath struct {
	attrs.ASPath
}

// FromAttrs wraps a decoded *attrs.ASPath (nil means "attribute
// absent", returning the zero ASPath).
func FromAttrs(a *attrs.ASPath) ASPath {
	if a == nil {
		return ASPath{}
	}
	return ASPath{*a}
}

// Clear empties the path, reusing the underlying slice storage.
func (p *ASPath) Clear() {
	p.Segments = p.Segments[:0]
}

// Append adds a segment to the path. length, if > 0 and less than
// len(asns), truncates asns to that many entries first.
func (p *ASPath) Append(kind SegmentKind, asns []uint32, length int) {
	if length > 0 && length < len(asns) {
		asns = asns[:length]
	}
	cp := append([]uint32(nil), asns...)
	p.Segments = append(p.Segments, attrs.Segment{IsSet: kind == SegSet, List: cp})
}

func (p ASPath) segment(i int) Segment { return Segment{p.Segments[i]} }

// Len returns the RFC 4271 total hop count across all segments.
func (p ASPath) Len() int {
	n := 0
	for i := range p.Segments {
		n += p.segment(i).HopCount()
	}
	return n
}

// Equal compares two paths segment-by-segment.
func (p ASPath) Equal(o ASPath) bool {
	if len(p.Segments) != len(o.Segments) {
		return false
	}
	for i := range p.Segments {
		if !p.segment(i).Equal(o.segment(i)) {
			return false
		}
	}
	return true
}

// String renders the path as whitespace-separated text, bracketing SET
// segments per spec.md §4.2.
func (p ASPath) String() string {
	var b strings.Builder
	for i := range p.Segments {
		if i > 0 {
			b.WriteByte(' ')
		}
		seg := p.segment(i)
		open, close := seg.brackets()
		b.WriteString(open)
		for j, asn := range seg.List {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(uitoa(asn))
		}
		b.WriteString(close)
	}
	return b.String()
}

func uitoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// Reconcile implements the AS_PATH / AS4_PATH merge algorithm from
// spec.md §4.2: given the receiver as the legacy 2-byte-ASN aspath and
// as4 as the 32-bit-ASN companion, produce the merged path.
//
//   - If as4 is empty, the legacy path is used as-is.
//   - If aspath.Len() >= as4.Len(), keep the first
//     (aspath.Len()-as4.Len()) effective hops of aspath, then append all
//     of as4's segments unchanged.
//   - Otherwise as4 is longer than aspath (which should not normally
//     happen); trust aspath alone.
//
// Segments are consumed whole except the last one retained, which may
// be partially consumed; SET segments always consume their full ASN
// list and count as 1 hop toward the budget.
func (p ASPath) Reconcile(as4 ASPath) ASPath {
	if len(as4.Segments) == 0 {
		return p
	}
	if len(p.Segments) == 0 {
		return as4
	}

	budget := p.Len() - as4.Len()
	if budget < 0 {
		// as4 longer than aspath: trust aspath alone
		return p
	}

	var out ASPath
	remaining := budget
	for i := range p.Segments {
		if remaining <= 0 {
			break
		}
		seg := p.segment(i)
		if seg.IsSet {
			// SET segments always consumed whole, count as 1
			out.Segments = append(out.Segments, seg.Segment)
			remaining--
			continue
		}
		if seg.HopCount() <= remaining {
			out.Segments = append(out.Segments, seg.Segment)
			remaining -= seg.HopCount()
		} else {
			// partially consume the last SEQUENCE segment
			out.Segments = append(out.Segments, attrs.Segment{
				List: append([]uint32(nil), seg.List[:remaining]...),
			})
			remaining = 0
		}
	}
	out.Segments = append(out.Segments, as4.Segments...)
	return out
}
