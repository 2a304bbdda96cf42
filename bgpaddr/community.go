package bgpaddr

import (
	"fmt"

	"github.com/bgpfix/bgpfix/attrs"
)

// Community is a (high-16, low-16) pair, as carried by the BGP
// COMMUNITIES path attribute.
type Community struct {
	High uint16
	Low  uint16
}

// Well-known community values (RFC 1997).
var (
	NoExport          = Community{High: 0xFFFF, Low: 0xFF01}
	NoAdvertise       = Community{High: 0xFFFF, Low: 0xFF02}
	NoExportSubconfed = Community{High: 0xFFFF, Low: 0xFF03}
)

// String renders a community as "high:low".
func (c Community) String() string {
	return fmt.Sprintf("%d:%d", c.High, c.Low)
}

// CommunitySet is an ordered sequence of communities, backed by
// bgpfix/bgpfix/attrs.Community's parallel ASN/Value arrays (see
// stages/attr.go's u.Attrs.Use(attrs.ATTR_COMMUNITY).(*attrs.Community)
// and its com.Add(asn, val) calls). Order is preserved for round-trip
// fidelity (Testable Property #2); duplicates are not deduplicated
// since the wire format does not require it.
type CommunitySet struct {
	attrs.Community
}

// FromAttrs wraps a decoded *attrs.Community (nil means "attribute
// absent", returning the zero CommunitySet).
func FromAttrs(a *attrs.Community) CommunitySet {
	if a == nil {
		return CommunitySet{}
	}
	return CommunitySet{*a}
}

// Add appends a community to the set.
func (s *CommunitySet) Add(c Community) {
	s.Community.Add(c.High, c.Low)
}

// Clear empties the set, reusing storage.
func (s *CommunitySet) Clear() {
	s.ASN = s.ASN[:0]
	s.Value = s.Value[:0]
}

// Len returns the number of communities.
func (s *CommunitySet) Len() int { return len(s.ASN) }

// All returns the communities in insertion order.
func (s *CommunitySet) All() []Community {
	out := make([]Community, len(s.ASN))
	for i := range s.ASN {
		out[i] = Community{High: s.ASN[i], Low: s.Value[i]}
	}
	return out
}

// Contains reports whether c is present anywhere in the set.
func (s *CommunitySet) Contains(c Community) bool {
	for i := range s.ASN {
		if s.ASN[i] == c.High && s.Value[i] == c.Low {
			return true
		}
	}
	return false
}

// Equal compares two sets in order (round-trip property).
func (s *CommunitySet) Equal(o *CommunitySet) bool {
	if s.Len() != o.Len() {
		return false
	}
	for i := range s.ASN {
		if s.ASN[i] != o.ASN[i] || s.Value[i] != o.Value[i] {
			return false
		}
	}
	return true
}

// String formats the set as space-separated "high:low" pairs.
func (s *CommunitySet) String() string {
	var out []byte
	for i := range s.ASN {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, Community{High: s.ASN[i], Low: s.Value[i]}.String()...)
	}
	return string(out)
}

// ParseCommunity parses a single "high:low" community string.
func ParseCommunity(s string) (Community, error) {
	i := -1
	for j, c := range s {
		if c == ':' {
			i = j
			break
		}
	}
	if i < 0 {
		return Community{}, fmt.Errorf("%w: bad community %q", ErrMalformed, s)
	}
	hi, err := parseUint16(s[:i])
	if err != nil {
		return Community{}, fmt.Errorf("%w: bad community %q", ErrMalformed, s)
	}
	lo, err := parseUint16(s[i+1:])
	if err != nil {
		return Community{}, fmt.Errorf("%w: bad community %q", ErrMalformed, s)
	}
	return Community{High: hi, Low: lo}, nil
}

func parseUint16(s string) (uint16, error) {
	if len(s) == 0 {
		return 0, ErrMalformed
	}
	var v uint32
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, ErrMalformed
		}
		v = v*10 + uint32(c-'0')
		if v > 0xFFFF {
			return 0, ErrMalformed
		}
	}
	return uint16(v), nil
}
