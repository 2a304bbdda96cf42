// Package bgpaddr provides the address, prefix, AS-path, and BGP
// community value types shared by every other package in this module.
//
// Addresses and prefixes sit directly on net/netip, the same
// representation bgpfix/bgpfix threads through its NLRI, next-hop, and
// peer types (see stages/attr.go's s.opt_nexthop4 netip.Addr field and
// stages/limit.go's nlri.NLRI.Addr() netip.Addr). AS-path and community
// values embed bgpfix/bgpfix/attrs's wire types directly rather than
// reimplementing BGP attribute decoding.
package bgpaddr

import (
	"fmt"
	"net/netip"
)

// Version distinguishes the address family.
type Version uint8

const (
	VersionInvalid Version = iota
	VersionIPv4
	VersionIPv6
)

func (v Version) String() string {
	switch v {
	case VersionIPv4:
		return "ipv4"
	case VersionIPv6:
		return "ipv6"
	default:
		return "invalid"
	}
}

// Address wraps a netip.Addr, restricted to the 4-byte/16-byte wire
// forms this module's formats actually decode.
type Address struct {
	netip.Addr
}

// ErrMalformed is returned when parsing invalid address/prefix text.
var ErrMalformed = fmt.Errorf("malformed address")

// FromBytes constructs an Address from parsed wire bytes.
func FromBytes(b []byte) (Address, error) {
	switch len(b) {
	case 4:
		return Address{netip.AddrFrom4([4]byte(b))}, nil
	case 16:
		return Address{netip.AddrFrom16([16]byte(b))}, nil
	default:
		return Address{}, fmt.Errorf("%w: bad length %d", ErrMalformed, len(b))
	}
}

// FromNetip converts a netip.Addr into an Address.
func FromNetip(a netip.Addr) (Address, error) {
	if !a.IsValid() {
		return Address{}, ErrMalformed
	}
	if a.Is4In6() {
		a = a.Unmap()
	}
	return Address{a}, nil
}

// ParseAddress parses canonical text (dotted-quad or colon-hex) into an Address.
func ParseAddress(s string) (Address, error) {
	na, err := netip.ParseAddr(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return FromNetip(na)
}

// Version reports the address family.
func (a Address) Version() Version {
	switch {
	case !a.IsValid():
		return VersionInvalid
	case a.Is4():
		return VersionIPv4
	default:
		return VersionIPv6
	}
}

// Bytes returns the raw wire bytes (4 or 16, depending on version).
func (a Address) Bytes() []byte {
	switch a.Version() {
	case VersionIPv4:
		b := a.As4()
		return b[:]
	case VersionIPv6:
		b := a.As16()
		return b[:]
	default:
		return nil
	}
}

// Netip converts to a netip.Addr.
func (a Address) Netip() netip.Addr { return a.Addr }

// Equal reports value equality.
func (a Address) Equal(b Address) bool { return a.Addr == b.Addr }

// Compare gives a total ordering: version first, then address bytes.
func (a Address) Compare(b Address) int {
	if av, bv := a.Version(), b.Version(); av != bv {
		if av < bv {
			return -1
		}
		return 1
	}
	return a.Addr.Compare(b.Addr)
}

// Hash returns a simple FNV-1a hash of the address, suitable for map keys
// or set membership checks in the filter manager.
func (a Address) Hash() uint64 {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := uint64(offset)
	h ^= uint64(a.Version())
	h *= prime
	for _, b := range a.Bytes() {
		h ^= uint64(b)
		h *= prime
	}
	return h
}
