package bgpaddr

import (
	"fmt"
	"net/netip"
)

// CoverMode selects one of the three prefix-matching interpretations
// carried in filter state (spec.md §3: "exact" and "any/more-specific/
// less-specific" are not part of the prefix value itself).
type CoverMode uint8

const (
	// CoverExact matches only the identical prefix.
	CoverExact CoverMode = iota
	// CoverAny matches the prefix itself and any more-specific prefix
	// covered by it (mask-covered).
	CoverAny
	// CoverLessSpecific matches the prefix itself and any less-specific
	// prefix that covers it.
	CoverLessSpecific
)

// Prefix wraps a netip.Prefix, the same representation bgpfix/bgpfix's
// nlri.NLRI converts to/from (nlri.FromPrefix, nlri.NLRI.Addr/.Bits).
type Prefix struct {
	netip.Prefix
}

// NewPrefix constructs a Prefix, masking off host bits and validating
// the mask length against the address family.
func NewPrefix(addr Address, maskLen uint8) (Prefix, error) {
	max, err := maxMask(addr.Version())
	if err != nil {
		return Prefix{}, err
	}
	if maskLen > max {
		return Prefix{}, fmt.Errorf("%w: mask length %d exceeds %d", ErrMalformed, maskLen, max)
	}
	p := netip.PrefixFrom(addr.Addr, int(maskLen)).Masked()
	return Prefix{p}, nil
}

func maxMask(v Version) (uint8, error) {
	switch v {
	case VersionIPv4:
		return 32, nil
	case VersionIPv6:
		return 128, nil
	default:
		return 0, fmt.Errorf("%w: invalid address version", ErrMalformed)
	}
}

// ParsePrefix parses canonical CIDR text, e.g. "10.0.0.0/24" or "2001:db8::/32".
func ParsePrefix(s string) (Prefix, error) {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return Prefix{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.Addr().Is4In6() {
		p = netip.PrefixFrom(p.Addr().Unmap(), p.Bits())
	}
	return Prefix{p.Masked()}, nil
}

// Addr returns the masked network address.
func (p Prefix) Addr() Address { return Address{p.Prefix.Addr()} }

// MaskLen returns the prefix length.
func (p Prefix) MaskLen() uint8 { return uint8(p.Prefix.Bits()) }

// String formats as canonical CIDR text.
func (p Prefix) String() string { return p.Prefix.String() }

// Equal reports value equality (host bits already masked off at construction).
func (p Prefix) Equal(o Prefix) bool {
	return p.Prefix.Bits() == o.Prefix.Bits() && p.Prefix.Addr() == o.Prefix.Addr()
}

// Covers reports whether p matches other under the given CoverMode.
func (p Prefix) Covers(other Prefix, mode CoverMode) bool {
	if p.Prefix.Addr().Is4() != other.Prefix.Addr().Is4() {
		return false
	}
	switch mode {
	case CoverExact:
		return p.Equal(other)
	case CoverAny:
		return p.Prefix.Bits() <= other.Prefix.Bits() && p.Prefix.Contains(other.Prefix.Addr())
	case CoverLessSpecific:
		return p.Prefix.Bits() >= other.Prefix.Bits() && other.Prefix.Contains(p.Prefix.Addr())
	default:
		return false
	}
}
