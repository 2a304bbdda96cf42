package bgpaddr

import (
	"net/netip"

	"github.com/bgpfix/bgpfix/nlri"
)

// FromNLRI converts a bgpfix nlri.NLRI (as found in msg.Update.Reach/
// Unreach and the MP_REACH/MP_UNREACH prefix lists; see
// stages/limit.go's iteration over u.Reach/u.Unreach) into a Prefix.
func FromNLRI(n nlri.NLRI) Prefix {
	return Prefix{netip.PrefixFrom(n.Addr(), n.Bits())}
}

// ToNLRI converts a Prefix into the nlri.NLRI bgpfix's write-side APIs
// expect (see stages/grep.go's nlri.FromPrefix call).
func (p Prefix) ToNLRI() nlri.NLRI {
	return nlri.FromPrefix(p.Prefix)
}
