package elemgen

import (
	"testing"

	"github.com/routeviews/bgpstream/bgpaddr"
	"github.com/routeviews/bgpstream/bgprecord"
)

func p(t *testing.T, s string) bgpaddr.Prefix {
	t.Helper()
	pfx, err := bgpaddr.ParsePrefix(s)
	if err != nil {
		t.Fatalf("ParsePrefix(%q): %v", s, err)
	}
	return pfx
}

func addr(t *testing.T, s string) bgpaddr.Address {
	t.Helper()
	a, err := bgpaddr.ParseAddress(s)
	if err != nil {
		t.Fatalf("ParseAddress(%q): %v", s, err)
	}
	return a
}

// Testable Property #9: exhausting an update's elems drains withdrawals
// then announcements and finally returns none, with counts matching.
func TestGeneratorDrainsWithdrawalsThenAnnouncements(t *testing.T) {
	u := &Update{
		WithdrawnV4: []bgpaddr.Prefix{p(t, "10.0.0.0/24"), p(t, "10.0.1.0/24")},
		NLRIV4:      []bgpaddr.Prefix{p(t, "10.0.2.0/24")},
		NextHopV4:   addr(t, "192.0.2.1"),
		Origin:      bgprecord.OriginIGP,
	}
	var g Generator
	g.ResetUpdate(u, addr(t, "192.0.2.254"), 65000)

	var got []bgprecord.Elem
	for {
		e, ok, err := g.NextElem()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		got = append(got, e)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 elems, got %d", len(got))
	}
	if got[0].Type != bgprecord.ElemWithdrawal || got[1].Type != bgprecord.ElemWithdrawal {
		t.Errorf("expected first two elems to be withdrawals, got %v %v", got[0].Type, got[1].Type)
	}
	if got[2].Type != bgprecord.ElemAnnouncement {
		t.Errorf("expected third elem to be announcement, got %v", got[2].Type)
	}
	if !got[2].NextHop.Equal(addr(t, "192.0.2.1")) {
		t.Errorf("expected announcement next-hop to be populated, got %v", got[2].NextHop)
	}

	if _, ok, _ := g.NextElem(); ok {
		t.Error("expected generator to be exhausted")
	}
}

func TestGeneratorSingleElem(t *testing.T) {
	var g Generator
	g.ResetSingle(bgprecord.Elem{Type: bgprecord.ElemPeerState, NewState: bgprecord.StateEstablished})

	e, ok, err := g.NextElem()
	if err != nil || !ok {
		t.Fatalf("expected one elem, got ok=%v err=%v", ok, err)
	}
	if e.Type != bgprecord.ElemPeerState {
		t.Errorf("expected PEERSTATE elem, got %v", e.Type)
	}

	if _, ok, _ := g.NextElem(); ok {
		t.Error("expected single-elem generator to be exhausted after one call")
	}
}

func TestGeneratorPrefersAS4Aggregator(t *testing.T) {
	u := &Update{
		NLRIV4:             []bgpaddr.Prefix{p(t, "10.0.0.0/24")},
		NextHopV4:          addr(t, "192.0.2.1"),
		AggregatorValid:    true,
		Aggregator:         bgprecord.Aggregator{ASN: 100, Address: addr(t, "192.0.2.1")},
		AS4AggregatorValid: true,
		AS4Aggregator:      bgprecord.Aggregator{ASN: 4200000100, Address: addr(t, "192.0.2.1")},
	}
	var g Generator
	g.ResetUpdate(u, addr(t, "192.0.2.254"), 65000)

	e, ok, err := g.NextElem()
	if err != nil || !ok {
		t.Fatalf("expected an elem, ok=%v err=%v", ok, err)
	}
	if e.Aggregator.ASN != 4200000100 {
		t.Errorf("expected AS4_AGGREGATOR to take precedence, got ASN %d", e.Aggregator.ASN)
	}
}
