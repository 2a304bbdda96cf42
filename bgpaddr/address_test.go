package bgpaddr

import "testing"

func TestAddressRoundTrip(t *testing.T) {
	tests := []string{
		"10.0.0.1",
		"192.0.2.255",
		"::1",
		"2001:db8::1",
		"2001:db8:1::",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			a, err := ParseAddress(s)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := a.String(); got != s {
				t.Errorf("format(parse(%q)) = %q, want %q", s, got, s)
			}
		})
	}
}

func TestParseAddressMalformed(t *testing.T) {
	for _, s := range []string{"", "not-an-ip", "10.0.0.1.2", "999.0.0.1"} {
		if _, err := ParseAddress(s); err == nil {
			t.Errorf("ParseAddress(%q) succeeded, want error", s)
		}
	}
}

func TestAddressEqualAndCompare(t *testing.T) {
	a, _ := ParseAddress("10.0.0.1")
	b, _ := ParseAddress("10.0.0.1")
	c, _ := ParseAddress("10.0.0.2")
	v6, _ := ParseAddress("::1")

	if !a.Equal(b) {
		t.Error("expected equal addresses")
	}
	if a.Equal(c) {
		t.Error("expected different addresses")
	}
	if a.Compare(c) >= 0 {
		t.Error("expected a < c")
	}
	if a.Compare(v6) >= 0 {
		t.Error("expected v4 < v6 in total ordering")
	}
}

func TestAddressHashConsistency(t *testing.T) {
	a, _ := ParseAddress("192.0.2.1")
	b, _ := ParseAddress("192.0.2.1")
	if a.Hash() != b.Hash() {
		t.Error("equal addresses must hash equal")
	}
}
