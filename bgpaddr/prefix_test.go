package bgpaddr

import "testing"

func TestPrefixRoundTrip(t *testing.T) {
	tests := []string{
		"10.0.0.0/24",
		"0.0.0.0/0",
		"192.0.2.128/32",
		"2001:db8::/32",
		"::/0",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			p, err := ParsePrefix(s)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := p.String(); got != s {
				t.Errorf("format(parse(%q)) = %q, want %q", s, got, s)
			}
		})
	}
}

func TestPrefixMasksHostBits(t *testing.T) {
	p, err := ParsePrefix("10.0.0.123/24")
	if err != nil {
		t.Fatal(err)
	}
	if got := p.String(); got != "10.0.0.0/24" {
		t.Errorf("got %q, want host bits masked to 10.0.0.0/24", got)
	}
}

func TestPrefixInvalidMask(t *testing.T) {
	if _, err := ParsePrefix("10.0.0.0/33"); err == nil {
		t.Error("expected error for mask > 32 on IPv4")
	}
	if _, err := ParsePrefix("2001:db8::/129"); err == nil {
		t.Error("expected error for mask > 128 on IPv6")
	}
}

func TestPrefixCovers(t *testing.T) {
	wide, _ := ParsePrefix("10.0.0.0/8")
	narrow, _ := ParsePrefix("10.0.0.0/24")
	exact, _ := ParsePrefix("10.0.0.0/24")
	other, _ := ParsePrefix("11.0.0.0/24")

	if !wide.Covers(narrow, CoverAny) {
		t.Error("wide should cover narrow under CoverAny")
	}
	if !narrow.Covers(wide, CoverLessSpecific) {
		t.Error("narrow should cover wide under CoverLessSpecific")
	}
	if !narrow.Covers(exact, CoverExact) {
		t.Error("narrow should cover itself under CoverExact")
	}
	if wide.Covers(other, CoverAny) {
		t.Error("wide should not cover unrelated prefix")
	}
	if narrow.Covers(wide, CoverAny) {
		t.Error("narrow should not cover a wider prefix under CoverAny")
	}
}
