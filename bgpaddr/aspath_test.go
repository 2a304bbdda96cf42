package bgpaddr

import "testing"

func seqPath(asns ...uint32) ASPath {
	var p ASPath
	p.Append(SegSequence, asns, 0)
	return p
}

func TestASPathString(t *testing.T) {
	var p ASPath
	p.Append(SegSequence, []uint32{65001, 65002}, 0)
	p.Append(SegSet, []uint32{65003, 65004}, 0)

	want := "65001 65002 {65003 65004}"
	if got := p.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestASPathHopCount(t *testing.T) {
	var p ASPath
	p.Append(SegSequence, []uint32{1, 2, 3}, 0)
	p.Append(SegSet, []uint32{4, 5}, 0)
	if got, want := p.Len(), 4; got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}
}

func TestASPathEqual(t *testing.T) {
	a := seqPath(1, 2, 3)
	b := seqPath(1, 2, 3)
	c := seqPath(3, 2, 1)
	if !a.Equal(b) {
		t.Error("identical sequences must be equal")
	}
	if a.Equal(c) {
		t.Error("SEQUENCE order matters")
	}

	var setA, setB ASPath
	setA.Append(SegSet, []uint32{1, 2, 3}, 0)
	setB.Append(SegSet, []uint32{3, 1, 2}, 0)
	if !setA.Equal(setB) {
		t.Error("SET order must not matter")
	}
}

// Testable Property #3: reconcile(a, a) == a.
func TestReconcileIdempotent(t *testing.T) {
	a := seqPath(65001, 65002, 65003)
	got := a.Reconcile(a)
	if !got.Equal(a) {
		t.Errorf("Reconcile(a, a) = %v, want %v", got, a)
	}
}

// Testable Property #4: length rule.
func TestReconcileLengthRule(t *testing.T) {
	aspath := seqPath(65001, 65002, 65003, 65004)
	as4 := seqPath(65002, 65003, 65004)

	got := aspath.Reconcile(as4)
	if got.Len() != aspath.Len() {
		t.Errorf("Len(reconcile) = %d, want %d (== len(aspath))", got.Len(), aspath.Len())
	}

	// aspath shorter than as4: trust aspath alone, length == len(aspath)
	short := seqPath(65001)
	got2 := short.Reconcile(as4)
	if got2.Len() != short.Len() {
		t.Errorf("Len(reconcile) = %d, want %d (== len(short aspath))", got2.Len(), short.Len())
	}
}

func TestReconcileMergeContent(t *testing.T) {
	aspath := seqPath(65001, 65002, 65003, 65004)
	as4 := seqPath(65102, 65103, 65104)

	got := aspath.Reconcile(as4)
	var want ASPath
	want.Append(SegSequence, []uint32{65001}, 0)
	want.Append(SegSequence, []uint32{65102, 65103, 65104}, 0)
	if !got.Equal(want) {
		t.Errorf("Reconcile content = %v, want %v", got, want)
	}
}

func TestReconcileOnlyOnePresent(t *testing.T) {
	aspath := seqPath(65001, 65002)
	var empty ASPath
	if got := aspath.Reconcile(empty); !got.Equal(aspath) {
		t.Errorf("Reconcile with empty as4 should return aspath unchanged, got %v", got)
	}
	if got := empty.Reconcile(aspath); !got.Equal(aspath) {
		t.Errorf("Reconcile from empty aspath should return as4, got %v", got)
	}
}
