package mrt

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/routeviews/bgpstream/bgprecord"
	"github.com/routeviews/bgpstream/format"
	"github.com/routeviews/bgpstream/internal/bgpwire"
	"github.com/routeviews/bgpstream/resource"
)

// memTransport adapts a bytes.Reader to the transport.Transport
// interface for tests that don't need a real file/network source.
type memTransport struct {
	r *bytes.Reader
}

func (m *memTransport) Read(p []byte) (int, error) { return m.r.Read(p) }
func (m *memTransport) ReadLine() ([]byte, error)   { return nil, nil }
func (m *memTransport) Close() error                { return nil }

func putHeader(buf *bytes.Buffer, ts uint32, typ, subtype uint16, body []byte) {
	binary.Write(buf, binary.BigEndian, ts)
	binary.Write(buf, binary.BigEndian, typ)
	binary.Write(buf, binary.BigEndian, subtype)
	binary.Write(buf, binary.BigEndian, uint32(len(body)))
	buf.Write(body)
}

func peerIndexTableBody() []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.BigEndian, uint32(0)) // collector BGP ID
	binary.Write(&b, binary.BigEndian, uint16(0)) // view name length
	binary.Write(&b, binary.BigEndian, uint16(1)) // peer count

	b.WriteByte(0x02) // peer type: AS4, IPv4
	binary.Write(&b, binary.BigEndian, uint32(0)) // peer BGP ID
	b.Write([]byte{192, 0, 2, 254})                // peer IP
	binary.Write(&b, binary.BigEndian, uint32(65000))
	return b.Bytes()
}

func ribIPv4Body(t *testing.T) []byte {
	t.Helper()
	var b bytes.Buffer
	binary.Write(&b, binary.BigEndian, uint32(0)) // sequence number
	b.WriteByte(24)                               // prefix length
	b.Write([]byte{10, 0, 0})                     // prefix bytes (ceil(24/8)=3)
	binary.Write(&b, binary.BigEndian, uint16(1)) // entry count

	var attrs bytes.Buffer
	// ORIGIN = IGP
	attrs.Write([]byte{0x40, 1, 1, 0})
	// AS_PATH: one SEQUENCE segment with ASN 65001 (4-byte, since RIB attrs are always AS4)
	attrs.Write([]byte{0x40, 2, 6, 2, 1, 0, 0, 0xFD, 0xE9}) // 65001 = 0xFDE9
	// NEXT_HOP
	attrs.Write([]byte{0x40, 3, 4, 192, 0, 2, 1})

	binary.Write(&b, binary.BigEndian, uint16(0))            // peer index
	binary.Write(&b, binary.BigEndian, uint32(0))            // originated time
	binary.Write(&b, binary.BigEndian, uint16(attrs.Len()))  // attr length
	b.Write(attrs.Bytes())

	return b.Bytes()
}

func TestPopulateRecordDecodesRIB(t *testing.T) {
	var raw bytes.Buffer
	putHeader(&raw, 1000, bgpwire.MRTTypeTableDumpV2, bgpwire.TableDumpV2PeerIndexTable, peerIndexTableBody())
	putHeader(&raw, 1000, bgpwire.MRTTypeTableDumpV2, bgpwire.TableDumpV2RIBIPv4Unicast, ribIPv4Body(t))

	f, err := Open(&memTransport{r: bytes.NewReader(raw.Bytes())}, resource.Resource{FormatKind: "mrt"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var rec bgprecord.Record
	st := f.PopulateRecord(&rec)
	if st != format.StatusOK {
		t.Fatalf("expected StatusOK, got %v", st)
	}
	if rec.Type != bgprecord.RecordRIB {
		t.Errorf("expected RecordRIB, got %v", rec.Type)
	}
	if rec.TimeSec != 1000 {
		t.Errorf("expected TimeSec 1000, got %d", rec.TimeSec)
	}

	e, ok, err := rec.NextElem()
	if err != nil || !ok {
		t.Fatalf("expected one elem, ok=%v err=%v", ok, err)
	}
	if e.Type != bgprecord.ElemRIB {
		t.Errorf("expected ElemRIB, got %v", e.Type)
	}
	if e.PeerASN != 65000 {
		t.Errorf("expected peer ASN 65000, got %d", e.PeerASN)
	}
	if e.Prefix.String() != "10.0.0.0/24" {
		t.Errorf("expected prefix 10.0.0.0/24, got %s", e.Prefix.String())
	}
	if e.ASPath.String() != "65001" {
		t.Errorf("expected AS path [65001], got %q", e.ASPath.String())
	}

	if _, ok, _ := rec.NextElem(); ok {
		t.Error("expected RIB record to yield exactly one elem")
	}

	st = f.PopulateRecord(&rec)
	if st != format.StatusEndOfDump {
		t.Errorf("expected StatusEndOfDump, got %v", st)
	}
}
