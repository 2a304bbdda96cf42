package bmp

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/routeviews/bgpstream/bgprecord"
	"github.com/routeviews/bgpstream/format"
	"github.com/routeviews/bgpstream/internal/bgpwire"
	"github.com/routeviews/bgpstream/resource"
)

type memTransport struct {
	r *bytes.Reader
}

func (m *memTransport) Read(p []byte) (int, error) { return m.r.Read(p) }
func (m *memTransport) ReadLine() ([]byte, error)   { return nil, nil }
func (m *memTransport) Close() error                { return nil }

func putBMPHeader(buf *bytes.Buffer, msgType byte, body []byte) {
	buf.WriteByte(3) // version
	binary.Write(buf, binary.BigEndian, uint32(6+len(body)))
	buf.WriteByte(msgType)
	buf.Write(body)
}

func peerHeader(ts uint32) []byte {
	var b bytes.Buffer
	b.WriteByte(0)    // peer type: global instance
	b.WriteByte(0x00) // flags: IPv4, 2-byte ASN off (A-bit clear means 4-byte ASN)
	b.Write(make([]byte, 8))      // distinguisher
	b.Write(make([]byte, 12))     // padding for v4-mapped field
	b.Write([]byte{192, 0, 2, 1}) // peer address (v4)
	binary.Write(&b, binary.BigEndian, uint32(65001)) // peer AS
	b.Write(make([]byte, 4))                          // peer BGP ID
	binary.Write(&b, binary.BigEndian, ts)             // timestamp sec
	b.Write(make([]byte, 4))                           // timestamp usec
	return b.Bytes()
}

func bgpUpdateMessage() []byte {
	var attrs bytes.Buffer
	attrs.Write([]byte{0x40, 1, 1, 0})                       // ORIGIN = IGP
	attrs.Write([]byte{0x40, 2, 6, 2, 1, 0, 0, 0xFD, 0xE9})  // AS_PATH SEQUENCE [65001]
	attrs.Write([]byte{0x40, 3, 4, 192, 0, 2, 1})            // NEXT_HOP

	var body bytes.Buffer
	binary.Write(&body, binary.BigEndian, uint16(0)) // withdrawn routes length
	binary.Write(&body, binary.BigEndian, uint16(attrs.Len()))
	body.Write(attrs.Bytes())
	body.WriteByte(24) // NLRI: 10.0.0.0/24
	body.Write([]byte{10, 0, 0})

	var msg bytes.Buffer
	msg.Write(bytes.Repeat([]byte{0xFF}, 16)) // marker
	binary.Write(&msg, binary.BigEndian, uint16(19+body.Len()))
	msg.WriteByte(byte(bgpwire.BGPMsgUpdate))
	msg.Write(body.Bytes())
	return msg.Bytes()
}

func TestPopulateRecordDecodesRouteMonitoring(t *testing.T) {
	var body bytes.Buffer
	body.Write(peerHeader(2000))
	body.Write(bgpUpdateMessage())

	var raw bytes.Buffer
	putBMPHeader(&raw, bgpwire.BMPMsgRouteMonitoring, body.Bytes())

	f, err := Open(&memTransport{r: bytes.NewReader(raw.Bytes())}, resource.Resource{FormatKind: "bmp"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var rec bgprecord.Record
	st := f.PopulateRecord(&rec)
	if st != format.StatusOK {
		t.Fatalf("expected StatusOK, got %v", st)
	}
	if rec.Type != bgprecord.RecordUpdate {
		t.Errorf("expected RecordUpdate, got %v", rec.Type)
	}
	if rec.TimeSec != 2000 {
		t.Errorf("expected TimeSec 2000, got %d", rec.TimeSec)
	}

	e, ok, err := rec.NextElem()
	if err != nil || !ok {
		t.Fatalf("expected one elem, ok=%v err=%v", ok, err)
	}
	if e.Type != bgprecord.ElemAnnouncement {
		t.Errorf("expected ElemAnnouncement, got %v", e.Type)
	}
	if e.PeerASN != 65001 {
		t.Errorf("expected peer ASN 65001, got %d", e.PeerASN)
	}
	if e.Prefix.String() != "10.0.0.0/24" {
		t.Errorf("expected prefix 10.0.0.0/24, got %s", e.Prefix.String())
	}

	if _, ok, _ := rec.NextElem(); ok {
		t.Error("expected exhaustion after the single announcement")
	}

	st = f.PopulateRecord(&rec)
	if st != format.StatusEndOfDump {
		t.Errorf("expected StatusEndOfDump, got %v", st)
	}
}

func TestPopulateRecordDecodesPeerUpDown(t *testing.T) {
	var up bytes.Buffer
	putBMPHeader(&up, bgpwire.BMPMsgPeerUpNotification, peerHeaderWithPeerUpTrailer(1000))

	var raw bytes.Buffer
	raw.Write(up.Bytes())

	f, err := Open(&memTransport{r: bytes.NewReader(raw.Bytes())}, resource.Resource{FormatKind: "bmp"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var rec bgprecord.Record
	st := f.PopulateRecord(&rec)
	if st != format.StatusOK {
		t.Fatalf("expected StatusOK, got %v", st)
	}

	e, ok, err := rec.NextElem()
	if err != nil || !ok {
		t.Fatalf("expected one elem, ok=%v err=%v", ok, err)
	}
	if e.Type != bgprecord.ElemPeerState {
		t.Errorf("expected ElemPeerState, got %v", e.Type)
	}
	if e.NewState != bgprecord.StateEstablished {
		t.Errorf("expected StateEstablished, got %v", e.NewState)
	}
}

// peerHeaderWithPeerUpTrailer builds a PEER_UP_NOTIFICATION body: the
// standard per-peer header followed by local address/ports. The OPEN
// message pair is omitted, since this decoder does not inspect it.
func peerHeaderWithPeerUpTrailer(ts uint32) []byte {
	var b bytes.Buffer
	b.Write(peerHeader(ts))
	b.Write(make([]byte, 16)) // local address
	b.Write(make([]byte, 2))  // local port
	b.Write(make([]byte, 2))  // remote port
	return b.Bytes()
}
