// Package rislive implements the C3 RIPE RIS-Live JSON-line format
// variant: one `{"type": "ris_message"|"ris_error", "data": {...}}`
// object per line, fields pulled with github.com/buger/jsonparser the
// same way stages/ris-live.go's risPaths/json.ObjectPaths walk does,
// reimplemented here with direct jsonparser calls since this module
// does not depend on bgpfix/json's path-array helper (see DESIGN.md).
package rislive

import (
	"bytes"
	"encoding/hex"
	"strconv"

	"github.com/buger/jsonparser"
	"github.com/rs/zerolog"

	"github.com/routeviews/bgpstream/bgpaddr"
	"github.com/routeviews/bgpstream/bgprecord"
	"github.com/routeviews/bgpstream/format"
	"github.com/routeviews/bgpstream/format/elemgen"
	"github.com/routeviews/bgpstream/internal/bgpwire"
	"github.com/routeviews/bgpstream/resource"
	"github.com/routeviews/bgpstream/transport"
)

func init() {
	format.Register("ris-live", Open)
}

// Format decodes a RIS-Live JSON-line stream into records.
type Format struct {
	log zerolog.Logger
	t   transport.Transport

	filter format.TimeFilter

	successfulReadCnt uint64
	validReadCnt      uint64
}

// Open constructs a RIS-Live Format reading from t.
func Open(t transport.Transport, res resource.Resource, filter format.TimeFilter) (format.Format, error) {
	return &Format{t: t, filter: filter}, nil
}

func (f *Format) Close() error { return f.t.Close() }

func (f *Format) PopulateRecord(rec *bgprecord.Record) format.Status {
	for {
		line, err := f.t.ReadLine()
		if err != nil {
			if f.successfulReadCnt == 0 {
				return format.StatusEmptyDump
			}
			if f.validReadCnt == 0 {
				return format.StatusFilteredDump
			}
			return format.StatusEndOfDump
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		st, gen, timeSec, collector := f.processLine(line)
		switch st {
		case lineSkip:
			continue
		case lineCorrupted:
			return format.StatusCorruptedDump
		case lineFiltered:
			continue
		case lineUnsupported:
			rec.TimeSec = timeSec
			rec.CollectorName = collector
			rec.Type = bgprecord.RecordUpdate
			rec.Status = bgprecord.StatusUnsupported
			rec.SetGenerator(nil)
			return format.StatusUnsupported
		case lineOK:
			rec.TimeSec = timeSec
			rec.CollectorName = collector
			rec.Type = bgprecord.RecordUpdate
			rec.Status = bgprecord.StatusValid
			if f.successfulReadCnt == 1 {
				rec.DumpPos = bgprecord.DumpStart
			} else {
				rec.DumpPos = bgprecord.DumpMiddle
			}
			rec.SetGenerator(gen)
			return format.StatusOK
		}
	}
}

func (f *Format) NextElem(rec *bgprecord.Record) (bgprecord.Elem, bool, error) {
	return rec.NextElem()
}

type lineStatus int

const (
	lineSkip lineStatus = iota
	lineCorrupted
	lineFiltered
	lineUnsupported
	lineOK
)

// processLine parses one JSON line, returning the outcome and (on
// lineOK) a ready-to-emit generator, its record time, and collector name.
func (f *Format) processLine(line []byte) (lineStatus, *elemgen.Generator, uint32, string) {
	if l := len(line); l < 10 || line[0] != '{' || line[l-1] != '}' {
		return lineCorrupted, nil, 0, ""
	}

	envType, err := jsonparser.GetString(line, "type")
	if err != nil {
		return lineCorrupted, nil, 0, ""
	}
	if envType == "ris_error" {
		msg, _ := jsonparser.GetString(line, "data", "message")
		f.log.Debug().Str("message", msg).Msg("ris-live: ris_error envelope")
		return lineSkip, nil, 0, ""
	}
	if envType != "ris_message" {
		return lineCorrupted, nil, 0, ""
	}

	data, dataType, _, err := jsonparser.Get(line, "data")
	if err != nil || dataType != jsonparser.Object {
		return lineCorrupted, nil, 0, ""
	}

	var (
		tsFloat  float64
		peerStr  string
		asnStr   string
		host     string
		msgType  string
		rawHex   []byte
		stateStr string
		haveTS   bool
	)
	err = jsonparser.ObjectEach(data, func(key, val []byte, vt jsonparser.ValueType, off int) error {
		switch string(key) {
		case "timestamp":
			v, perr := jsonparser.ParseFloat(val)
			if perr != nil {
				return perr
			}
			tsFloat = v
			haveTS = true
		case "peer":
			peerStr = string(val)
		case "peer_asn":
			asnStr = string(val)
		case "host":
			host = string(val)
		case "type":
			msgType = string(val)
		case "raw":
			rawHex = append([]byte(nil), val...)
		case "state":
			stateStr = string(val)
		}
		return nil
	})
	if err != nil || !haveTS {
		return lineCorrupted, nil, 0, ""
	}
	timeSec := uint32(tsFloat)

	peerIP, err := bgpaddr.ParseAddress(peerStr)
	if err != nil {
		return lineCorrupted, nil, 0, ""
	}
	asn, err := strconv.ParseUint(asnStr, 10, 32)
	if err != nil {
		return lineCorrupted, nil, 0, ""
	}

	if !f.admit(timeSec) {
		return lineFiltered, nil, 0, ""
	}

	switch msgType {
	case "R":
		elem := bgprecord.Elem{
			Type:     bgprecord.ElemPeerState,
			PeerIP:   peerIP,
			PeerASN:  uint32(asn),
			NewState: decodeRISState(stateStr),
		}
		gen := &elemgen.Generator{}
		gen.ResetSingle(elem)
		return lineOK, gen, timeSec, host

	case "U":
		if len(rawHex)%2 != 0 || len(rawHex) > 8192 || len(rawHex) == 0 {
			return lineCorrupted, nil, 0, ""
		}
		raw := make([]byte, hex.DecodedLen(len(rawHex)))
		if _, err := hex.Decode(raw, rawHex); err != nil {
			return lineCorrupted, nil, 0, ""
		}
		bgpType, body, err := bgpwire.ParseBGPMessageHeaderNoMarker(raw)
		if err != nil {
			return lineCorrupted, nil, 0, ""
		}
		if bgpType != bgpwire.BGPMsgUpdate {
			return lineSkip, nil, 0, ""
		}
		u, err := bgpwire.ParseUpdate(body, bgpwire.ASN4Byte)
		if err != nil {
			return lineCorrupted, nil, 0, ""
		}
		gen := &elemgen.Generator{}
		gen.ResetUpdate(u, peerIP, uint32(asn))
		return lineOK, gen, timeSec, host

	case "O", "N", "K":
		// well-formed, but no elem-worthy content
		return lineSkip, nil, 0, ""

	default:
		return lineUnsupported, nil, timeSec, host
	}
}

func decodeRISState(s string) bgprecord.PeerState {
	switch s {
	case "down":
		return bgprecord.StateIdle
	case "connected":
		return bgprecord.StateConnect
	case "up":
		return bgprecord.StateEstablished
	default:
		return bgprecord.StateUnknown
	}
}

func (f *Format) admit(timeSec uint32) bool {
	f.successfulReadCnt++
	if f.filter != nil && !f.filter(timeSec) {
		return false
	}
	f.validReadCnt++
	return true
}
