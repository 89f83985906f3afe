package message

import (
	"encoding/binary"
	"net"
	"strings"

	mdnserrors "github.com/mdnscore/beacon/internal/errors"
)

func putUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// encodeQuestion writes name|type|class with no TTL/rdlen (spec §4.1:
// "If rdata length is zero (question form), the TTL and rdlen are
// omitted").
func encodeQuestion(buf []byte, r Record) ([]byte, error) {
	buf, err := encodeName(buf, r.Name)
	if err != nil {
		return nil, err
	}
	buf = putUint16(buf, uint16(r.Type))
	buf = putUint16(buf, r.Class)
	return buf, nil
}

// encodeResourceRecord writes a full name|type|class|ttl|rdlen|rdata record.
// The writer reserves two bytes for rdlen, writes the rdata, then patches
// the length in place (spec §4.1).
func encodeResourceRecord(buf []byte, r Record) ([]byte, error) {
	buf, err := encodeName(buf, r.Name)
	if err != nil {
		return nil, err
	}
	buf = putUint16(buf, uint16(r.Type))
	buf = putUint16(buf, r.Class)
	buf = putUint32(buf, r.TTL)

	rdlenOffset := len(buf)
	buf = putUint16(buf, 0) // placeholder, patched below

	rdataStart := len(buf)
	buf, err = encodeRData(buf, r)
	if err != nil {
		return nil, err
	}
	rdlen := len(buf) - rdataStart
	binary.BigEndian.PutUint16(buf[rdlenOffset:rdlenOffset+2], uint16(rdlen))
	return buf, nil
}

func encodeRData(buf []byte, r Record) ([]byte, error) {
	switch r.Type {
	case KindA:
		ip4 := r.A.To4()
		if ip4 == nil {
			return nil, &mdnserrors.WireError{Operation: "encode A rdata", Message: "address is not IPv4"}
		}
		return append(buf, ip4...), nil
	case KindAAAA:
		ip16 := r.AAAA.To16()
		if ip16 == nil {
			return nil, &mdnserrors.WireError{Operation: "encode AAAA rdata", Message: "address is not valid"}
		}
		return append(buf, ip16...), nil
	case KindPTR:
		return encodeName(buf, r.PTR)
	case KindSRV:
		buf = putUint16(buf, r.SRV.Priority)
		buf = putUint16(buf, r.SRV.Weight)
		buf = putUint16(buf, r.SRV.Port)
		return encodeName(buf, r.SRV.Target)
	case KindTXT:
		return encodeTXT(buf, r.TXT), nil
	default:
		return append(buf, r.Raw...), nil
	}
}

// encodeTXT writes a sequence of length-prefixed strings, one per entry.
// An empty TXT set is written as a single zero byte (spec §4.1).
func encodeTXT(buf []byte, txt TXTData) []byte {
	if len(txt) == 0 {
		return append(buf, 0x00)
	}
	for _, e := range txt {
		var s string
		if e.HasValue {
			s = e.Key + "=" + e.Value
		} else {
			s = e.Key
		}
		if len(s) > 255 {
			s = s[:255]
		}
		buf = append(buf, byte(len(s)))
		buf = append(buf, s...)
	}
	return buf
}

func decodeTXT(data []byte) TXTData {
	var txt TXTData
	pos := 0
	for pos < len(data) {
		l := int(data[pos])
		pos++
		if pos+l > len(data) {
			break
		}
		s := string(data[pos : pos+l])
		pos += l
		if s == "" {
			continue // empty keys are skipped on decode (spec §4.1)
		}
		if idx := strings.IndexByte(s, '='); idx >= 0 {
			txt = append(txt, TXTEntry{Key: s[:idx], Value: s[idx+1:], HasValue: true})
		} else {
			txt = append(txt, TXTEntry{Key: s})
		}
	}
	return txt
}

// decodeQuestion reads a question-form record (no TTL/rdlen/rdata).
func decodeQuestion(msg []byte, offset int) (Record, int, error) {
	name, pos, err := decodeName(msg, offset)
	if err != nil {
		return Record{}, 0, err
	}
	if pos+4 > len(msg) {
		return Record{}, 0, &mdnserrors.WireError{Operation: "decode question", Offset: pos, Message: "truncated question"}
	}
	qtype := binary.BigEndian.Uint16(msg[pos:])
	qclass := binary.BigEndian.Uint16(msg[pos+2:])
	pos += 4
	return Record{Name: name, Type: Kind(qtype), Class: qclass}, pos, nil
}

// decodeResourceRecord reads a full name|type|class|ttl|rdlen|rdata record.
func decodeResourceRecord(msg []byte, offset int) (Record, int, error) {
	name, pos, err := decodeName(msg, offset)
	if err != nil {
		return Record{}, 0, err
	}
	if pos+10 > len(msg) {
		return Record{}, 0, &mdnserrors.WireError{Operation: "decode record", Offset: pos, Message: "truncated record header"}
	}
	rtype := binary.BigEndian.Uint16(msg[pos:])
	rclass := binary.BigEndian.Uint16(msg[pos+2:])
	ttl := binary.BigEndian.Uint32(msg[pos+4:])
	rdlen := int(binary.BigEndian.Uint16(msg[pos+8:]))
	pos += 10

	if pos+rdlen > len(msg) {
		return Record{}, 0, &mdnserrors.WireError{Operation: "decode record", Offset: pos, Message: "rdata exceeds message length"}
	}
	rdata := msg[pos : pos+rdlen]

	r := Record{Name: name, Type: Kind(rtype), Class: rclass, TTL: ttl}
	switch r.Type {
	case KindA:
		if len(rdata) != net.IPv4len {
			return Record{}, 0, &mdnserrors.WireError{Operation: "decode A rdata", Offset: pos, Message: "wrong length for A record"}
		}
		r.A = net.IP(append([]byte(nil), rdata...))
	case KindAAAA:
		if len(rdata) != net.IPv6len {
			return Record{}, 0, &mdnserrors.WireError{Operation: "decode AAAA rdata", Offset: pos, Message: "wrong length for AAAA record"}
		}
		r.AAAA = net.IP(append([]byte(nil), rdata...))
	case KindPTR:
		target, _, err := decodeName(msg, pos)
		if err != nil {
			return Record{}, 0, err
		}
		r.PTR = target
	case KindSRV:
		if len(rdata) < 6 {
			return Record{}, 0, &mdnserrors.WireError{Operation: "decode SRV rdata", Offset: pos, Message: "truncated SRV rdata"}
		}
		target, _, err := decodeName(msg, pos+6)
		if err != nil {
			return Record{}, 0, err
		}
		r.SRV = SRVData{
			Priority: binary.BigEndian.Uint16(rdata[0:]),
			Weight:   binary.BigEndian.Uint16(rdata[2:]),
			Port:     binary.BigEndian.Uint16(rdata[4:]),
			Target:   target,
		}
	case KindTXT:
		r.TXT = decodeTXT(rdata)
	default:
		r.Raw = append([]byte(nil), rdata...)
	}

	return r, pos + rdlen, nil
}
