package message

import (
	"net"

	mdnserrors "github.com/mdnscore/beacon/internal/errors"
)

// TXTEntry is one key or key=value pair of a TXT record, in the order it was
// inserted (spec §3: "TXT preserves insertion order").
type TXTEntry struct {
	Key      string
	Value    string
	HasValue bool
}

// TXTData is an ordered sequence of TXT entries. Order and duplicates are
// both preserved; equality is defined key-by-key, value-by-value, in order
// (spec §4.3 setText).
type TXTData []TXTEntry

// Equal reports whether two TXTData values have identical content in the
// same order.
func (t TXTData) Equal(o TXTData) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if t[i] != o[i] {
			return false
		}
	}
	return true
}

// SRVData is the rdata of an SRV record (RFC 2782).
type SRVData struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   string
}

// Record is a tagged variant over the record kinds spec §3 enumerates. Kind
// selects which payload field is meaningful; callers switch on Kind rather
// than performing runtime type assertions.
type Record struct {
	Name  string
	Type  Kind
	Class uint16
	TTL   uint32

	A    net.IP   // Type == KindA: 4-byte address
	AAAA net.IP   // Type == KindAAAA: 16-byte address
	PTR  string   // Type == KindPTR
	SRV  SRVData  // Type == KindSRV
	TXT  TXTData  // Type == KindTXT
	Raw  []byte   // Type == KindNSEC, KindCNAME, or anything unrecognized
}

// Validate enforces the invariants spec §3 lists for Record: non-empty name,
// SRV target non-empty, address width matching the variant.
func (r Record) Validate() error {
	if r.Name == "" {
		return &mdnserrors.SemanticError{Operation: "validate record", Message: "empty name"}
	}
	switch r.Type {
	case KindA:
		if ip4 := r.A.To4(); ip4 == nil {
			return &mdnserrors.SemanticError{Operation: "validate record", Message: "A record address is not IPv4"}
		}
	case KindAAAA:
		if r.AAAA.To4() != nil || r.AAAA.To16() == nil {
			return &mdnserrors.SemanticError{Operation: "validate record", Message: "AAAA record address is not IPv6"}
		}
	case KindSRV:
		if r.SRV.Target == "" {
			return &mdnserrors.SemanticError{Operation: "validate record", Message: "SRV target is empty"}
		}
	}
	return nil
}

// IsUnicastRequested reports the question-class unicast-reply flag
// (spec §3: "high bit of the read class is a unicast-reply flag"). The
// engine exposes but never acts on this bit (spec §4.1).
func (r Record) IsUnicastRequested() bool {
	return r.Class&UnicastRequest != 0
}

// NewQuestion builds a bare question record (no TTL, no rdata).
func NewQuestion(name string, qtype Kind, unicastReply bool) Record {
	class := uint16(ClassIN)
	if unicastReply {
		class |= UnicastRequest
	}
	return Record{Name: name, Type: qtype, Class: class}
}

// NewA builds an owned A answer record.
func NewA(name string, addr net.IP, ttl uint32) Record {
	return Record{Name: name, Type: KindA, Class: ResponseClass, TTL: ttl, A: addr.To4()}
}

// NewAAAA builds an owned AAAA answer record.
func NewAAAA(name string, addr net.IP, ttl uint32) Record {
	return Record{Name: name, Type: KindAAAA, Class: ResponseClass, TTL: ttl, AAAA: addr.To16()}
}

// NewPTR builds an owned PTR answer record.
func NewPTR(name, target string, ttl uint32) Record {
	return Record{Name: name, Type: KindPTR, Class: ResponseClass, TTL: ttl, PTR: target}
}

// NewSRV builds an owned SRV answer record.
func NewSRV(name string, priority, weight, port uint16, target string, ttl uint32) Record {
	return Record{
		Name: name, Type: KindSRV, Class: ResponseClass, TTL: ttl,
		SRV: SRVData{Priority: priority, Weight: weight, Port: port, Target: target},
	}
}

// NewTXT builds an owned TXT answer record.
func NewTXT(name string, text TXTData, ttl uint32) Record {
	return Record{Name: name, Type: KindTXT, Class: ResponseClass, TTL: ttl, TXT: text}
}

// AddressOf returns the record's address payload regardless of family, or
// nil if the record carries none.
func (r Record) AddressOf() net.IP {
	switch r.Type {
	case KindA:
		return r.A
	case KindAAAA:
		return r.AAAA
	default:
		return nil
	}
}

// HasAddress reports whether the record carries an address payload
// (used by Packet.AppliedTo per spec §4.2).
func (r Record) HasAddress() bool {
	return r.Type == KindA || r.Type == KindAAAA
}

// Goodbye returns a copy of r with TTL set to zero (spec: "a goodbye ...
// re-sent with TTL 0").
func (r Record) Goodbye() Record {
	r.TTL = 0
	return r
}
