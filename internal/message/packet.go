package message

import (
	"encoding/binary"
	"encoding/json"
	"net"
	"time"

	mdnserrors "github.com/mdnscore/beacon/internal/errors"
)

// Packet is the immutable container spec §3 describes: header fields plus
// the four resource-record sections, tagged with the interface it arrived
// on or should be restricted to.
type Packet struct {
	ID          uint16
	Flags       uint16
	Questions   []Record
	Answers     []Record
	Authorities []Record
	Additionals []Record
	NIC         string // "" means unset/any interface
	Timestamp   int64  // monotonic-ish milliseconds, set at construction
}

func (p *Packet) IsResponse() bool      { return p.Flags&FlagResponse != 0 }
func (p *Packet) IsAuthoritative() bool { return p.Flags&FlagAuthoritative != 0 }

// NewQuestionPacket builds a query packet for qtype on name. Per spec §3, if
// qtype is A or AAAA the other address family is auto-added so both can
// come back in a single reply.
func NewQuestionPacket(id uint16, name string, qtype Kind, unicastReply bool) *Packet {
	p := &Packet{ID: id, Timestamp: time.Now().UnixMilli()}
	p.Questions = append(p.Questions, NewQuestion(name, qtype, unicastReply))
	if qtype == KindA {
		p.Questions = append(p.Questions, NewQuestion(name, KindAAAA, unicastReply))
	} else if qtype == KindAAAA {
		p.Questions = append(p.Questions, NewQuestion(name, KindA, unicastReply))
	}
	return p
}

// ResponseTo builds a response packet that inherits q's ID and NIC and is
// marked authoritative+response (spec §3 *response-to*).
func ResponseTo(q *Packet, answers, additionals []Record) *Packet {
	return &Packet{
		ID:          q.ID,
		Flags:       FlagResponse | FlagAuthoritative,
		Answers:     answers,
		Additionals: additionals,
		NIC:         q.NIC,
		Timestamp:   time.Now().UnixMilli(),
	}
}

// AnnouncementSpec carries the primitive fields NewAnnouncement needs to
// build a full service tuple, decoupled from the cache package's Service
// type to avoid an import cycle (cache imports message, not vice versa).
type AnnouncementSpec struct {
	FQDN      string
	Type      string
	Host      string
	Port      uint16
	Text      TXTData
	Addresses []net.IP

	TTLPTR uint32
	TTLSRV uint32
	TTLTXT uint32
	TTLA   uint32
}

// NewAnnouncement emits the full service tuple (spec §3 *announcement*):
// one PTR(type->fqdn), one SRV(fqdn->host:port), one TXT(fqdn), plus one
// address record per service address as additionals.
func NewAnnouncement(spec AnnouncementSpec) *Packet {
	p := &Packet{
		Flags:     FlagResponse | FlagAuthoritative,
		Timestamp: time.Now().UnixMilli(),
	}
	p.Answers = append(p.Answers,
		NewPTR(spec.Type, spec.FQDN, spec.TTLPTR),
		NewSRV(spec.FQDN, 0, 0, spec.Port, spec.Host, spec.TTLSRV),
		NewTXT(spec.FQDN, spec.Text, spec.TTLTXT),
	)
	for _, addr := range spec.Addresses {
		if ip4 := addr.To4(); ip4 != nil {
			p.Additionals = append(p.Additionals, NewA(spec.Host, ip4, spec.TTLA))
		} else {
			p.Additionals = append(p.Additionals, NewAAAA(spec.Host, addr, spec.TTLA))
		}
	}
	return p
}

// Goodbye returns a copy of p with every answer/additional record's TTL set
// to zero, the unannounce signal (spec §4.8).
func (p *Packet) Goodbye() *Packet {
	g := &Packet{ID: p.ID, Flags: p.Flags, NIC: p.NIC, Timestamp: time.Now().UnixMilli()}
	for _, r := range p.Answers {
		g.Answers = append(g.Answers, r.Goodbye())
	}
	for _, r := range p.Additionals {
		g.Additionals = append(g.Additionals, r.Goodbye())
	}
	return g
}

// Decode reads counts then sections (spec §3 *decoded*).
func Decode(data []byte, nic string) (*Packet, error) {
	if len(data) < 12 {
		return nil, &mdnserrors.WireError{Operation: "decode packet", Offset: 0, Message: "message shorter than header"}
	}
	p := &Packet{
		ID:        binary.BigEndian.Uint16(data[0:]),
		Flags:     binary.BigEndian.Uint16(data[2:]),
		NIC:       nic,
		Timestamp: time.Now().UnixMilli(),
	}
	qd := int(binary.BigEndian.Uint16(data[4:]))
	an := int(binary.BigEndian.Uint16(data[6:]))
	ns := int(binary.BigEndian.Uint16(data[8:]))
	ar := int(binary.BigEndian.Uint16(data[10:]))

	pos := 12
	var err error

	p.Questions, pos, err = decodeQuestions(data, pos, qd)
	if err != nil {
		return nil, err
	}
	p.Answers, pos, err = decodeRecords(data, pos, an)
	if err != nil {
		return nil, err
	}
	p.Authorities, pos, err = decodeRecords(data, pos, ns)
	if err != nil {
		return nil, err
	}
	p.Additionals, _, err = decodeRecords(data, pos, ar)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func decodeQuestions(data []byte, pos, count int) ([]Record, int, error) {
	out := make([]Record, 0, count)
	for i := 0; i < count; i++ {
		r, next, err := decodeQuestion(data, pos)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
		pos = next
	}
	return out, pos, nil
}

func decodeRecords(data []byte, pos, count int) ([]Record, int, error) {
	out := make([]Record, 0, count)
	for i := 0; i < count; i++ {
		r, next, err := decodeResourceRecord(data, pos)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
		pos = next
	}
	return out, pos, nil
}

// Encode writes the header then the four sections in order.
func (p *Packet) Encode() ([]byte, error) {
	buf := make([]byte, 12, 512)
	binary.BigEndian.PutUint16(buf[0:], p.ID)
	binary.BigEndian.PutUint16(buf[2:], p.Flags)
	binary.BigEndian.PutUint16(buf[4:], uint16(len(p.Questions)))
	binary.BigEndian.PutUint16(buf[6:], uint16(len(p.Answers)))
	binary.BigEndian.PutUint16(buf[8:], uint16(len(p.Authorities)))
	binary.BigEndian.PutUint16(buf[10:], uint16(len(p.Additionals)))

	var err error
	for _, r := range p.Questions {
		buf, err = encodeQuestion(buf, r)
		if err != nil {
			return nil, err
		}
	}
	for _, sec := range [][]Record{p.Answers, p.Authorities, p.Additionals} {
		for _, r := range sec {
			buf, err = encodeResourceRecord(buf, r)
			if err != nil {
				return nil, err
			}
		}
	}
	return buf, nil
}

// jsonRecord is the debug-text shape of a Record; fields not meaningful for
// the record's Type are left zero and omitted.
type jsonRecord struct {
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	Class   uint16         `json:"class"`
	TTL     uint32         `json:"ttl,omitempty"`
	Address string         `json:"address,omitempty"`
	Target  string         `json:"target,omitempty"`
	SRV     *jsonSRV       `json:"srv,omitempty"`
	Text    []jsonTXTEntry `json:"text,omitempty"`
	RawLen  int            `json:"rawLen,omitempty"`
}

type jsonSRV struct {
	Priority uint16 `json:"priority"`
	Weight   uint16 `json:"weight"`
	Port     uint16 `json:"port"`
	Target   string `json:"target"`
}

type jsonTXTEntry struct {
	Key      string `json:"key"`
	Value    string `json:"value,omitempty"`
	HasValue bool   `json:"hasValue,omitempty"`
}

type jsonPacket struct {
	ID            uint16       `json:"id"`
	Response      bool         `json:"response"`
	Authoritative bool         `json:"authoritative"`
	NIC           string       `json:"nic,omitempty"`
	Questions     []jsonRecord `json:"questions,omitempty"`
	Answers       []jsonRecord `json:"answers,omitempty"`
	Authorities   []jsonRecord `json:"authorities,omitempty"`
	Additionals   []jsonRecord `json:"additionals,omitempty"`
}

func toJSONRecord(r Record) jsonRecord {
	jr := jsonRecord{Name: r.Name, Type: r.Type.String(), Class: r.Class, TTL: r.TTL}
	switch r.Type {
	case KindA:
		if r.A != nil {
			jr.Address = r.A.String()
		}
	case KindAAAA:
		if r.AAAA != nil {
			jr.Address = r.AAAA.String()
		}
	case KindPTR:
		jr.Target = r.PTR
	case KindSRV:
		jr.SRV = &jsonSRV{Priority: r.SRV.Priority, Weight: r.SRV.Weight, Port: r.SRV.Port, Target: r.SRV.Target}
	case KindTXT:
		for _, e := range r.TXT {
			jr.Text = append(jr.Text, jsonTXTEntry{Key: e.Key, Value: e.Value, HasValue: e.HasValue})
		}
	default:
		jr.RawLen = len(r.Raw)
	}
	return jr
}

func fromJSONRecord(jr jsonRecord) Record {
	r := Record{Name: jr.Name, Class: jr.Class, TTL: jr.TTL}
	switch jr.Type {
	case "A":
		r.Type = KindA
		r.A = net.ParseIP(jr.Address)
	case "AAAA":
		r.Type = KindAAAA
		r.AAAA = net.ParseIP(jr.Address)
	case "PTR":
		r.Type = KindPTR
		r.PTR = jr.Target
	case "SRV":
		r.Type = KindSRV
		if jr.SRV != nil {
			r.SRV = SRVData{Priority: jr.SRV.Priority, Weight: jr.SRV.Weight, Port: jr.SRV.Port, Target: jr.SRV.Target}
		}
	case "TXT":
		r.Type = KindTXT
		for _, e := range jr.Text {
			r.TXT = append(r.TXT, TXTEntry{Key: e.Key, Value: e.Value, HasValue: e.HasValue})
		}
	case "CNAME":
		r.Type = KindCNAME
	case "NSEC":
		r.Type = KindNSEC
	default:
		r.Type = KindANY
	}
	return r
}

func toJSONRecords(rs []Record) []jsonRecord {
	out := make([]jsonRecord, 0, len(rs))
	for _, r := range rs {
		out = append(out, toJSONRecord(r))
	}
	return out
}

func fromJSONRecords(jrs []jsonRecord) []Record {
	out := make([]Record, 0, len(jrs))
	for _, jr := range jrs {
		out = append(out, fromJSONRecord(jr))
	}
	return out
}

// String renders a debug-only JSON-shaped form of the packet (spec §3's
// "decoded, displayable form"); it is never used for wire transmission.
func (p *Packet) String() string {
	jp := jsonPacket{
		ID:            p.ID,
		Response:      p.IsResponse(),
		Authoritative: p.IsAuthoritative(),
		NIC:           p.NIC,
		Questions:     toJSONRecords(p.Questions),
		Answers:       toJSONRecords(p.Answers),
		Authorities:   toJSONRecords(p.Authorities),
		Additionals:   toJSONRecords(p.Additionals),
	}
	out, err := json.Marshal(jp)
	if err != nil {
		return "<packet: marshal error: " + err.Error() + ">"
	}
	return string(out)
}

// ParsePacketText is the inverse of String, used by tests that want to
// express fixtures as literal JSON rather than raw bytes.
func ParsePacketText(text string) (*Packet, error) {
	var jp jsonPacket
	if err := json.Unmarshal([]byte(text), &jp); err != nil {
		return nil, &mdnserrors.WireError{Operation: "parse packet text", Message: "invalid debug packet JSON", Err: err}
	}
	p := &Packet{
		ID:          jp.ID,
		NIC:         jp.NIC,
		Questions:   fromJSONRecords(jp.Questions),
		Answers:     fromJSONRecords(jp.Answers),
		Authorities: fromJSONRecords(jp.Authorities),
		Additionals: fromJSONRecords(jp.Additionals),
		Timestamp:   time.Now().UnixMilli(),
	}
	if jp.Response {
		p.Flags |= FlagResponse
	}
	if jp.Authoritative {
		p.Flags |= FlagAuthoritative
	}
	return p, nil
}

// AppliedTo restricts p to the interface named nic, per spec §4.2's three
// inclusion rules: a record with no address payload is always included; an
// address record is included if its address falls within one of nic's
// configured subnets; an address record matching no subnet on any known nic
// is broadcast unfiltered, rather than silently dropped, since it cannot be
// scoped to anywhere more specific. The second return value is false if
// every section ends up empty (nothing to send on this interface).
func (p *Packet) AppliedTo(nic string, subnetsByNIC map[string][]*net.IPNet) (*Packet, bool) {
	subnets := subnetsByNIC[nic]

	matchesAnyNIC := func(addr net.IP) bool {
		for _, nets := range subnetsByNIC {
			for _, n := range nets {
				if n.Contains(addr) {
					return true
				}
			}
		}
		return false
	}

	keep := func(r Record) bool {
		if !r.HasAddress() {
			return true
		}
		addr := r.AddressOf()
		for _, n := range subnets {
			if n.Contains(addr) {
				return true
			}
		}
		// Not in this nic's own subnets: keep it only if no nic at all
		// claims this address, i.e. broadcast it everywhere rather than
		// drop it. If some other nic owns it, this nic is the wrong one.
		return !matchesAnyNIC(addr)
	}

	filterSection := func(rs []Record) []Record {
		var out []Record
		for _, r := range rs {
			if keep(r) {
				out = append(out, r)
			}
		}
		return out
	}

	out := &Packet{
		ID:          p.ID,
		Flags:       p.Flags,
		NIC:         nic,
		Timestamp:   p.Timestamp,
		Questions:   filterSection(p.Questions),
		Answers:     filterSection(p.Answers),
		Authorities: filterSection(p.Authorities),
		Additionals: filterSection(p.Additionals),
	}

	nonEmpty := len(out.Questions) > 0 || len(out.Answers) > 0 || len(out.Authorities) > 0 || len(out.Additionals) > 0
	return out, nonEmpty
}
