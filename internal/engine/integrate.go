package engine

import (
	"strings"

	"github.com/mdnscore/beacon/internal/cache"
	mdnserrors "github.com/mdnscore/beacon/internal/errors"
	"github.com/mdnscore/beacon/internal/iface"
	"github.com/mdnscore/beacon/internal/message"
)

// handleInbound decodes a raw datagram and hands it to processPacket,
// reporting a decode failure as packetError rather than propagating it
// (spec §7 "Parse" error kind).
func (e *Engine) handleInbound(in iface.Inbound) {
	pkt, err := message.Decode(in.Data, in.NIC)
	if err != nil {
		e.notify(Event{Kind: PacketError, NIC: in.NIC, Message: err.Error()})
		return
	}
	e.processPacket(pkt)
}

// integrationPass accumulates which services were touched for the first
// time versus merely mutated while processing one packet, so the engine can
// emit serviceAnnounced/serviceModified with "modified ← modified \ new"
// after all six passes complete (spec §4.6).
type integrationPass struct {
	e   *Engine
	nic string

	new      map[string]bool
	modified map[string]bool
}

// processPacket runs notify, then answer generation (§4.7), then the fixed
// six-pass integration order (§4.6).
func (e *Engine) processPacket(pkt *message.Packet) {
	e.notify(Event{Kind: PacketReceived, Packet: pkt, NIC: pkt.NIC})

	if resp := e.answers.Answer(pkt); resp != nil {
		e.Enqueue(resp, pkt.NIC)
	}

	ip := &integrationPass{e: e, nic: pkt.NIC, new: map[string]bool{}, modified: map[string]bool{}}

	for _, r := range onlyType(pkt.Answers, message.KindPTR) {
		ip.integratePTR(r)
	}
	for _, r := range onlyType(pkt.Additionals, message.KindPTR) {
		ip.integratePTR(r)
	}
	for _, r := range onlyType(pkt.Answers, message.KindSRV) {
		ip.integrateSRV(r)
	}
	for _, r := range onlyType(pkt.Additionals, message.KindSRV) {
		ip.integrateSRV(r)
	}
	for _, r := range excludingTypes(pkt.Answers, message.KindPTR, message.KindSRV) {
		ip.integrateOther(r)
	}
	for _, r := range excludingTypes(pkt.Additionals, message.KindPTR, message.KindSRV) {
		ip.integrateOther(r)
	}

	for fqdn := range ip.new {
		if svc, ok := e.cache.GetService(fqdn); ok {
			e.notify(Event{Kind: ServiceAnnounced, FQDN: fqdn, Service: svc})
		}
		delete(ip.modified, fqdn)
	}
	for fqdn := range ip.modified {
		if svc, ok := e.cache.GetService(fqdn); ok {
			e.notify(Event{Kind: ServiceModified, FQDN: fqdn, Service: svc})
		}
	}
}

func onlyType(recs []message.Record, kind message.Kind) []message.Record {
	var out []message.Record
	for _, r := range recs {
		if r.Type == kind {
			out = append(out, r)
		}
	}
	return out
}

func excludingTypes(recs []message.Record, kinds ...message.Kind) []message.Record {
	var out []message.Record
	for _, r := range recs {
		excluded := false
		for _, k := range kinds {
			if r.Type == k {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, r)
		}
	}
	return out
}

// integratePTR implements spec §4.6's PTR rule: the service-type
// enumeration name names a type directly; any other PTR names a type whose
// rdata is the instance fqdn.
func (ip *integrationPass) integratePTR(r message.Record) {
	if strings.EqualFold(r.Name, "_services._dns-sd._udp.local") {
		ip.e.integrateType(r.PTR, r.TTL)
		return
	}

	typ := r.Name
	fqdn := r.PTR
	ip.e.integrateType(typ, r.TTL)

	if !strings.EqualFold(fqdn, typ) && !strings.HasSuffix(strings.ToLower(fqdn), "."+strings.ToLower(typ)) {
		ip.e.notify(Event{Kind: PacketError, Message: (&mdnserrors.SemanticError{
			Operation: "integrate PTR", Message: "rdata " + fqdn + " does not end with its type " + typ,
		}).Error()})
		return
	}

	instance := strings.TrimSuffix(fqdn, "."+typ)
	expiring := r.TTL == 0
	if !expiring {
		if ip.e.cache.AddHeardName(fqdn) {
			ip.e.notify(Event{Kind: ServiceNamed, Type: typ, Name: instance, FQDN: fqdn})
		}
	}
	ip.e.wheel.Schedule(nameKey(fqdn), r.TTL, func() {
		ip.e.cache.RemoveHeardName(fqdn)
		ip.e.notify(Event{Kind: ServiceNameExpired, Type: typ, Name: instance, FQDN: fqdn})
	})
}

// integrateType adds/refreshes a heard service type (spec §4.6: shared rule
// invoked both for the meta-query PTR and for an ordinary type PTR).
func (e *Engine) integrateType(typ string, ttl uint32) {
	if ttl != 0 {
		if e.cache.AddHeardType(typ) {
			e.notify(Event{Kind: TypeNamed, Type: typ})
		}
	}
	e.wheel.Schedule(typeKey(typ), ttl, func() {
		e.cache.RemoveHeardType(typ)
		e.notify(Event{Kind: TypeNameExpired, Type: typ})
	})
}

// integrateSRV implements spec §4.6's SRV rule: create a heard service on
// first sight, refresh an owned one, or bind host/port on a heard one.
func (ip *integrationPass) integrateSRV(r message.Record) {
	fqdn := r.Name
	expiring := r.TTL == 0

	svc, known := ip.e.cache.GetService(fqdn)
	if !known {
		if _, isOwned := ip.e.cache.GetAnnouncement(fqdn); isOwned {
			// Our own announcement looped back (multicast loopback, or a
			// race before the owned service was registered): treat it as
			// owned rather than building a phantom heard copy of it.
			ip.e.wheel.Schedule(refreshKey(fqdn), refreshDelaySeconds(r.TTL), func() {
				ip.e.reannounceOne(fqdn)
			})
			return
		}
		if expiring {
			return // spec invariant 8: a TTL=0 PTR/SRV for an unknown name creates nothing
		}
		instance, typ, domain, err := cache.SplitFQDN(fqdn)
		if err != nil {
			ip.e.notify(Event{Kind: PacketError, Message: err.Error()})
			return
		}
		svc = cache.NewService(fqdn, instance, typ, domain, false)
		ip.e.cache.PutService(svc)
		ip.new[fqdn] = true
	}

	if svc.Owner {
		ip.e.wheel.Schedule(refreshKey(fqdn), refreshDelaySeconds(r.TTL), func() {
			ip.e.reannounceOne(fqdn)
		})
		return
	}

	if svc.SetHost(r.SRV.Target, r.SRV.Port) && !ip.new[fqdn] {
		ip.modified[fqdn] = true
	}
	ip.e.wheel.Schedule(expireKey(fqdn), r.TTL, func() {
		ip.e.cache.RemoveService(fqdn)
		ip.e.notify(Event{Kind: ServiceExpired, FQDN: fqdn, Service: svc})
	})
}

// integrateOther dispatches TXT and address records; NSEC/CNAME/ANY are
// decoded but ignored at the integrator (spec §6).
func (ip *integrationPass) integrateOther(r message.Record) {
	switch r.Type {
	case message.KindTXT:
		ip.integrateTXT(r)
	case message.KindA, message.KindAAAA:
		ip.integrateAddress(r)
	}
}

// integrateTXT implements spec §4.6's TXT rule: only applies to a known,
// unowned service; a TTL expiry wipes the text back out.
func (ip *integrationPass) integrateTXT(r message.Record) {
	svc, ok := ip.e.cache.GetService(r.Name)
	if !ok || svc.Owner {
		return
	}
	if svc.SetText(r.TXT) && !ip.new[r.Name] {
		ip.modified[r.Name] = true
	}
	ip.e.wheel.Schedule(wipeKey(r.Name), r.TTL, func() {
		if svc.SetText(nil) {
			ip.e.notify(Event{Kind: ServiceModified, FQDN: svc.FQDN, Service: svc})
		}
	})
}

// integrateAddress implements spec §4.6's A/AAAA rule: bind the address to
// every service whose bound host matches the record's name.
func (ip *integrationPass) integrateAddress(r message.Record) {
	addr := r.AddressOf()
	if addr == nil {
		return
	}
	for _, svc := range ip.e.cache.HeardServices() {
		host, _, hasHost := svc.Host()
		if !hasHost || !strings.EqualFold(host, r.Name) {
			continue
		}
		if svc.AddAddress(addr, ip.nic) && !ip.new[svc.FQDN] {
			ip.modified[svc.FQDN] = true
		}
		fqdn := svc.FQDN
		s := svc
		ip.e.wheel.Schedule(addrKey(fqdn, addr.String()), r.TTL, func() {
			if s.RemoveAddress(addr) {
				ip.e.notify(Event{Kind: ServiceModified, FQDN: fqdn, Service: s})
			}
		})
	}
}

// reannounceOwned resends every retained announcement, used after a
// topology change (spec §4.5). A refresh action resends a single service
// through reannounceOne.
func (e *Engine) reannounceOwned() {
	for _, fqdn := range e.cache.Announced() {
		e.reannounceOne(fqdn)
	}
}

func (e *Engine) reannounceOne(fqdn string) {
	pkt, ok := e.cache.GetAnnouncement(fqdn)
	if !ok {
		return
	}
	e.Enqueue(pkt, "")
	for _, r := range pkt.Answers {
		if r.Type == message.KindSRV {
			e.wheel.Schedule(refreshKey(fqdn), refreshDelaySeconds(r.TTL), func() {
				e.reannounceOne(fqdn)
			})
		}
	}
}

// refreshDelaySeconds is spec §4.6's owned-service refresh schedule:
// min(ttl·9/10, ttl−5).
func refreshDelaySeconds(ttl uint32) uint32 {
	a := ttl * 9 / 10
	var b uint32
	if ttl > 5 {
		b = ttl - 5
	}
	if a < b {
		return a
	}
	return b
}

func typeKey(typ string) string         { return "type:" + typ }
func nameKey(fqdn string) string        { return "name:" + fqdn }
func expireKey(fqdn string) string      { return "expire:" + fqdn }
func refreshKey(fqdn string) string     { return "refresh:" + fqdn }
func wipeKey(fqdn string) string        { return "wipe:" + fqdn }
func addrKey(fqdn, addr string) string  { return "addr:" + fqdn + "|" + addr }
