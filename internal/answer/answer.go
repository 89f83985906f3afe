// Package answer matches incoming questions against announced services and
// assembles answers plus DNS-SD additionals (spec §4.7).
package answer

import (
	"strings"

	"github.com/mdnscore/beacon/internal/cache"
	"github.com/mdnscore/beacon/internal/message"
)

// ServicesMetaQuery is the RFC 6763 §9 service-type enumeration name.
const ServicesMetaQuery = "_services._dns-sd._udp.local"

// Generator answers questions against whatever the cache currently has
// announced.
type Generator struct {
	cache *cache.Cache
}

// New returns a Generator backed by c.
func New(c *cache.Cache) *Generator {
	return &Generator{cache: c}
}

// Answer builds the response packet for q, or returns nil if nothing
// announced matches any question in it.
func (g *Generator) Answer(q *message.Packet) *message.Packet {
	var answers, additionals []message.Record
	seen := make(map[string]bool)
	add := func(dst *[]message.Record, r message.Record) {
		key := recordKey(r)
		if seen[key] {
			return
		}
		seen[key] = true
		*dst = append(*dst, r)
	}

	wantsServiceEnumeration := false
	typeMaxTTL := make(map[string]uint32)

	for _, fqdn := range g.cache.Announced() {
		pkt, ok := g.cache.GetAnnouncement(fqdn)
		if !ok {
			continue
		}
		ptr, srv, txt := splitAnswers(pkt)
		if ptr != nil && ptr.TTL > typeMaxTTL[ptr.Name] {
			typeMaxTTL[ptr.Name] = ptr.TTL
		}
		addrs := addressAnswers(pkt)

		for _, question := range q.Questions {
			if sameName(question.Name, ServicesMetaQuery) &&
				(question.Type == message.KindPTR || question.Type == message.KindANY) {
				wantsServiceEnumeration = true
			}

			for _, rec := range []*message.Record{ptr, srv, txt} {
				if rec == nil || !questionMatches(question, *rec) {
					continue
				}
				add(&answers, *rec)

				switch rec.Type {
				case message.KindPTR:
					if question.Type == message.KindANY {
						continue
					}
					if srv != nil {
						add(&additionals, *srv)
					}
					if txt != nil {
						add(&additionals, *txt)
					}
					for _, a := range addrs {
						add(&additionals, a)
					}
				case message.KindSRV:
					if question.Type == message.KindANY {
						continue
					}
					for _, a := range addrs {
						add(&additionals, a)
					}
					if txt != nil {
						add(&additionals, *txt)
					}
				}
			}
		}
	}

	if wantsServiceEnumeration {
		for typ, ttl := range typeMaxTTL {
			add(&answers, message.NewPTR(ServicesMetaQuery, typ, ttl))
		}
	}

	if len(answers) == 0 {
		return nil
	}
	return message.ResponseTo(q, answers, additionals)
}

func splitAnswers(pkt *message.Packet) (ptr, srv, txt *message.Record) {
	for i := range pkt.Answers {
		switch pkt.Answers[i].Type {
		case message.KindPTR:
			ptr = &pkt.Answers[i]
		case message.KindSRV:
			srv = &pkt.Answers[i]
		case message.KindTXT:
			txt = &pkt.Answers[i]
		}
	}
	return ptr, srv, txt
}

func addressAnswers(pkt *message.Packet) []message.Record {
	var out []message.Record
	for _, r := range pkt.Additionals {
		if r.HasAddress() {
			out = append(out, r)
		}
	}
	return out
}

// questionMatches implements spec §4.7: name match and (type match or
// question type ANY).
func questionMatches(q, candidate message.Record) bool {
	if !sameName(q.Name, candidate.Name) {
		return false
	}
	return q.Type == message.KindANY || q.Type == candidate.Type
}

func sameName(a, b string) bool {
	return strings.EqualFold(a, b)
}

func recordKey(r message.Record) string {
	var b strings.Builder
	b.WriteString(r.Name)
	b.WriteByte('|')
	b.WriteString(r.Type.String())
	b.WriteByte('|')
	switch r.Type {
	case message.KindA:
		b.WriteString(r.A.String())
	case message.KindAAAA:
		b.WriteString(r.AAAA.String())
	case message.KindPTR:
		b.WriteString(r.PTR)
	case message.KindSRV:
		b.WriteString(r.SRV.Target)
	case message.KindTXT:
		for _, e := range r.TXT {
			b.WriteString(e.Key)
			b.WriteByte('=')
			b.WriteString(e.Value)
			b.WriteByte(';')
		}
	}
	return b.String()
}
