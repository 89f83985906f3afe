// Package probe implements the conflict-check/announce/goodbye state
// machine (spec §4.8): three ANY-type probes spaced 250 ms apart, a
// single-shot announcement once the name is clear, and a goodbye (TTL=0)
// on unannounce.
package probe

import (
	"strings"
	"time"

	"github.com/mdnscore/beacon/internal/cache"
	"github.com/mdnscore/beacon/internal/iface"
	"github.com/mdnscore/beacon/internal/message"
)

// ProbeInterval is the spacing between probes (spec §4.8).
const ProbeInterval = 250 * time.Millisecond

// ProbeRounds is the number of ANY questions sent before an announcement is
// considered clear.
const ProbeRounds = 3

// Machine drives announce/unannounce for one engine. It does not own a
// socket directly; Send and the inbound channel are supplied by the engine
// so probing can share the same I/O paths as everything else.
type Machine struct {
	Cache     *cache.Cache
	Send      func(pkt *message.Packet) error
	Inbound   <-chan iface.Inbound
	Integrate func(pkt *message.Packet)
	Now       func() time.Time
	NextID    func() uint16
}

// Announce runs the probe/announce sequence for spec's fqdn (spec §4.8). It
// returns false without probing if the service is already announced or
// already known from the network. Any inbound packet observed while probing
// is still handed to Integrate so nothing is silently dropped; Announce only
// treats it specially for the purpose of detecting a name collision.
func (m *Machine) Announce(fqdn string, spec message.AnnouncementSpec) (bool, error) {
	if _, ok := m.Cache.GetAnnouncement(fqdn); ok {
		return false, nil
	}
	if _, ok := m.Cache.GetService(fqdn); ok {
		return false, nil
	}

	question := message.NewQuestionPacket(m.nextID(), fqdn, message.KindANY, false)
	for round := 0; round < ProbeRounds; round++ {
		if err := m.Send(question); err != nil {
			return false, err
		}
		if collided := m.waitForCollision(fqdn, ProbeInterval); collided {
			return false, nil
		}
	}

	pkt := message.NewAnnouncement(spec)
	m.Cache.PutAnnouncement(fqdn, pkt)
	m.registerOwned(fqdn, spec)
	if err := m.Send(pkt); err != nil {
		return false, err
	}
	return true, nil
}

// registerOwned puts an owned Service into the cache alongside the retained
// announcement packet, so the integrator recognizes our own announcement
// (including one that loops back via multicast) as owned rather than
// building a phantom heard copy of it (spec §4.6, §4.8).
func (m *Machine) registerOwned(fqdn string, spec message.AnnouncementSpec) {
	instance, typ, domain, err := cache.SplitFQDN(fqdn)
	if err != nil {
		return
	}
	svc := cache.NewService(fqdn, instance, typ, domain, true)
	svc.TTL = cache.TTLSet{PTR: spec.TTLPTR, SRV: spec.TTLSRV, TXT: spec.TTLTXT, A: spec.TTLA}
	svc.SetHost(spec.Host, spec.Port)
	svc.SetText(spec.Text)
	for _, addr := range spec.Addresses {
		svc.AddAddress(addr, "")
	}
	m.Cache.PutService(svc)
}

// Unannounce builds the goodbye packet for fqdn, removes it from the
// announced set, and reports whether it had been present (spec §4.8).
func (m *Machine) Unannounce(fqdn string) (*message.Packet, bool) {
	pkt, ok := m.Cache.GetAnnouncement(fqdn)
	if !ok {
		return nil, false
	}
	bye := pkt.Goodbye()
	m.Cache.RemoveAnnouncement(fqdn)
	m.Cache.RemoveService(fqdn)
	return bye, true
}

// waitForCollision drains the inbound channel for window, integrating every
// packet it sees and reporting true the moment one carries an answer whose
// name matches fqdn.
func (m *Machine) waitForCollision(fqdn string, window time.Duration) bool {
	deadline := m.Now().Add(window)
	for {
		remaining := deadline.Sub(m.Now())
		if remaining <= 0 {
			return false
		}
		select {
		case in := <-m.Inbound:
			pkt, err := message.Decode(in.Data, in.NIC)
			if err != nil {
				continue
			}
			if m.Integrate != nil {
				m.Integrate(pkt)
			}
			if responseMatches(pkt, fqdn) {
				return true
			}
		case <-time.After(remaining):
			return false
		}
	}
}

func (m *Machine) nextID() uint16 {
	if m.NextID != nil {
		return m.NextID()
	}
	return 0
}

// responseMatches reports whether pkt carries an answer whose name matches
// fqdn case-insensitively (spec §4.8: "response whose answer name matches").
func responseMatches(pkt *message.Packet, fqdn string) bool {
	for _, r := range pkt.Answers {
		if strings.EqualFold(r.Name, fqdn) {
			return true
		}
	}
	return false
}
