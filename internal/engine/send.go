package engine

import "github.com/mdnscore/beacon/internal/message"

// sendOne pops the oldest queued packet, if any, and transmits it (spec
// §4.6 step 1: "pop one pending outbound packet").
func (e *Engine) sendOne() {
	item, ok := e.queue.pop()
	if !ok {
		return
	}
	_ = e.transmit(item.pkt, item.nic)
}

// sendNow transmits pkt immediately to every ready interface, bypassing the
// queue. Used by the probe machine, which already runs on the engine
// goroutine and needs its probes/announcement/goodbye to go out without
// waiting for another loop iteration.
func (e *Engine) sendNow(pkt *message.Packet) error {
	return e.transmit(pkt, "")
}

// transmit fans pkt out to every ready interface matching nicFilter ("" =
// all), applying Packet.AppliedTo per interface before encoding (spec §4.2,
// §4.6 step 1). It returns the first send error encountered, if any.
func (e *Engine) transmit(pkt *message.Packet, nicFilter string) error {
	subnets := e.ifaces.SubnetsByNIC()
	var firstErr error

	for _, nic := range e.ifaces.ReadyNICs() {
		if nicFilter != "" && nic != nicFilter {
			continue
		}
		filtered, nonEmpty := pkt.AppliedTo(nic, subnets)
		if !nonEmpty {
			continue
		}
		data, err := filtered.Encode()
		if err != nil {
			e.notify(Event{Kind: PacketError, Packet: pkt, NIC: nic, Message: err.Error()})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := e.ifaces.Send(nic, data); err != nil {
			e.notify(Event{Kind: PacketError, Packet: pkt, NIC: nic, Message: err.Error()})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		e.notify(Event{Kind: PacketSent, Packet: filtered, NIC: nic})
	}
	return firstErr
}
