package engine

import (
	"github.com/mdnscore/beacon/internal/cache"
	"github.com/mdnscore/beacon/internal/message"
)

// Kind distinguishes the event variants the engine emits (spec §6 event
// interface). Only the fields relevant to Kind are populated.
type Kind int

const (
	PacketSent Kind = iota
	PacketReceived
	PacketError
	TopologyChange
	TypeNamed
	TypeNameExpired
	ServiceNamed
	ServiceNameExpired
	ServiceAnnounced
	ServiceModified
	ServiceExpired
)

func (k Kind) String() string {
	switch k {
	case PacketSent:
		return "packetSent"
	case PacketReceived:
		return "packetReceived"
	case PacketError:
		return "packetError"
	case TopologyChange:
		return "topologyChange"
	case TypeNamed:
		return "typeNamed"
	case TypeNameExpired:
		return "typeNameExpired"
	case ServiceNamed:
		return "serviceNamed"
	case ServiceNameExpired:
		return "serviceNameExpired"
	case ServiceAnnounced:
		return "serviceAnnounced"
	case ServiceModified:
		return "serviceModified"
	case ServiceExpired:
		return "serviceExpired"
	default:
		return "unknown"
	}
}

// Event is the single notification shape delivered to a Listener. Kind
// selects which of the remaining fields are meaningful, mirroring the
// tagged-variant style used for Record.
type Event struct {
	Kind Kind

	Packet *message.Packet
	NIC    string

	Type string // service type, for TypeNamed/TypeNameExpired/ServiceNamed/ServiceNameExpired
	Name string // instance name, for ServiceNamed/ServiceNameExpired
	FQDN string

	Service *cache.Service // for ServiceAnnounced/ServiceModified/ServiceExpired

	Message string // for PacketError
}

// Listener is the opaque event sink external code supplies (spec §6). A
// single Notify method keeps the engine from needing one callback per event
// kind; implementations switch on Event.Kind.
type Listener interface {
	Notify(Event)
}

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc func(Event)

// Notify implements Listener.
func (f ListenerFunc) Notify(e Event) { f(e) }

type noopListener struct{}

func (noopListener) Notify(Event) {}
