package beacon

import "github.com/mdnscore/beacon/internal/engine"

// Event and Listener are re-exported from internal/engine so callers never
// need to import an internal package to implement a sink (spec §6).
type (
	Event    = engine.Event
	Kind     = engine.Kind
	Listener = engine.Listener
)

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc = engine.ListenerFunc

// Event kinds (spec §6).
const (
	PacketSent         = engine.PacketSent
	PacketReceived     = engine.PacketReceived
	PacketError        = engine.PacketError
	TopologyChange     = engine.TopologyChange
	TypeNamed          = engine.TypeNamed
	TypeNameExpired    = engine.TypeNameExpired
	ServiceNamed       = engine.ServiceNamed
	ServiceNameExpired = engine.ServiceNameExpired
	ServiceAnnounced   = engine.ServiceAnnounced
	ServiceModified    = engine.ServiceModified
	ServiceExpired     = engine.ServiceExpired
)
