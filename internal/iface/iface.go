// Package iface owns the per-interface multicast socket lifecycle: opening
// and closing the IPv4/IPv6 sockets mDNS needs on each usable NIC,
// reconciling address changes, and quarantining an interface whose sends
// start failing (spec §4.5).
package iface

import (
	"net"
	"sync"
	"time"

	mdnserrors "github.com/mdnscore/beacon/internal/errors"
)

// DefaultRecovery is how long a quarantined interface stays disabled
// (spec §4.5).
const DefaultRecovery = 10 * time.Second

// Inbound is one datagram received on a socket, tagged with the interface
// it arrived on.
type Inbound struct {
	Data []byte
	NIC  string
}

// Config selects which interfaces and address families the manager uses.
type Config struct {
	IPv4Enabled bool
	IPv6Enabled bool

	// Interfaces, if non-empty, restricts management to exactly these NIC
	// names (manually configured). Empty means auto-discover every
	// up, non-loopback, multicast-capable interface (spec §6).
	Interfaces []string

	Recovery time.Duration
}

// entry is the per-NIC bookkeeping (spec §3 "Interface entry").
type entry struct {
	nic           string
	ipv4Addresses []net.IP
	ipv6Addresses []net.IP
	subnets       []*net.IPNet

	sock4 *socketV4
	sock6 *socketV6

	manual        bool
	everSentOK    bool
	disabledUntil time.Time
	packetsSent   uint32
}

func (e *entry) isDisabled(now time.Time) bool {
	return !e.disabledUntil.IsZero() && now.Before(e.disabledUntil)
}

// Manager owns every entry and the channel reader goroutines feed inbound
// datagrams into. Only the engine goroutine calls its mutating methods;
// concurrent callers must go through the engine's intent queue instead.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	entries  map[string]*entry
	inbound  chan Inbound
	now      func() time.Time
	onLog    func(msg string, err error)
	recovery time.Duration
}

// New returns a manager with no interfaces yet opened; call Reconcile to
// populate it from the live interface set.
func New(cfg Config, onLog func(string, error)) *Manager {
	recovery := cfg.Recovery
	if recovery == 0 {
		recovery = DefaultRecovery
	}
	if onLog == nil {
		onLog = func(string, error) {}
	}
	return &Manager{
		cfg:      cfg,
		entries:  make(map[string]*entry),
		inbound:  make(chan Inbound, 64),
		now:      time.Now,
		onLog:    onLog,
		recovery: recovery,
	}
}

// Inbound is the channel every reader goroutine publishes received
// datagrams on; the engine loop selects on it.
func (m *Manager) Inbound() <-chan Inbound {
	return m.inbound
}

// NICs returns the names of every interface currently managed.
func (m *Manager) NICs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for nic := range m.entries {
		out = append(out, nic)
	}
	return out
}

// ReadyNICs returns every managed interface that is not currently
// quarantined.
func (m *Manager) ReadyNICs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	out := make([]string, 0, len(m.entries))
	for nic, e := range m.entries {
		if !e.isDisabled(now) {
			out = append(out, nic)
		}
	}
	return out
}

// IsDisabled reports whether nic is currently quarantined.
func (m *Manager) IsDisabled(nic string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[nic]
	if !ok {
		return false
	}
	return e.isDisabled(m.now())
}

// SubnetsByNIC returns each managed interface's configured subnets, for use
// with message.Packet.AppliedTo.
func (m *Manager) SubnetsByNIC() map[string][]*net.IPNet {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]*net.IPNet, len(m.entries))
	for nic, e := range m.entries {
		out[nic] = append([]*net.IPNet(nil), e.subnets...)
	}
	return out
}

// quarantine disables nic for the recovery window and logs the cause
// (spec §4.5 fault quarantine).
func (m *Manager) quarantine(e *entry, cause error) {
	e.disabledUntil = m.now().Add(m.recovery)
	m.onLog("quarantining interface "+e.nic, cause)
}

// recordSendFailure applies the fault-quarantine policy: an interface that
// has sent successfully before (or was added manually) is quarantined on
// its very first failure; a first-send failure on an auto-discovered
// interface also quarantines silently for the same duration (spec §4.5).
func (m *Manager) recordSendFailure(e *entry, err error) {
	if e.everSentOK || e.manual {
		m.quarantine(e, err)
		return
	}
	e.disabledUntil = m.now().Add(m.recovery)
}

// recordSendSuccess marks the interface as having sent at least once, and
// bumps its counter.
func (m *Manager) recordSendSuccess(e *entry) {
	e.everSentOK = true
	e.packetsSent++
}

// Send writes data, which is assumed already encoded and pre-applied to nic
// (via Packet.AppliedTo), to whichever of nic's sockets are open, applying the
// fault-quarantine policy on failure. It returns the first error
// encountered, if any family failed to send.
func (m *Manager) Send(nic string, data []byte) error {
	m.mu.Lock()
	e, ok := m.entries[nic]
	m.mu.Unlock()
	if !ok {
		return &mdnserrors.NetworkError{Operation: "send", Details: "unknown interface " + nic}
	}

	m.mu.Lock()
	disabled := e.isDisabled(m.now())
	m.mu.Unlock()
	if disabled {
		return &mdnserrors.NetworkError{Operation: "send", Details: "interface " + nic + " is quarantined"}
	}

	var firstErr error
	if e.sock4 != nil {
		if err := e.sock4.send(data); err != nil {
			m.mu.Lock()
			m.recordSendFailure(e, err)
			m.mu.Unlock()
			firstErr = err
		} else {
			m.mu.Lock()
			m.recordSendSuccess(e)
			m.mu.Unlock()
		}
	}
	if e.sock6 != nil {
		if err := e.sock6.send(data); err != nil {
			m.mu.Lock()
			m.recordSendFailure(e, err)
			m.mu.Unlock()
			if firstErr == nil {
				firstErr = err
			}
		} else {
			m.mu.Lock()
			m.recordSendSuccess(e)
			m.mu.Unlock()
		}
	}
	return firstErr
}

// Close tears down every managed socket.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		m.closeEntry(e)
	}
	m.entries = make(map[string]*entry)
}

func (m *Manager) closeEntry(e *entry) {
	if e.sock4 != nil {
		e.sock4.close()
		e.sock4 = nil
	}
	if e.sock6 != nil {
		e.sock6.close()
		e.sock6 = nil
	}
}

func classifyAddr(a net.Addr) net.IP {
	ipn, ok := a.(*net.IPNet)
	if !ok {
		return nil
	}
	return ipn.IP
}

func isUsableInterface(ifi net.Interface) bool {
	if ifi.Flags&net.FlagUp == 0 {
		return false
	}
	if ifi.Flags&net.FlagLoopback != 0 {
		return false
	}
	if ifi.Flags&net.FlagMulticast == 0 {
		return false
	}
	return true
}
