// Package cache holds the live set of announced and heard services: the map
// from fully-qualified name to service instance, plus the derived type and
// name sets the answer generator and integrator consult on every packet.
package cache

import (
	"net"
	"strings"
	"sync"

	mdnserrors "github.com/mdnscore/beacon/internal/errors"
	"github.com/mdnscore/beacon/internal/message"
)

// TTLSet is the per-kind TTL a service advertises or was last heard with.
type TTLSet struct {
	PTR uint32
	SRV uint32
	TXT uint32
	A   uint32
}

// DefaultTTLSet matches the engine-wide defaults (spec §6).
func DefaultTTLSet() TTLSet {
	return TTLSet{
		PTR: message.DefaultTTLPTR,
		SRV: message.DefaultTTLSRV,
		TXT: message.DefaultTTLTXT,
		A:   message.DefaultTTLA,
	}
}

// Service is one instance of an mDNS-advertised or mDNS-heard service.
// Identity is its FQDN; the cache keys on that alone. Owner true means this
// process built and announced it; false means it arrived over the network.
type Service struct {
	mu sync.Mutex

	FQDN   string
	Name   string
	Type   string
	Domain string

	host    string
	port    uint16
	hasHost bool

	text    message.TXTData
	hasText bool

	addresses map[string]map[string]struct{} // addr.String() -> set of nic names

	TTL TTLSet

	Owner     bool
	Cancelled bool

	modified bool
}

// SplitFQDN splits a fully-qualified service instance name into its
// instance, type, and domain parts ("printer._http._tcp.local" ->
// "printer", "_http._tcp.local", "local"). Shared by the integrator and the
// probe machine so both agree on how an owned or heard service is named.
func SplitFQDN(fqdn string) (instance, typ, domain string, err error) {
	idx := strings.IndexByte(fqdn, '.')
	if idx <= 0 || idx == len(fqdn)-1 {
		return "", "", "", &mdnserrors.NameError{Name: fqdn, Message: "cannot split into instance/type/domain"}
	}
	instance = fqdn[:idx]
	rest := fqdn[idx+1:]
	lastDot := strings.LastIndexByte(rest, '.')
	if lastDot < 0 {
		return "", "", "", &mdnserrors.NameError{Name: fqdn, Message: "cannot split into instance/type/domain"}
	}
	return instance, rest, rest[lastDot+1:], nil
}

// NewService constructs an empty heard or owned service shell; callers fill
// in Host/Port/Text via the mutation methods below so the modified flag
// stays accurate.
func NewService(fqdn, name, typ, domain string, owner bool) *Service {
	return &Service{
		FQDN:      fqdn,
		Name:      name,
		Type:      typ,
		Domain:    domain,
		addresses: make(map[string]map[string]struct{}),
		TTL:       DefaultTTLSet(),
		Owner:     owner,
	}
}

// Host returns the bound hostname and port, and whether SetHost was ever
// called.
func (s *Service) Host() (host string, port uint16, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host, s.port, s.hasHost
}

// SetHost binds host+port (from an SRV record) and reports whether either
// field actually changed (spec §4.3 setHost).
func (s *Service) SetHost(host string, port uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasHost && s.host == host && s.port == port {
		return false
	}
	s.host, s.port, s.hasHost = host, port, true
	s.modified = true
	return true
}

// Text returns the current TXT content and whether SetText was ever called.
func (s *Service) Text() (message.TXTData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text, s.hasText
}

// SetText replaces the TXT content and reports whether the ordered content
// actually differs from what was held before (spec §4.3 setText).
func (s *Service) SetText(text message.TXTData) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasText && s.text.Equal(text) {
		return false
	}
	s.text, s.hasText = text, true
	s.modified = true
	return true
}

// AddAddress records that addr was seen reachable via nic, and reports
// whether the address itself was new to the service (spec §4.3 addAddress).
func (s *Service) AddAddress(addr net.IP, nic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := addr.String()
	nics, known := s.addresses[key]
	if !known {
		nics = make(map[string]struct{})
		s.addresses[key] = nics
	}
	if _, already := nics[nic]; !already {
		nics[nic] = struct{}{}
	}
	if !known {
		s.modified = true
		return true
	}
	return false
}

// RemoveAddress drops addr entirely and reports whether it had been present
// (spec §4.3 removeAddress).
func (s *Service) RemoveAddress(addr net.IP) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := addr.String()
	if _, present := s.addresses[key]; !present {
		return false
	}
	delete(s.addresses, key)
	s.modified = true
	return true
}

// Addresses returns the set of known addresses, ignoring which interface
// they were seen on.
func (s *Service) Addresses() []net.IP {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]net.IP, 0, len(s.addresses))
	for k := range s.addresses {
		out = append(out, net.ParseIP(k))
	}
	return out
}

// Modified reports whether any mutator has fired since the last
// ConsumeModified call.
func (s *Service) Modified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modified
}

// ConsumeModified reads and clears the modified flag atomically, used by the
// engine when flushing serviceModified events (spec §4.3: "modified since
// the last event flush").
func (s *Service) ConsumeModified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.modified
	s.modified = false
	return m
}
