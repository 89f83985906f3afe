package beacon

import (
	"fmt"
	"net"
	"strings"

	"github.com/mdnscore/beacon/internal/message"
)

// TXTEntry and TXTData are re-exported so callers can build ordered TXT
// records without importing an internal package (spec §3: "TXT preserves
// insertion order").
type (
	TXTEntry = message.TXTEntry
	TXTData  = message.TXTData
)

// ServiceParams describes a service to announce. Type may be given with or
// without its domain suffix ("_http._tcp" or "_http._tcp.local"); Host and
// Addresses default to the Beacon's configured local host name and its
// discovered non-loopback addresses when left zero.
type ServiceParams struct {
	Instance string
	Type     string
	Port     uint16
	Text     TXTData

	Host      string
	Addresses []net.IP

	// Per-service TTL overrides; zero means use the Beacon's configured
	// default for that record kind.
	TTLPTR uint32
	TTLSRV uint32
	TTLTXT uint32
	TTLA   uint32
}

func (p ServiceParams) validate() error {
	if p.Instance == "" {
		return fmt.Errorf("beacon: service instance name must not be empty")
	}
	if p.Type == "" {
		return fmt.Errorf("beacon: service type must not be empty")
	}
	if p.Port == 0 {
		return fmt.Errorf("beacon: service port must not be zero")
	}
	return nil
}

// normalizeType appends domain when typ has no second dot, matching the
// responder's "_svc._proto" convention (spec §6).
func normalizeType(typ, domain string) string {
	if strings.Count(typ, ".") >= 2 {
		return typ
	}
	return typ + "." + domain
}

// fqdn builds a fully-qualified service instance name from its parts.
func fqdn(instance, typ string) string {
	return instance + "." + typ
}

// Announce probes for, and if clear announces, the service described by
// params. It returns false without error if the name was already announced
// or collided with something already on the network (spec §4.8).
func (b *Beacon) Announce(params ServiceParams) (bool, error) {
	if err := params.validate(); err != nil {
		return false, err
	}

	typ := normalizeType(params.Type, b.cfg.Domain)
	name := fqdn(params.Instance, typ)

	host := params.Host
	if host == "" {
		host = b.cfg.LocalHostName
		if !strings.Contains(host, ".") {
			host = host + "." + b.cfg.Domain
		}
	}

	addrs := params.Addresses
	if len(addrs) == 0 {
		var err error
		addrs, err = localAddresses(b.cfg.IPv4Enabled, b.cfg.IPv6Enabled)
		if err != nil {
			return false, err
		}
	}

	spec := message.AnnouncementSpec{
		FQDN:      name,
		Type:      typ,
		Host:      host,
		Port:      params.Port,
		Text:      params.Text,
		Addresses: addrs,
		TTLPTR:    firstNonZero(params.TTLPTR, b.cfg.TTLPTR),
		TTLSRV:    firstNonZero(params.TTLSRV, b.cfg.TTLSRV),
		TTLTXT:    firstNonZero(params.TTLTXT, b.cfg.TTLTXT),
		TTLA:      firstNonZero(params.TTLA, b.cfg.TTLA),
	}

	return b.engine.Announce(name, spec)
}

// Unannounce sends a goodbye for the named instance/type and stops treating
// it as owned. It reports false if no announcement for that name was
// retained (spec §4.8).
func (b *Beacon) Unannounce(instance, typ string) (bool, error) {
	name := fqdn(instance, normalizeType(typ, b.cfg.Domain))
	return b.engine.Unannounce(name)
}

func firstNonZero(v, fallback uint32) uint32 {
	if v != 0 {
		return v
	}
	return fallback
}

// localAddresses gathers every non-loopback address of the enabled address
// families from every interface on the host (spec §6 default address
// discovery for a service's A/AAAA records).
func localAddresses(ipv4Enabled, ipv6Enabled bool) ([]net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	var out []net.IP
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() || ipnet.IP.IsMulticast() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			if ipv4Enabled {
				out = append(out, ip4)
			}
			continue
		}
		if ipv6Enabled {
			out = append(out, ipnet.IP)
		}
	}
	return out, nil
}
