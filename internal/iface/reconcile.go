package iface

import "net"

// Reconcile implements the per-iteration topology check (spec §4.5):
// recompute each candidate NIC's usable addresses, open or close sockets as
// a NIC transitions empty ↔ non-empty, and diff addresses in and out of the
// per-NIC list otherwise. It returns true if anything changed, in which
// case the engine must re-announce every owned service.
func (m *Manager) Reconcile() (bool, error) {
	ifaces, err := m.candidateInterfaces()
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	seen := make(map[string]bool, len(ifaces))

	for _, ifi := range ifaces {
		seen[ifi.Name] = true
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		v4, v6 := usableAddresses(addrs, m.cfg.IPv4Enabled, m.cfg.IPv6Enabled)

		e, known := m.entries[ifi.Name]
		if !known {
			e = &entry{nic: ifi.Name, manual: len(m.cfg.Interfaces) > 0}
			m.entries[ifi.Name] = e
		}

		wasEmpty := len(e.ipv4Addresses) == 0 && len(e.ipv6Addresses) == 0
		nowEmpty := len(v4) == 0 && len(v6) == 0

		if wasEmpty != nowEmpty {
			changed = true
			if nowEmpty {
				m.closeEntry(e)
			} else {
				m.openEntrySockets(e, &ifi)
			}
		} else if !addrSlicesEqual(e.ipv4Addresses, v4) || !addrSlicesEqual(e.ipv6Addresses, v6) {
			changed = true
		}

		e.ipv4Addresses = v4
		e.ipv6Addresses = v6
		e.subnets = subnetsFor(addrs)
	}

	for nic, e := range m.entries {
		if !seen[nic] {
			m.closeEntry(e)
			delete(m.entries, nic)
			changed = true
		}
	}

	return changed, nil
}

func (m *Manager) openEntrySockets(e *entry, ifi *net.Interface) {
	if m.cfg.IPv4Enabled && e.sock4 == nil {
		if sock, err := openSocketV4(ifi); err != nil {
			m.onLog("open ipv4 socket failed for "+ifi.Name, err)
		} else {
			e.sock4 = sock
			go sock.readLoop(m.inbound)
		}
	}
	if m.cfg.IPv6Enabled && e.sock6 == nil {
		if sock, err := openSocketV6(ifi); err != nil {
			m.onLog("open ipv6 socket failed for "+ifi.Name, err)
		} else {
			e.sock6 = sock
			go sock.readLoop(m.inbound)
		}
	}
}

// candidateInterfaces returns either the configured explicit set or every
// up, non-loopback, multicast-capable system interface (spec §6 default).
func (m *Manager) candidateInterfaces() ([]net.Interface, error) {
	all, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	if len(m.cfg.Interfaces) == 0 {
		out := make([]net.Interface, 0, len(all))
		for _, ifi := range all {
			if isUsableInterface(ifi) {
				out = append(out, ifi)
			}
		}
		return out, nil
	}

	wanted := make(map[string]bool, len(m.cfg.Interfaces))
	for _, n := range m.cfg.Interfaces {
		wanted[n] = true
	}
	out := make([]net.Interface, 0, len(wanted))
	for _, ifi := range all {
		if wanted[ifi.Name] {
			out = append(out, ifi)
		}
	}
	return out, nil
}

// usableAddresses splits ifi's addresses into enabled IPv4/IPv6 address
// lists, excluding loopback and multicast addresses (spec §4.5 step 1).
func usableAddresses(addrs []net.Addr, ipv4Enabled, ipv6Enabled bool) (v4, v6 []net.IP) {
	for _, a := range addrs {
		ip := classifyAddr(a)
		if ip == nil || ip.IsLoopback() || ip.IsMulticast() {
			continue
		}
		if ip4 := ip.To4(); ip4 != nil {
			if ipv4Enabled {
				v4 = append(v4, ip4)
			}
			continue
		}
		if ipv6Enabled {
			v6 = append(v6, ip)
		}
	}
	return v4, v6
}

func subnetsFor(addrs []net.Addr) []*net.IPNet {
	var out []*net.IPNet
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok {
			out = append(out, ipn)
		}
	}
	return out
}

func addrSlicesEqual(a, b []net.IP) bool {
	if len(a) != len(b) {
		return false
	}
	for _, ai := range a {
		found := false
		for _, bi := range b {
			if ai.Equal(bi) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
