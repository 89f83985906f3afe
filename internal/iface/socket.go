package iface

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	mdnserrors "github.com/mdnscore/beacon/internal/errors"
	"github.com/mdnscore/beacon/internal/message"
	"github.com/mdnscore/beacon/internal/transport"
)

// socketV4 is one interface's IPv4 multicast socket (spec §4.5).
type socketV4 struct {
	nic  string
	conn net.PacketConn
	pc   *ipv4.PacketConn
	dest *net.UDPAddr
}

func openSocketV4(ifi *net.Interface) (*socketV4, error) {
	lc := net.ListenConfig{Control: transport.Control}
	conn, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", message.Port))
	if err != nil {
		return nil, &mdnserrors.NetworkError{Operation: "open ipv4 socket", Err: err, Details: ifi.Name}
	}
	pc := ipv4.NewPacketConn(conn)

	group := net.UDPAddr{IP: net.ParseIP(message.MulticastGroupV4)}
	if err := pc.JoinGroup(ifi, &group); err != nil {
		conn.Close()
		return nil, &mdnserrors.NetworkError{Operation: "join ipv4 multicast group", Err: err, Details: ifi.Name}
	}
	if err := pc.SetMulticastInterface(ifi); err != nil {
		conn.Close()
		return nil, &mdnserrors.NetworkError{Operation: "set ipv4 multicast interface", Err: err, Details: ifi.Name}
	}
	if err := pc.SetMulticastTTL(255); err != nil {
		conn.Close()
		return nil, &mdnserrors.NetworkError{Operation: "set ipv4 multicast ttl", Err: err, Details: ifi.Name}
	}
	_ = pc.SetMulticastLoopback(true)

	return &socketV4{
		nic:  ifi.Name,
		conn: conn,
		pc:   pc,
		dest: &net.UDPAddr{IP: net.ParseIP(message.MulticastGroupV4), Port: message.Port},
	}, nil
}

func (s *socketV4) send(data []byte) error {
	_, err := s.conn.WriteTo(data, s.dest)
	if err != nil {
		return &mdnserrors.NetworkError{Operation: "send ipv4", Err: err, Details: s.nic}
	}
	return nil
}

// readLoop blocks on ReadFrom and publishes datagrams to out until the
// socket is closed; it is meant to run in its own goroutine, one per open
// socket, so the engine's single owning goroutine never blocks on I/O
// itself.
func (s *socketV4) readLoop(out chan<- Inbound) {
	for {
		buf := transport.GetBuffer()
		n, _, err := s.conn.ReadFrom(*buf)
		if err != nil {
			transport.PutBuffer(buf)
			return
		}
		data := make([]byte, n)
		copy(data, (*buf)[:n])
		transport.PutBuffer(buf)
		out <- Inbound{Data: data, NIC: s.nic}
	}
}

func (s *socketV4) close() { s.conn.Close() }

// socketV6 is one interface's IPv6 multicast socket.
type socketV6 struct {
	nic  string
	conn net.PacketConn
	pc   *ipv6.PacketConn
	dest *net.UDPAddr
}

func openSocketV6(ifi *net.Interface) (*socketV6, error) {
	lc := net.ListenConfig{Control: transport.Control}
	conn, err := lc.ListenPacket(context.Background(), "udp6", fmt.Sprintf(":%d", message.Port))
	if err != nil {
		return nil, &mdnserrors.NetworkError{Operation: "open ipv6 socket", Err: err, Details: ifi.Name}
	}
	pc := ipv6.NewPacketConn(conn)

	group := net.UDPAddr{IP: net.ParseIP(message.MulticastGroupV6)}
	if err := pc.JoinGroup(ifi, &group); err != nil {
		conn.Close()
		return nil, &mdnserrors.NetworkError{Operation: "join ipv6 multicast group", Err: err, Details: ifi.Name}
	}
	if err := pc.SetMulticastInterface(ifi); err != nil {
		conn.Close()
		return nil, &mdnserrors.NetworkError{Operation: "set ipv6 multicast interface", Err: err, Details: ifi.Name}
	}
	if err := pc.SetMulticastHopLimit(255); err != nil {
		conn.Close()
		return nil, &mdnserrors.NetworkError{Operation: "set ipv6 multicast hop limit", Err: err, Details: ifi.Name}
	}
	_ = pc.SetMulticastLoopback(true)

	return &socketV6{
		nic:  ifi.Name,
		conn: conn,
		pc:   pc,
		dest: &net.UDPAddr{IP: net.ParseIP(message.MulticastGroupV6), Port: message.Port, Zone: ifi.Name},
	}, nil
}

func (s *socketV6) send(data []byte) error {
	_, err := s.conn.WriteTo(data, s.dest)
	if err != nil {
		return &mdnserrors.NetworkError{Operation: "send ipv6", Err: err, Details: s.nic}
	}
	return nil
}

func (s *socketV6) readLoop(out chan<- Inbound) {
	for {
		buf := transport.GetBuffer()
		n, _, err := s.conn.ReadFrom(*buf)
		if err != nil {
			transport.PutBuffer(buf)
			return
		}
		data := make([]byte, n)
		copy(data, (*buf)[:n])
		transport.PutBuffer(buf)
		out <- Inbound{Data: data, NIC: s.nic}
	}
}

func (s *socketV6) close() { s.conn.Close() }
