package cache

import (
	"net"
	"testing"

	"github.com/mdnscore/beacon/internal/message"
)

func TestSplitFQDN(t *testing.T) {
	instance, typ, domain, err := SplitFQDN("MyWeb._http._tcp.local")
	if err != nil {
		t.Fatalf("SplitFQDN error: %v", err)
	}
	if instance != "MyWeb" || typ != "_http._tcp.local" || domain != "local" {
		t.Errorf("got (%q, %q, %q)", instance, typ, domain)
	}

	for _, bad := range []string{"noDotsHere", ".local", "onlyLeadingDot."} {
		if _, _, _, err := SplitFQDN(bad); err == nil {
			t.Errorf("SplitFQDN(%q) expected error", bad)
		}
	}
}

func TestServiceSetHost(t *testing.T) {
	s := NewService("MyWeb._http._tcp.local", "MyWeb", "_http._tcp.local", "local", false)
	if !s.SetHost("h.local", 8080) {
		t.Fatal("expected modified on first SetHost")
	}
	if s.SetHost("h.local", 8080) {
		t.Error("expected not modified when host+port unchanged")
	}
	if !s.SetHost("h.local", 9090) {
		t.Error("expected modified when port changes")
	}
}

func TestServiceSetText(t *testing.T) {
	s := NewService("MyWeb._http._tcp.local", "MyWeb", "_http._tcp.local", "local", false)
	text := message.TXTData{{Key: "path", Value: "/x", HasValue: true}}
	if !s.SetText(text) {
		t.Fatal("expected modified on first SetText")
	}
	if s.SetText(text) {
		t.Error("expected not modified for identical content")
	}
	other := message.TXTData{{Key: "path", Value: "/y", HasValue: true}}
	if !s.SetText(other) {
		t.Error("expected modified when value changes")
	}
}

func TestServiceAddRemoveAddress(t *testing.T) {
	s := NewService("MyWeb._http._tcp.local", "MyWeb", "_http._tcp.local", "local", false)
	addr := net.ParseIP("192.0.2.10")
	if !s.AddAddress(addr, "eth0") {
		t.Fatal("expected modified on first AddAddress")
	}
	if s.AddAddress(addr, "eth0") {
		t.Error("expected not modified for duplicate address+nic")
	}
	if s.AddAddress(addr, "eth1") {
		t.Error("adding a second nic for the same address is not a new address")
	}
	if !s.RemoveAddress(addr) {
		t.Fatal("expected modified on RemoveAddress of present address")
	}
	if s.RemoveAddress(addr) {
		t.Error("expected not modified removing an absent address")
	}
}

func TestServiceConsumeModified(t *testing.T) {
	s := NewService("MyWeb._http._tcp.local", "MyWeb", "_http._tcp.local", "local", false)
	if s.Modified() {
		t.Error("fresh service should not be modified")
	}
	s.SetHost("h.local", 8080)
	if !s.Modified() {
		t.Error("expected modified after SetHost")
	}
	if !s.ConsumeModified() {
		t.Error("expected ConsumeModified to report true once")
	}
	if s.ConsumeModified() {
		t.Error("expected ConsumeModified to report false after being cleared")
	}
}
