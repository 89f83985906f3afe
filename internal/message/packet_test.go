package message

import (
	"net"
	"testing"
)

func TestNewQuestionPacketAddsPairedAddressType(t *testing.T) {
	p := NewQuestionPacket(1, "host.local", KindA, false)
	if len(p.Questions) != 2 {
		t.Fatalf("len(Questions) = %d, want 2", len(p.Questions))
	}
	if p.Questions[0].Type != KindA || p.Questions[1].Type != KindAAAA {
		t.Errorf("Questions = %+v, want A then AAAA", p.Questions)
	}
}

func TestNewQuestionPacketNonAddressType(t *testing.T) {
	p := NewQuestionPacket(1, "_http._tcp.local", KindPTR, false)
	if len(p.Questions) != 1 {
		t.Fatalf("len(Questions) = %d, want 1 (no pairing for PTR)", len(p.Questions))
	}
}

func TestPacketEncodeDecodeRoundtrip(t *testing.T) {
	ann := NewAnnouncement(AnnouncementSpec{
		FQDN:      "printer._http._tcp.local",
		Type:      "_http._tcp.local",
		Host:      "host.local",
		Port:      8080,
		Text:      TXTData{{Key: "txtvers", Value: "1", HasValue: true}},
		Addresses: []net.IP{net.ParseIP("192.168.1.5"), net.ParseIP("fe80::1")},
		TTLPTR:    28800,
		TTLSRV:    120,
		TTLTXT:    4500,
		TTLA:      120,
	})
	ann.ID = 42

	buf, err := ann.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(buf, "eth0")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != 42 {
		t.Errorf("ID = %d, want 42", got.ID)
	}
	if !got.IsResponse() || !got.IsAuthoritative() {
		t.Errorf("flags = %#x, want response+authoritative", got.Flags)
	}
	if len(got.Answers) != 3 {
		t.Fatalf("len(Answers) = %d, want 3", len(got.Answers))
	}
	if len(got.Additionals) != 2 {
		t.Fatalf("len(Additionals) = %d, want 2", len(got.Additionals))
	}
	if got.NIC != "eth0" {
		t.Errorf("NIC = %q, want eth0", got.NIC)
	}
}

func TestPacketGoodbye(t *testing.T) {
	ann := NewAnnouncement(AnnouncementSpec{
		FQDN: "printer._http._tcp.local", Type: "_http._tcp.local",
		Host: "host.local", Port: 8080,
		Addresses: []net.IP{net.ParseIP("192.168.1.5")},
		TTLPTR:    28800, TTLSRV: 120, TTLTXT: 4500, TTLA: 120,
	})
	bye := ann.Goodbye()
	for _, r := range bye.Answers {
		if r.TTL != 0 {
			t.Errorf("answer %+v has nonzero TTL", r)
		}
	}
	for _, r := range bye.Additionals {
		if r.TTL != 0 {
			t.Errorf("additional %+v has nonzero TTL", r)
		}
	}
}

func TestPacketStringParseRoundtrip(t *testing.T) {
	p := ResponseTo(
		NewQuestionPacket(7, "host.local", KindA, false),
		[]Record{NewA("host.local", net.ParseIP("10.0.0.1"), 120)},
		nil,
	)
	text := p.String()

	parsed, err := ParsePacketText(text)
	if err != nil {
		t.Fatalf("ParsePacketText: %v", err)
	}
	if parsed.ID != p.ID {
		t.Errorf("ID = %d, want %d", parsed.ID, p.ID)
	}
	if !parsed.IsResponse() || !parsed.IsAuthoritative() {
		t.Error("expected response+authoritative flags preserved")
	}
	if len(parsed.Answers) != 1 || !parsed.Answers[0].A.Equal(net.ParseIP("10.0.0.1")) {
		t.Errorf("answers = %+v", parsed.Answers)
	}
}

func TestAppliedToFiltersAddressBelongingToAnotherNIC(t *testing.T) {
	_, subnetEth0, _ := net.ParseCIDR("192.168.1.0/24")
	_, subnetEth1, _ := net.ParseCIDR("10.0.0.0/24")
	p := &Packet{
		Answers: []Record{
			NewPTR("_http._tcp.local", "printer._http._tcp.local", 28800),
		},
		Additionals: []Record{
			NewA("host.local", net.ParseIP("192.168.1.5"), 120),
			NewA("host.local", net.ParseIP("10.0.0.5"), 120),
		},
	}
	subnets := map[string][]*net.IPNet{"eth0": {subnetEth0}, "eth1": {subnetEth1}}
	out, ok := p.AppliedTo("eth0", subnets)
	if !ok {
		t.Fatal("expected non-empty result")
	}
	if len(out.Additionals) != 1 || !out.Additionals[0].A.Equal(net.ParseIP("192.168.1.5")) {
		t.Errorf("Additionals = %+v, want only the address in eth0's own subnet; the 10.0.0.5 address belongs to eth1 and must not appear on eth0", out.Additionals)
	}
	if len(out.Answers) != 1 {
		t.Errorf("Answers = %+v, non-address records must always pass through", out.Answers)
	}
}

func TestAppliedToUnfilteredWhenNoSubnetsKnown(t *testing.T) {
	p := &Packet{Additionals: []Record{NewA("host.local", net.ParseIP("10.0.0.5"), 120)}}
	out, ok := p.AppliedTo("eth0", nil)
	if !ok || len(out.Additionals) != 1 {
		t.Errorf("expected address record kept when interface has no known subnets")
	}
}

func TestAppliedToBroadcastsAddressMatchingNoKnownNIC(t *testing.T) {
	_, subnet, _ := net.ParseCIDR("192.168.1.0/24")
	p := &Packet{Additionals: []Record{NewA("host.local", net.ParseIP("10.0.0.5"), 120)}}
	out, ok := p.AppliedTo("eth0", map[string][]*net.IPNet{"eth0": {subnet}})
	if !ok || len(out.Additionals) != 1 {
		t.Errorf("expected an address matching no nic's subnet to be broadcast rather than dropped, got ok=%v additionals=%+v", ok, out.Additionals)
	}
}

func TestAppliedToEmptyResult(t *testing.T) {
	_, subnetEth0, _ := net.ParseCIDR("192.168.1.0/24")
	_, subnetEth1, _ := net.ParseCIDR("10.0.0.0/24")
	p := &Packet{Additionals: []Record{NewA("host.local", net.ParseIP("10.0.0.5"), 120)}}
	subnets := map[string][]*net.IPNet{"eth0": {subnetEth0}, "eth1": {subnetEth1}}
	_, ok := p.AppliedTo("eth0", subnets)
	if ok {
		t.Error("expected empty result to report false when the only address belongs to a different nic")
	}
}
