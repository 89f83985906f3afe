package message

import (
	"net"
	"testing"
)

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		wantErr bool
	}{
		{"empty name", Record{Type: KindA, A: net.ParseIP("1.2.3.4")}, true},
		{"valid A", NewA("host.local", net.ParseIP("1.2.3.4"), 120), false},
		{"A with IPv6 address", Record{Name: "host.local", Type: KindA, AAAA: net.ParseIP("::1")}, true},
		{"valid AAAA", NewAAAA("host.local", net.ParseIP("fe80::1"), 120), false},
		{"SRV empty target", Record{Name: "svc.local", Type: KindSRV}, true},
		{"valid SRV", NewSRV("svc.local", 0, 0, 8080, "host.local", 120), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTXTDataEqual(t *testing.T) {
	a := TXTData{{Key: "x", Value: "1", HasValue: true}, {Key: "y"}}
	b := TXTData{{Key: "x", Value: "1", HasValue: true}, {Key: "y"}}
	c := TXTData{{Key: "y"}, {Key: "x", Value: "1", HasValue: true}}
	if !a.Equal(b) {
		t.Error("expected a == b")
	}
	if a.Equal(c) {
		t.Error("expected a != c (order matters)")
	}
}

func TestIsUnicastRequested(t *testing.T) {
	q := NewQuestion("host.local", KindA, true)
	if !q.IsUnicastRequested() {
		t.Error("expected unicast bit set")
	}
	q2 := NewQuestion("host.local", KindA, false)
	if q2.IsUnicastRequested() {
		t.Error("expected unicast bit clear")
	}
}

func TestGoodbyeZeroesTTL(t *testing.T) {
	r := NewA("host.local", net.ParseIP("1.2.3.4"), 120)
	g := r.Goodbye()
	if g.TTL != 0 {
		t.Errorf("TTL = %d, want 0", g.TTL)
	}
	if r.TTL != 120 {
		t.Error("Goodbye must not mutate the receiver")
	}
}
