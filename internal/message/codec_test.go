package message

import (
	"net"
	"testing"
)

func TestEncodeDecodeResourceRecordA(t *testing.T) {
	r := NewA("host.local", net.ParseIP("192.168.1.10"), 120)
	buf, err := encodeResourceRecord(nil, r)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, next, err := decodeResourceRecord(buf, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if next != len(buf) {
		t.Errorf("next = %d, want %d", next, len(buf))
	}
	if got.Name != r.Name || got.Type != KindA || got.TTL != r.TTL {
		t.Errorf("got %+v, want %+v", got, r)
	}
	if !got.A.Equal(r.A) {
		t.Errorf("address = %v, want %v", got.A, r.A)
	}
}

func TestEncodeDecodeResourceRecordAAAA(t *testing.T) {
	r := NewAAAA("host.local", net.ParseIP("fe80::1"), 120)
	buf, err := encodeResourceRecord(nil, r)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, _, err := decodeResourceRecord(buf, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.AAAA.Equal(r.AAAA) {
		t.Errorf("address = %v, want %v", got.AAAA, r.AAAA)
	}
}

func TestEncodeDecodeResourceRecordPTR(t *testing.T) {
	r := NewPTR("_http._tcp.local", "printer._http._tcp.local", 28800)
	buf, err := encodeResourceRecord(nil, r)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, _, err := decodeResourceRecord(buf, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PTR != r.PTR {
		t.Errorf("PTR = %q, want %q", got.PTR, r.PTR)
	}
}

func TestEncodeDecodeResourceRecordSRV(t *testing.T) {
	r := NewSRV("printer._http._tcp.local", 0, 0, 8080, "host.local", 120)
	buf, err := encodeResourceRecord(nil, r)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, _, err := decodeResourceRecord(buf, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SRV != r.SRV {
		t.Errorf("SRV = %+v, want %+v", got.SRV, r.SRV)
	}
}

func TestEncodeDecodeResourceRecordTXT(t *testing.T) {
	txt := TXTData{{Key: "txtvers", Value: "1", HasValue: true}, {Key: "flag"}}
	r := NewTXT("printer._http._tcp.local", txt, 4500)
	buf, err := encodeResourceRecord(nil, r)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, _, err := decodeResourceRecord(buf, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.TXT.Equal(r.TXT) {
		t.Errorf("TXT = %+v, want %+v", got.TXT, r.TXT)
	}
}

func TestEncodeEmptyTXT(t *testing.T) {
	buf := encodeTXT(nil, nil)
	if len(buf) != 1 || buf[0] != 0x00 {
		t.Errorf("empty TXT encoding = %#v, want single zero byte", buf)
	}
}

func TestDecodeResourceRecordWrongAddressLength(t *testing.T) {
	// Name "a\x00", type A, class IN, ttl 0, rdlen 3, 3 garbage bytes.
	buf := []byte{0x01, 'a', 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03, 0x01, 0x02, 0x03}
	_, _, err := decodeResourceRecord(buf, 0)
	if err == nil {
		t.Fatal("expected error for wrong-length A rdata")
	}
}

func TestQuestionRoundtrip(t *testing.T) {
	q := NewQuestion("printer._http._tcp.local", KindPTR, true)
	buf, err := encodeQuestion(nil, q)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, next, err := decodeQuestion(buf, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if next != len(buf) {
		t.Errorf("next = %d, want %d", next, len(buf))
	}
	if got.Name != q.Name || got.Type != q.Type || !got.IsUnicastRequested() {
		t.Errorf("got %+v, want %+v", got, q)
	}
}
