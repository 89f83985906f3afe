package message

import (
	goerrors "errors"
	"strings"
	"testing"

	mdnserrors "github.com/mdnscore/beacon/internal/errors"
)

func TestDecodeName(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		offset   int
		expected string
		wantOff  int
	}{
		{
			name: "uncompressed",
			data: []byte{
				0x04, 't', 'e', 's', 't',
				0x05, 'l', 'o', 'c', 'a', 'l',
				0x00,
			},
			offset:   0,
			expected: "test.local",
			wantOff:  12,
		},
		{
			name: "compressed pointer",
			data: []byte{
				0x07, 'e', 'x', 'a', 'm', 'p', 'l', 'e',
				0x05, 'l', 'o', 'c', 'a', 'l',
				0x00,
				0x04, 't', 'e', 's', 't',
				0xC0, 0x08,
			},
			offset:   15,
			expected: "test.local",
			wantOff:  22,
		},
		{
			name:     "root name",
			data:     []byte{0x00},
			offset:   0,
			expected: "",
			wantOff:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, off, err := decodeName(tt.data, tt.offset)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("name = %q, want %q", got, tt.expected)
			}
			if off != tt.wantOff {
				t.Errorf("offset = %d, want %d", off, tt.wantOff)
			}
		})
	}
}

func TestDecodeNameRejectsLoop(t *testing.T) {
	data := []byte{0xC0, 0x00} // pointer to itself, not strictly backwards
	_, _, err := decodeName(data, 0)
	if err == nil {
		t.Fatal("expected error for self-referencing pointer")
	}
	var wireErr *mdnserrors.WireError
	if !goerrors.As(err, &wireErr) {
		t.Errorf("expected *mdnserrors.WireError, got %T", err)
	}
}

func TestDecodeNameTruncated(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		offset int
		errMsg string
	}{
		{"truncated label", []byte{0x05, 't', 'e'}, 0, "label length exceeds message"},
		{"truncated pointer", []byte{0xC0}, 0, "truncated compression pointer"},
		{"offset out of bounds", []byte{0x04, 't', 'e', 's', 't', 0x00}, 100, "offset out of bounds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decodeName(tt.data, tt.offset)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.errMsg)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %v, want containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestEncodeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []byte
	}{
		{
			name:  "simple name",
			input: "test.local",
			expected: []byte{
				0x04, 't', 'e', 's', 't',
				0x05, 'l', 'o', 'c', 'a', 'l',
				0x00,
			},
		},
		{name: "root name", input: "", expected: []byte{0x00}},
		{name: "root name with dot", input: ".", expected: []byte{0x00}},
		{
			name:  "trailing dot stripped",
			input: "test.local.",
			expected: []byte{
				0x04, 't', 'e', 's', 't',
				0x05, 'l', 'o', 'c', 'a', 'l',
				0x00,
			},
		},
		{
			name:  "service type with underscores",
			input: "_http._tcp.local",
			expected: []byte{
				0x05, '_', 'h', 't', 't', 'p',
				0x04, '_', 't', 'c', 'p',
				0x05, 'l', 'o', 'c', 'a', 'l',
				0x00,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeName(nil, tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != string(tt.expected) {
				t.Errorf("encodeName(%q) = %#v, want %#v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestEncodeNameRejectsOverlongLabel(t *testing.T) {
	label := strings.Repeat("a", 64)
	_, err := encodeName(nil, label+".local")
	if err == nil {
		t.Fatal("expected error for label over 63 bytes")
	}
}

func TestEncodeDecodeNameRoundtrip(t *testing.T) {
	names := []string{
		"test.local",
		"printer.local",
		"_http._tcp.local",
		"my-device.local",
		"a.b.c.d.local",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			encoded, err := encodeName(nil, name)
			if err != nil {
				t.Fatalf("encodeName: %v", err)
			}
			decoded, _, err := decodeName(encoded, 0)
			if err != nil {
				t.Fatalf("decodeName: %v", err)
			}
			if decoded != name {
				t.Errorf("roundtrip: encoded %q, decoded %q", name, decoded)
			}
		})
	}
}
