package transport

import (
	"context"
	"net"
	"runtime"
	"testing"
)

// Control is exercised indirectly through net.ListenConfig since its
// signature takes a syscall.RawConn, which is easiest to obtain from a real
// listen call rather than constructed by hand.
func TestControlAllowsPortReuse(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" && runtime.GOOS != "windows" {
		t.Skip("no Control implementation for this GOOS")
	}

	lc := net.ListenConfig{Control: Control}
	ctx := context.Background()
	a, err := lc.ListenPacket(ctx, "udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("first listen: %v", err)
	}
	defer a.Close()

	b, err := lc.ListenPacket(ctx, "udp4", a.LocalAddr().String())
	if err != nil {
		t.Fatalf("second listen on same address should succeed with reuse options set: %v", err)
	}
	defer b.Close()
}

func TestBufferPoolRoundtrip(t *testing.T) {
	buf := GetBuffer()
	if len(*buf) != receiveBufferSize {
		t.Fatalf("len = %d, want %d", len(*buf), receiveBufferSize)
	}
	(*buf)[0] = 0xFF
	PutBuffer(buf)

	buf2 := GetBuffer()
	if (*buf2)[0] != 0 {
		t.Error("expected PutBuffer to zero the buffer before returning it to the pool")
	}
	PutBuffer(buf2)
}
