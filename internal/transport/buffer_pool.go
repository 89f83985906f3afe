// Package transport holds the platform socket-option glue and the receive
// buffer pool shared by every per-interface socket the interface manager
// opens (internal/iface).
package transport

import "sync"

// receiveBufferSize accommodates jumbo mDNS datagrams; RFC 6762 §17 notes
// messages may exceed the classic 512-byte limit.
const receiveBufferSize = 9000

var bufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, receiveBufferSize)
		return &buf
	},
}

// GetBuffer returns a pooled receive buffer. Callers must return it with
// PutBuffer, typically via defer, and must not retain it past that call.
func GetBuffer() *[]byte {
	return bufferPool.Get().(*[]byte)
}

// PutBuffer zeroes and returns buf to the pool.
func PutBuffer(buf *[]byte) {
	b := *buf
	for i := range b {
		b[i] = 0
	}
	bufferPool.Put(buf)
}
