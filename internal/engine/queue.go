package engine

import (
	"sync"

	"github.com/mdnscore/beacon/internal/message"
)

// outbound is one packet waiting to be sent, optionally restricted to a
// single interface (spec §4.6 step 1: "nic, or any, if unset").
type outbound struct {
	pkt *message.Packet
	nic string
}

// outboundQueue is the mutex-guarded FIFO deque spec §5 describes: external
// threads enqueue, only the engine goroutine dequeues.
type outboundQueue struct {
	mu    sync.Mutex
	items []outbound
}

func (q *outboundQueue) push(pkt *message.Packet, nic string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, outbound{pkt: pkt, nic: nic})
}

// pop removes and returns the oldest entry, or ok=false if the queue is
// empty.
func (q *outboundQueue) pop() (outbound, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return outbound{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}
