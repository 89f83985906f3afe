// Package engine runs the single-threaded selector loop that ties the wire
// codec, cache, expiry wheel, interface manager, answer generator and probe
// machine together (spec §4.6). Exactly one goroutine — the one running
// Run — ever mutates engine-owned state; every other caller interacts
// through the outbound queue or the action channel.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mdnscore/beacon/internal/answer"
	"github.com/mdnscore/beacon/internal/cache"
	"github.com/mdnscore/beacon/internal/expiry"
	"github.com/mdnscore/beacon/internal/iface"
	"github.com/mdnscore/beacon/internal/message"
	"github.com/mdnscore/beacon/internal/probe"
)

const selectTimeout = 5 * time.Second

const (
	stateNew int32 = iota
	stateRunning
	stateCancelled
)

// ErrNotRunning is returned by actions submitted before Run starts or after
// the engine has shut down.
var ErrNotRunning = errors.New("engine: not running")

// action is a closure the owning goroutine executes inline, used so
// Announce/Unannounce calls from other goroutines still only ever touch
// engine state from the single loop thread (spec §5).
type action struct {
	run  func()
	done chan struct{}
}

// Engine is the responder+resolver core (spec's C6, wired to C1-C5, C7, C8).
type Engine struct {
	state int32

	queue   outboundQueue
	actions chan action
	wake    chan struct{}
	ready   chan struct{}

	ifaces  *iface.Manager
	cache   *cache.Cache
	wheel   *expiry.Wheel
	answers *answer.Generator
	prober  *probe.Machine

	listener Listener
	onLog    func(msg string, err error)

	nextQuestionID uint32
}

// New wires an Engine around an already-constructed interface manager. If
// listener is nil, events are discarded; if onLog is nil, internal faults
// are discarded too (the caller loses diagnostics, which mirrors the
// teacher's "logging is an external concern" stance).
func New(ifaces *iface.Manager, listener Listener, onLog func(string, error)) *Engine {
	if listener == nil {
		listener = noopListener{}
	}
	if onLog == nil {
		onLog = func(string, error) {}
	}
	c := cache.New()
	e := &Engine{
		state:    stateNew,
		actions:  make(chan action),
		wake:     make(chan struct{}, 1),
		ready:    make(chan struct{}),
		ifaces:   ifaces,
		cache:    c,
		wheel:    expiry.New(),
		answers:  answer.New(c),
		listener: listener,
		onLog:    onLog,
	}
	e.prober = &probe.Machine{
		Cache:     c,
		Inbound:   ifaces.Inbound(),
		Now:       time.Now,
		NextID:    e.allocQuestionID,
		Send:      e.sendNow,
		Integrate: e.processPacket,
	}
	return e
}

// Run executes the loop until ctx is cancelled or Close is called. It
// returns nil on a clean shutdown or ctx's error on cancellation.
func (e *Engine) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&e.state, stateNew, stateRunning) {
		return ErrNotRunning
	}
	close(e.ready)

	var runErr error
	for atomic.LoadInt32(&e.state) == stateRunning {
		e.sendOne()

		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			atomic.StoreInt32(&e.state, stateCancelled)
		case act := <-e.actions:
			act.run()
			close(act.done)
		case in := <-e.ifaces.Inbound():
			e.handleInbound(in)
		case <-e.wake:
		case <-time.After(selectTimeout):
		}

		e.wheel.Tick()

		changed, err := e.ifaces.Reconcile()
		if err != nil {
			e.onLog("interface reconcile", err)
		} else if changed {
			e.notify(Event{Kind: TopologyChange})
			e.reannounceOwned()
		}
	}

	e.shutdown()
	return runErr
}

// Close requests a cooperative shutdown: goodbye every owned service, then
// stop the loop (spec §4.6 "3-state shutdown machine").
func (e *Engine) Close() {
	atomic.CompareAndSwapInt32(&e.state, stateRunning, stateCancelled)
	atomic.CompareAndSwapInt32(&e.state, stateNew, stateCancelled)
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) shutdown() {
	for _, fqdn := range e.cache.Announced() {
		if bye, ok := e.prober.Unannounce(fqdn); ok {
			e.sendNow(bye)
		}
	}
	e.ifaces.Close()
}

// Announce runs the probe/announce sequence for fqdn on the engine's own
// goroutine, blocking the caller until it completes (spec §4.8).
func (e *Engine) Announce(fqdn string, spec message.AnnouncementSpec) (bool, error) {
	var ok bool
	var err error
	runErr := e.runAction(func() {
		ok, err = e.prober.Announce(fqdn, spec)
		if ok {
			e.wheel.Schedule(refreshKey(fqdn), refreshDelaySeconds(spec.TTLSRV), func() {
				e.reannounceOne(fqdn)
			})
		}
	})
	if runErr != nil {
		return false, runErr
	}
	return ok, err
}

// Unannounce sends a goodbye for fqdn and drops its retained announcement.
func (e *Engine) Unannounce(fqdn string) (bool, error) {
	var found bool
	runErr := e.runAction(func() {
		bye, ok := e.prober.Unannounce(fqdn)
		if ok {
			e.sendNow(bye)
		}
		found = ok
	})
	if runErr != nil {
		return false, runErr
	}
	return found, nil
}

// Enqueue pushes pkt onto the outbound FIFO, optionally restricted to nic
// ("" means every ready interface), and wakes the loop.
func (e *Engine) Enqueue(pkt *message.Packet, nic string) {
	e.queue.push(pkt, nic)
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) runAction(fn func()) error {
	if atomic.LoadInt32(&e.state) != stateRunning {
		return ErrNotRunning
	}
	done := make(chan struct{})
	select {
	case e.actions <- action{run: fn, done: done}:
	case <-time.After(selectTimeout):
		return ErrNotRunning
	}
	<-done
	return nil
}

// Ready is closed once Run has transitioned the engine to running, so a
// caller that started Run in a background goroutine can wait for it before
// issuing Announce/Unannounce (avoids a startup race where the first call
// arrives before Run's state transition has happened).
func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

func (e *Engine) allocQuestionID() uint16 {
	return uint16(atomic.AddUint32(&e.nextQuestionID, 1))
}

// notify invokes the listener, recovering any panic so a misbehaving
// listener cannot take down the loop goroutine (spec §5, §7).
func (e *Engine) notify(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.onLog("listener panic", fmt.Errorf("%v", r))
		}
	}()
	e.listener.Notify(ev)
}
