// Package beacon is a library implementation of multicast DNS service
// discovery and announcement (RFC 6762/6763): probe, announce, resolve,
// and goodbye, over the engine in internal/engine. There is no persisted
// state, no environment variable surface, and no CLI (spec §6): a Beacon is
// constructed, run in the background, and closed.
package beacon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mdnscore/beacon/internal/engine"
	"github.com/mdnscore/beacon/internal/iface"
)

// Beacon owns one running engine: its interface sockets, cache, and expiry
// wheel. Every exported method is safe to call from any goroutine; the
// engine itself is the only goroutine that ever touches the underlying
// state (spec §5).
type Beacon struct {
	cfg    Config
	engine *engine.Engine
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Beacon from the given Options and starts its engine loop in
// the background. The returned Beacon is ready to Announce/Unannounce
// immediately.
func New(opts ...Option) (*Beacon, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	im := iface.New(iface.Config{
		IPv4Enabled: cfg.IPv4Enabled,
		IPv6Enabled: cfg.IPv6Enabled,
		Interfaces:  cfg.Interfaces,
	}, cfg.logFunc())
	if _, err := im.Reconcile(); err != nil {
		return nil, err
	}

	eng := engine.New(im, cfg.listener, cfg.logFunc())

	ctx, cancel := context.WithCancel(context.Background())
	b := &Beacon{cfg: cfg, engine: eng, cancel: cancel}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		_ = eng.Run(ctx)
	}()

	// Wait for the loop to actually start before handing back a Beacon ready
	// to Announce: Run's state transition happens on its own goroutine, and
	// without this a racing Announce could land before it.
	select {
	case <-eng.Ready():
	case <-time.After(5 * time.Second):
		cancel()
		b.wg.Wait()
		return nil, fmt.Errorf("beacon: engine did not start")
	}
	return b, nil
}

// Close unannounces every owned service, tears down the engine's sockets,
// and waits for the loop goroutine to exit.
func (b *Beacon) Close() {
	b.engine.Close()
	b.cancel()
	b.wg.Wait()
}
