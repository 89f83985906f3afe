package beacon

import (
	"fmt"
	"os"

	"github.com/mdnscore/beacon/internal/message"
)

// Config holds the engine-wide settings spec §6 enumerates. Build one with
// New, which applies functional Options over a set of sane defaults.
type Config struct {
	Domain        string
	LocalHostName string

	IPv4Enabled bool
	IPv6Enabled bool

	// Interfaces restricts management to exactly these NIC names. Empty
	// means every up, non-loopback, multicast-capable interface.
	Interfaces []string

	TTLPTR uint32
	TTLSRV uint32
	TTLTXT uint32
	TTLA   uint32

	logger   func(msg string, err error)
	listener Listener
}

func defaultConfig() Config {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	return Config{
		Domain:        "local",
		LocalHostName: hostname,
		IPv4Enabled:   true,
		IPv6Enabled:   true,
		TTLPTR:        message.DefaultTTLPTR,
		TTLSRV:        message.DefaultTTLSRV,
		TTLTXT:        message.DefaultTTLTXT,
		TTLA:          message.DefaultTTLA,
	}
}

func (c Config) validate() error {
	for name, ttl := range map[string]uint32{"ttl_ptr": c.TTLPTR, "ttl_srv": c.TTLSRV, "ttl_txt": c.TTLTXT, "ttl_a": c.TTLA} {
		if ttl < message.MinTTL || ttl > message.MaxTTL {
			return fmt.Errorf("beacon: %s=%d out of range [%d, %d]", name, ttl, message.MinTTL, message.MaxTTL)
		}
	}
	if c.Domain == "" {
		return fmt.Errorf("beacon: domain must not be empty")
	}
	if c.LocalHostName == "" {
		return fmt.Errorf("beacon: localHostName must not be empty")
	}
	return nil
}

func (c Config) logFunc() func(string, error) {
	if c.logger != nil {
		return c.logger
	}
	return func(string, error) {}
}

// Option configures a Config passed to New.
type Option func(*Config) error

// WithDomain overrides the discovery domain (default "local").
func WithDomain(domain string) Option {
	return func(c *Config) error {
		c.Domain = domain
		return nil
	}
}

// WithLocalHostName overrides the short host name (default system
// hostname).
func WithLocalHostName(name string) Option {
	return func(c *Config) error {
		c.LocalHostName = name
		return nil
	}
}

// WithIPv4 toggles IPv4 support.
func WithIPv4(enabled bool) Option {
	return func(c *Config) error {
		c.IPv4Enabled = enabled
		return nil
	}
}

// WithIPv6 toggles IPv6 support.
func WithIPv6(enabled bool) Option {
	return func(c *Config) error {
		c.IPv6Enabled = enabled
		return nil
	}
}

// WithInterfaces restricts the engine to exactly these NIC names. Passing
// none resets to auto-discovery.
func WithInterfaces(names ...string) Option {
	return func(c *Config) error {
		c.Interfaces = names
		return nil
	}
}

// WithTTLs overrides the per-kind default TTLs (seconds); each must fall
// within [5, 86400] (spec §6).
func WithTTLs(ptr, srv, txt, a uint32) Option {
	return func(c *Config) error {
		c.TTLPTR, c.TTLSRV, c.TTLTXT, c.TTLA = ptr, srv, txt, a
		return nil
	}
}

// WithLogger supplies a sink for internal faults the engine would otherwise
// discard: reconcile errors, selector errors, listener panics recovered in
// flight. Logging is an external concern (spec §1); beacon never logs on
// its own.
func WithLogger(fn func(msg string, err error)) Option {
	return func(c *Config) error {
		c.logger = fn
		return nil
	}
}

// WithListener registers the event sink that receives every Event the
// engine emits (spec §6).
func WithListener(l Listener) Option {
	return func(c *Config) error {
		c.listener = l
		return nil
	}
}
