package cache

import (
	"sync"

	"github.com/mdnscore/beacon/internal/message"
)

// Cache is the engine's live state (spec §4.3): heard services plus their
// derived type and name sets, and the retained announcement packets for
// services this process owns. Only the engine goroutine mutates it; every
// other accessor here returns a snapshot copy safe for concurrent readers.
type Cache struct {
	mu sync.RWMutex

	heardServices map[string]*Service // fqdn -> service
	heardTypes    map[string]struct{}
	heardNames    map[string]struct{} // fqdn set

	announced map[string]*message.Packet // fqdn -> retained announcement
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		heardServices: make(map[string]*Service),
		heardTypes:    make(map[string]struct{}),
		heardNames:    make(map[string]struct{}),
		announced:     make(map[string]*message.Packet),
	}
}

// HeardServices returns a snapshot slice of every currently heard or owned
// service in the cache.
func (c *Cache) HeardServices() []*Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Service, 0, len(c.heardServices))
	for _, s := range c.heardServices {
		out = append(out, s)
	}
	return out
}

// GetService looks up a service by fqdn.
func (c *Cache) GetService(fqdn string) (*Service, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.heardServices[fqdn]
	return s, ok
}

// PutService inserts or replaces the service entry under its fqdn.
func (c *Cache) PutService(s *Service) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.heardServices[s.FQDN] = s
}

// RemoveService deletes the fqdn entry, reporting whether it had been
// present.
func (c *Cache) RemoveService(fqdn string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.heardServices[fqdn]; !ok {
		return false
	}
	delete(c.heardServices, fqdn)
	return true
}

// HeardTypes returns a snapshot of known service type strings.
func (c *Cache) HeardTypes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.heardTypes))
	for t := range c.heardTypes {
		out = append(out, t)
	}
	return out
}

// AddHeardType records typ, reporting whether it was new.
func (c *Cache) AddHeardType(typ string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.heardTypes[typ]; ok {
		return false
	}
	c.heardTypes[typ] = struct{}{}
	return true
}

// RemoveHeardType drops typ from the known set.
func (c *Cache) RemoveHeardType(typ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.heardTypes, typ)
}

// HeardNames returns a snapshot of known service instance fqdns.
func (c *Cache) HeardNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.heardNames))
	for n := range c.heardNames {
		out = append(out, n)
	}
	return out
}

// AddHeardName records fqdn, reporting whether it was new.
func (c *Cache) AddHeardName(fqdn string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.heardNames[fqdn]; ok {
		return false
	}
	c.heardNames[fqdn] = struct{}{}
	return true
}

// RemoveHeardName drops fqdn from the known set.
func (c *Cache) RemoveHeardName(fqdn string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.heardNames, fqdn)
}

// Announced returns a snapshot of every fqdn this process currently has an
// announcement packet retained for.
func (c *Cache) Announced() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.announced))
	for fqdn := range c.announced {
		out = append(out, fqdn)
	}
	return out
}

// GetAnnouncement returns the retained announcement packet for fqdn.
func (c *Cache) GetAnnouncement(fqdn string) (*message.Packet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.announced[fqdn]
	return p, ok
}

// PutAnnouncement retains pkt as fqdn's announcement (for reannounce and
// goodbye).
func (c *Cache) PutAnnouncement(fqdn string, pkt *message.Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.announced[fqdn] = pkt
}

// RemoveAnnouncement drops the retained announcement, reporting whether one
// had been present.
func (c *Cache) RemoveAnnouncement(fqdn string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.announced[fqdn]; !ok {
		return false
	}
	delete(c.announced, fqdn)
	return true
}
