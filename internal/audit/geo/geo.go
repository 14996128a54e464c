// Package geo defines the geolocation collaborator consumed by the capture
// layer. Lookups are best-effort: a miss is a nil Location, never an error.
package geo

import (
	"net/netip"
	"sync"
)

// Location is coarse, city-level geolocation for a client IP.
type Location struct {
	Country  string `json:"country"`
	Region   string `json:"region"`
	City     string `json:"city"`
	Timezone string `json:"timezone"`
}

// Provider resolves an IP to a location. Implementations must be safe for
// concurrent use and must treat unknown IPs as a nil result.
type Provider interface {
	Lookup(ip string) *Location
}

// NopProvider always misses. Used when no geo database is configured.
type NopProvider struct{}

func (NopProvider) Lookup(string) *Location { return nil }

// StaticProvider resolves IPs against a fixed prefix table. It stands in for
// a real geo database in development and tests.
type StaticProvider struct {
	mu      sync.RWMutex
	entries []staticEntry
}

type staticEntry struct {
	prefix   netip.Prefix
	location Location
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{}
}

// Add registers a CIDR range with a location. Invalid CIDRs are ignored.
func (p *StaticProvider) Add(cidr string, location Location) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, staticEntry{prefix: prefix, location: location})
}

func (p *StaticProvider) Lookup(ip string) *Location {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, entry := range p.entries {
		if entry.prefix.Contains(addr) {
			loc := entry.location
			return &loc
		}
	}
	return nil
}
