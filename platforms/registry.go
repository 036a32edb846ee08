// Package platforms describes the booking sites the parser knows about
package platforms

import (
	"slices"
	"strings"

	"github.com/briangreenhill/tripparse/travel"
)

// Platform describes a booking site and how to read its pages
type Platform struct {
	// Name is a short identifier such as "airbnb"
	Name string
	// Domains are matched against the request host, subdomains included
	Domains []string
	// Kinds lists the data types the site sells
	Kinds []travel.DataType
	// ContentSelectors point at page regions that hold booking details
	ContentSelectors []string
	// NoiseSelectors point at page regions to drop before extraction
	NoiseSelectors []string
}

// Matches reports whether host belongs to the platform
func (p Platform) Matches(host string) bool {
	host = NormalizeHost(host)
	for _, d := range p.Domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Sells reports whether the platform offers the given data type
func (p Platform) Sells(kind travel.DataType) bool {
	return slices.Contains(p.Kinds, kind)
}

// Registry manages known booking platforms
type Registry struct {
	platforms map[string]Platform
	order     []string
}

// NewRegistry creates a new platform registry
func NewRegistry() *Registry {
	return &Registry{
		platforms: make(map[string]Platform),
	}
}

// Register adds a platform to the registry, replacing one with the same name
func (r *Registry) Register(p Platform) {
	if _, exists := r.platforms[p.Name]; !exists {
		r.order = append(r.order, p.Name)
	}
	r.platforms[p.Name] = p
}

// Get retrieves a platform by name
func (r *Registry) Get(name string) (Platform, bool) {
	p, exists := r.platforms[name]
	return p, exists
}

// List returns all registered platform names in registration order
func (r *Registry) List() []string {
	return slices.Clone(r.order)
}

// Lookup returns the first registered platform that matches host
func (r *Registry) Lookup(host string) (Platform, bool) {
	for _, name := range r.order {
		if p := r.platforms[name]; p.Matches(host) {
			return p, true
		}
	}
	return Platform{}, false
}

// Supports reports whether any platform matching host sells kind
func (r *Registry) Supports(host string, kind travel.DataType) bool {
	for _, name := range r.order {
		if p := r.platforms[name]; p.Matches(host) && p.Sells(kind) {
			return true
		}
	}
	return false
}

// NormalizeHost lowercases host and strips a port and leading "www."
func NormalizeHost(host string) string {
	host = strings.ToLower(host)
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	return strings.TrimPrefix(host, "www.")
}
