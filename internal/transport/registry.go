package transport

import (
	"fmt"
	"strings"
)

// Factory constructs clients and servers for one URI scheme.
type Factory interface {
	// Scheme returns the URI scheme this factory claims, e.g. "tcp".
	Scheme() string
	// Dial connects to rest (the address with the "scheme://" prefix
	// stripped) as a client.
	Dial(rest string) (Line, error)
	// Listen binds rest as a server and returns an Acceptor.
	Listen(rest string) (Acceptor, error)
}

// Registry maps URI schemes to factories. The first factory registered
// for a scheme wins; later registrations for the same scheme are
// ignored, matching spec.md §4.3's "iterates registered factories in
// insertion order; the first that claims the scheme is used."
type Registry struct {
	factories []Factory
	byScheme  map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byScheme: make(map[string]Factory)}
}

// Register adds a factory, ignoring it if its scheme is already claimed.
func (r *Registry) Register(f Factory) {
	if _, exists := r.byScheme[f.Scheme()]; exists {
		return
	}
	r.factories = append(r.factories, f)
	r.byScheme[f.Scheme()] = f
}

// Default returns a registry with inproc, local, and tcp registered —
// the three schemes spec.md §4.3/§6 names.
func Default() *Registry {
	r := NewRegistry()
	r.Register(NewInProcFactory())
	r.Register(NewLocalFactory())
	r.Register(NewTCPFactory())
	return r
}

// parseAddress splits "scheme://rest" into its two parts.
func parseAddress(addr string) (scheme, rest string, err error) {
	idx := strings.Index(addr, "://")
	if idx < 0 {
		return "", "", fmt.Errorf("transport: malformed address %q: missing scheme", addr)
	}
	return addr[:idx], addr[idx+3:], nil
}

// Dial resolves addr's scheme and dials it. An unknown scheme returns a
// nil Line and an error (spec.md: "Unknown scheme yields a null line").
func (r *Registry) Dial(addr string) (Line, error) {
	scheme, rest, err := parseAddress(addr)
	if err != nil {
		return nil, err
	}
	f, ok := r.byScheme[scheme]
	if !ok {
		return nil, fmt.Errorf("transport: unknown scheme %q", scheme)
	}
	return f.Dial(rest)
}

// Listen resolves addr's scheme and binds a server on it.
func (r *Registry) Listen(addr string) (Acceptor, error) {
	scheme, rest, err := parseAddress(addr)
	if err != nil {
		return nil, err
	}
	f, ok := r.byScheme[scheme]
	if !ok {
		return nil, fmt.Errorf("transport: unknown scheme %q", scheme)
	}
	return f.Listen(rest)
}
