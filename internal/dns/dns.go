// Package dns resolves relay host names, falling back to public resolvers
// when the system resolver fails or is unavailable.
package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// DefaultFallbackServers are queried directly when the system resolver
// cannot answer.
var DefaultFallbackServers = []string{
	"1.1.1.1",              // Cloudflare
	"1.0.0.1",              // Cloudflare
	"2606:4700:4700::1111", // Cloudflare
	"8.8.8.8",              // Google
	"8.8.4.4",              // Google
	"2001:4860:4860::8888", // Google
	"9.9.9.9",              // Quad9
	"149.112.112.112",      // Quad9
	"208.67.222.222",       // OpenDNS
}

var ErrNoAddress = errors.New("no addresses found")

// Resolver looks a host up locally first and then races the fallback
// servers.
type Resolver struct {
	Fallback      []string
	LocalTimeout  time.Duration
	RemoteTimeout time.Duration

	// lookup is swapped in tests.
	lookup func(ctx context.Context, r *net.Resolver, host string) ([]string, error)
}

// NewResolver returns a Resolver using DefaultFallbackServers.
func NewResolver() *Resolver {
	return &Resolver{
		Fallback:      DefaultFallbackServers,
		LocalTimeout:  time.Second,
		RemoteTimeout: 2 * time.Second,
	}
}

var defaultResolver = NewResolver()

// Lookup resolves host with the default Resolver.
func Lookup(ctx context.Context, host string) (string, error) {
	return defaultResolver.Lookup(ctx, host)
}

// Lookup returns one address for host, preferring IPv4. IP literals are
// returned unchanged.
func (r *Resolver) Lookup(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}

	ip, err := r.localLookup(ctx, host)
	if err == nil {
		return ip, nil
	}
	if len(r.Fallback) == 0 {
		return "", fmt.Errorf("resolve %s: %w", host, err)
	}
	return r.raceFallback(ctx, host)
}

func (r *Resolver) localLookup(ctx context.Context, host string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.LocalTimeout)
	defer cancel()

	ips, err := r.resolve(ctx, &net.Resolver{}, host)
	if err != nil {
		return "", err
	}
	return pickAddress(ips)
}

func (r *Resolver) raceFallback(ctx context.Context, host string) (string, error) {
	type result struct {
		ip  string
		err error
	}

	ctx, cancel := context.WithTimeout(ctx, r.RemoteTimeout)
	defer cancel()

	results := make(chan result, len(r.Fallback))
	for _, server := range r.Fallback {
		go func(server string) {
			ip, err := r.remoteLookup(ctx, host, server)
			results <- result{ip: ip, err: err}
		}(server)
	}

	failures := 0
	for range r.Fallback {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
			failures++
		case <-ctx.Done():
			return "", fmt.Errorf("resolve %s: public resolvers timed out", host)
		}
	}
	return "", fmt.Errorf("resolve %s: all %d public resolvers failed", host, failures)
}

func (r *Resolver) remoteLookup(ctx context.Context, host, server string) (string, error) {
	resolver := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
		},
	}
	ips, err := r.resolve(ctx, resolver, host)
	if err != nil {
		return "", err
	}
	return pickAddress(ips)
}

func (r *Resolver) resolve(ctx context.Context, resolver *net.Resolver, host string) ([]string, error) {
	if r.lookup != nil {
		return r.lookup(ctx, resolver, host)
	}
	return resolver.LookupHost(ctx, host)
}

func pickAddress(ips []string) (string, error) {
	if len(ips) == 0 {
		return "", ErrNoAddress
	}
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() != nil {
			return ip, nil
		}
	}
	return ips[0], nil
}
